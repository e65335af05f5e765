package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/promptdeck/promptdeck/internal/search"
)

// SearchHandler fronts the search query facade.
type SearchHandler struct {
	facade *search.Facade
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(facade *search.Facade) *SearchHandler {
	return &SearchHandler{facade: facade}
}

// searchActionRequest is the body of POST /search.
type searchActionRequest struct {
	Action string `json:"action" binding:"required"`
	Limit  int    `json:"limit"`
}

// Search godoc
// @Summary Search published templates
// @Tags search
// @Produce json
// @Param q query string true "Query, at least 2 characters after trimming"
// @Param limit query int false "Maximum results"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	results, err := h.facade.Search(c.Request.Context(), principalID(c), c.Query("q"), limit)
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			fail(c, http.StatusBadRequest, CodeInvalidQuery, err.Error())
			return
		}
		handleServiceError(c, err, "SEARCH_FAILED")
		return
	}

	respond(c, http.StatusOK, results)
}

// SearchAction godoc
// @Summary Dispatch a search aggregation action
// @Description Currently only {"action": "popular-tags"} is supported.
// @Tags search
// @Accept json
// @Produce json
// @Param request body searchActionRequest true "Action"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /search [post]
func (h *SearchHandler) SearchAction(c *gin.Context) {
	var req searchActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	switch req.Action {
	case "popular-tags":
		tags, err := h.facade.PopularTags(c.Request.Context(), req.Limit)
		if err != nil {
			handleServiceError(c, err, "POPULAR_TAGS_FAILED")
			return
		}
		respond(c, http.StatusOK, tags)
	default:
		fail(c, http.StatusBadRequest, CodeValidationError, "unknown action: "+req.Action)
	}
}
