package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AddFavorite godoc
// @Summary Add a template to the caller's favorites (idempotent)
// @Tags favorites
// @Security BearerAuth
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /templates/{id}/favorite [post]
func (h *TemplateHandler) AddFavorite(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}

	status, err := h.svc.Favorite(c.Request.Context(), *principalID(c), id)
	if err != nil {
		handleServiceError(c, err, "FAVORITE_FAILED")
		return
	}

	respond(c, http.StatusOK, status)
}

// RemoveFavorite godoc
// @Summary Remove a template from the caller's favorites (idempotent)
// @Tags favorites
// @Security BearerAuth
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /templates/{id}/favorite [delete]
func (h *TemplateHandler) RemoveFavorite(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}

	status, err := h.svc.Unfavorite(c.Request.Context(), *principalID(c), id)
	if err != nil {
		handleServiceError(c, err, "UNFAVORITE_FAILED")
		return
	}

	respond(c, http.StatusOK, status)
}

// GetFavorite godoc
// @Summary Get favorite membership and count for a template
// @Tags favorites
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /templates/{id}/favorite [get]
func (h *TemplateHandler) GetFavorite(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}

	status, err := h.svc.GetFavoriteStatus(c.Request.Context(), principalID(c), id)
	if err != nil {
		handleServiceError(c, err, "FAVORITE_STATUS_FAILED")
		return
	}

	respond(c, http.StatusOK, status)
}
