package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promptdeck/promptdeck/internal/notify"
	"github.com/promptdeck/promptdeck/internal/rbac"
	"github.com/promptdeck/promptdeck/internal/service"
)

// TemplateHandler exposes template lifecycle operations over HTTP.
type TemplateHandler struct {
	svc    *service.TemplateService
	broker *notify.Broker
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(svc *service.TemplateService, broker *notify.Broker) *TemplateHandler {
	return &TemplateHandler{svc: svc, broker: broker}
}

// CreateTemplateRequest is the JSON body for template creation.
type CreateTemplateRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Config      json.RawMessage `json:"config" binding:"required"`
	Tags        []string        `json:"tags"`
	IsPublic    bool            `json:"is_public"`
}

// UpdateTemplateRequest is the JSON body for partial updates. Absent
// fields are left unchanged.
type UpdateTemplateRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Config      json.RawMessage `json:"config"`
	Tags        *[]string       `json:"tags"`
	IsPublic    *bool           `json:"is_public"`
}

// CloneTemplateRequest is the JSON body of field-by-field overrides.
type CloneTemplateRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Config      json.RawMessage `json:"config"`
}

// CreateTemplate godoc
// @Summary Create a new draft template
// @Tags templates
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param template body CreateTemplateRequest true "Template details"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	principal := principalID(c)

	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	tpl, err := h.svc.Create(c.Request.Context(), *principal, service.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		Config:      req.Config,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		handleServiceError(c, err, "TEMPLATE_CREATE_FAILED")
		return
	}

	respond(c, http.StatusCreated, tpl)
}

// ListTemplates godoc
// @Summary List the caller's templates
// @Tags templates
// @Security BearerAuth
// @Produce json
// @Success 200 {object} Response
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	principal := principalID(c)

	templates, err := h.svc.List(c.Request.Context(), *principal)
	if err != nil {
		handleServiceError(c, err, "TEMPLATE_LIST_FAILED")
		return
	}

	respond(c, http.StatusOK, templates)
}

// GetTemplate godoc
// @Summary Get a template by ID
// @Description Records a view event. Soft-deleted templates are returned
// @Description only to their owner or an admin passing include_deleted=true.
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Param include_deleted query bool false "Include a soft-deleted template (owner/admin audit)"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}

	principal := principalID(c)
	opts := service.ReadOptions{Requester: principal}
	if c.Query("include_deleted") == "true" && principal != nil {
		opts.IncludeDeleted = true
		if isAdmin, err := rbac.IsAdmin(*principal); err == nil {
			opts.RequesterAdmin = isAdmin
		}
	}

	tpl, err := h.svc.Get(c.Request.Context(), id, opts)
	if err != nil {
		handleServiceError(c, err, "TEMPLATE_READ_FAILED")
		return
	}

	respond(c, http.StatusOK, tpl)
}

// UpdateTemplate godoc
// @Summary Partially update an owned template
// @Tags templates
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param patch body UpdateTemplateRequest true "Fields to change"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /templates/{id} [patch]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}
	principal := principalID(c)

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	tpl, err := h.svc.Update(c.Request.Context(), *principal, id, service.PatchRequest{
		Title:       req.Title,
		Description: req.Description,
		Config:      req.Config,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		handleServiceError(c, err, "TEMPLATE_UPDATE_FAILED")
		return
	}

	respond(c, http.StatusOK, tpl)
}

// DeleteTemplate godoc
// @Summary Soft-delete an owned template
// @Tags templates
// @Security BearerAuth
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}
	principal := principalID(c)

	if err := h.svc.Delete(c.Request.Context(), *principal, id); err != nil {
		handleServiceError(c, err, "TEMPLATE_DELETE_FAILED")
		return
	}

	respond(c, http.StatusOK, gin.H{"deleted": true})
}

// CloneTemplate godoc
// @Summary Clone a template into a new private draft
// @Tags templates
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param overrides body CloneTemplateRequest false "Field overrides"
// @Success 201 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /templates/{id}/clone [post]
func (h *TemplateHandler) CloneTemplate(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}

	// An empty body means "no overrides"; anything else must bind. The
	// body can arrive chunked, so EOF is the only reliable empty signal.
	var req CloneTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	tpl, err := h.svc.Clone(c.Request.Context(), principalID(c), id, service.CloneRequest{
		Title:       req.Title,
		Description: req.Description,
		Config:      req.Config,
	})
	if err != nil {
		handleServiceError(c, err, "TEMPLATE_CLONE_FAILED")
		return
	}

	respond(c, http.StatusCreated, tpl)
}

// ForkTemplate godoc
// @Summary Fork a template, recording lineage against the origin
// @Tags templates
// @Security BearerAuth
// @Produce json
// @Param id path string true "Template ID"
// @Success 201 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /templates/{id}/fork [post]
func (h *TemplateHandler) ForkTemplate(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}

	tpl, err := h.svc.Fork(c.Request.Context(), principalID(c), id)
	if err != nil {
		handleServiceError(c, err, "TEMPLATE_FORK_FAILED")
		return
	}

	respond(c, http.StatusCreated, tpl)
}

// PublishTemplate godoc
// @Summary Publish an owned template
// @Tags templates
// @Security BearerAuth
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} Response
// @Router /templates/{id}/publish [post]
func (h *TemplateHandler) PublishTemplate(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}

	tpl, err := h.svc.Publish(c.Request.Context(), *principalID(c), id)
	if err != nil {
		handleServiceError(c, err, "TEMPLATE_PUBLISH_FAILED")
		return
	}

	respond(c, http.StatusOK, tpl)
}

// UnpublishTemplate godoc
// @Summary Move an owned template back to draft
// @Tags templates
// @Security BearerAuth
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} Response
// @Router /templates/{id}/unpublish [post]
func (h *TemplateHandler) UnpublishTemplate(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}

	tpl, err := h.svc.Unpublish(c.Request.Context(), *principalID(c), id)
	if err != nil {
		handleServiceError(c, err, "TEMPLATE_UNPUBLISH_FAILED")
		return
	}

	respond(c, http.StatusOK, tpl)
}

// StreamEvents godoc
// @Summary Stream lifecycle notifications for a template over SSE
// @Tags templates
// @Produce text/event-stream
// @Param id path string true "Template ID"
// @Router /templates/{id}/events [get]
func (h *TemplateHandler) StreamEvents(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}

	ch, release := h.broker.Subscribe(id)
	defer release()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent("template", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
