package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/promptdeck/promptdeck/internal/models"
	"gorm.io/gorm"
)

// AdminHandler exposes the audit surface for admins.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// ListUsageEvents godoc
// @Summary List recorded usage events, newest first
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param template_id query string false "Filter by subject template"
// @Param action query string false "Filter by action kind"
// @Param limit query int false "Maximum rows (default 100)"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Router /admin/usage-events [get]
func (h *AdminHandler) ListUsageEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := h.db.Model(&models.UsageEvent{}).Order("timestamp DESC").Limit(limit)
	if tplID, err := uuid.Parse(c.Query("template_id")); err == nil {
		query = query.Where("template_id = ?", tplID)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var events []models.UsageEvent
	if err := query.Find(&events).Error; err != nil {
		handleServiceError(c, err, "USAGE_EVENTS_FAILED")
		return
	}

	respond(c, http.StatusOK, events)
}

// ListForkRecords godoc
// @Summary List fork lineage records for a template
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Origin template ID"
// @Success 200 {object} Response
// @Router /admin/templates/{id}/forks [get]
func (h *AdminHandler) ListForkRecords(c *gin.Context) {
	id, ok := parseTemplateID(c)
	if !ok {
		return
	}

	var records []models.Fork
	err := h.db.Where("origin_id = ?", id).Order("created_at DESC").Find(&records).Error
	if err != nil {
		handleServiceError(c, err, "FORK_RECORDS_FAILED")
		return
	}

	respond(c, http.StatusOK, records)
}
