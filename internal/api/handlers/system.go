package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// Version is set via ldflags at build time
var Version = "dev"

// HealthCheck godoc
// @Summary Health check
// @Description Returns server liveness status
// @Tags system
// @Produce json
// @Success 200 {object} Response
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"status": "ok"})
}

// GetVersion godoc
// @Summary Get version information
// @Description Returns version information about the PromptDeck server
// @Tags system
// @Produce json
// @Success 200 {object} Response
// @Router /version [get]
func GetVersion(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"version":    Version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	})
}
