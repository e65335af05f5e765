package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/promptdeck/promptdeck/internal/api/handlers"
	"github.com/promptdeck/promptdeck/internal/api/middleware"
	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/notify"
	"github.com/promptdeck/promptdeck/internal/search"
	"github.com/promptdeck/promptdeck/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *gorm.DB, svc *service.TemplateService, facade *search.Facade, broker *notify.Broker, authenticator auth.Authenticator) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())

	templateHandler := handlers.NewTemplateHandler(svc, broker)
	searchHandler := handlers.NewSearchHandler(facade)
	adminHandler := handlers.NewAdminHandler(db)

	// Public routes. Optional auth lets reads attribute usage to the
	// requester when a token is present without requiring one.
	public := router.Group("/api/v1")
	public.Use(authenticator.OptionalMiddleware())
	{
		public.GET("/health", handlers.HealthCheck)
		public.GET("/version", handlers.GetVersion)
		public.POST("/auth/login", handlers.Login(authenticator))
		public.POST("/auth/register", handlers.Register(authenticator))

		public.GET("/templates/:id", templateHandler.GetTemplate)
		public.GET("/templates/:id/favorite", templateHandler.GetFavorite)
		public.GET("/templates/:id/events", templateHandler.StreamEvents)

		public.GET("/search", searchHandler.Search)
		public.POST("/search", searchHandler.SearchAction)
	}

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(authenticator.Middleware())
	{
		protected.GET("/templates", templateHandler.ListTemplates)
		protected.POST("/templates", templateHandler.CreateTemplate)
		protected.PUT("/templates/:id", templateHandler.UpdateTemplate)
		protected.PATCH("/templates/:id", templateHandler.UpdateTemplate)
		protected.DELETE("/templates/:id", templateHandler.DeleteTemplate)

		protected.POST("/templates/:id/clone", templateHandler.CloneTemplate)
		protected.POST("/templates/:id/fork", templateHandler.ForkTemplate)
		protected.POST("/templates/:id/publish", templateHandler.PublishTemplate)
		protected.POST("/templates/:id/unpublish", templateHandler.UnpublishTemplate)

		protected.POST("/templates/:id/favorite", templateHandler.AddFavorite)
		protected.DELETE("/templates/:id/favorite", templateHandler.RemoveFavorite)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/usage-events", adminHandler.ListUsageEvents)
			admin.GET("/templates/:id/forks", adminHandler.ListForkRecords)
		}
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode)
	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		slog.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
