package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/diabolofocus/form-displays-sub000/internal/http/handlers"
	httpMW "github.com/diabolofocus/form-displays-sub000/internal/http/middleware"
	"github.com/diabolofocus/form-displays-sub000/internal/observability"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	TracingEnabled bool
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler       *httpH.HealthHandler
	SubmissionHandler   *httpH.SubmissionHandler
	FormNamesHandler    *httpH.FormNamesHandler
	ViewSettingsHandler *httpH.ViewSettingsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Submissions (elevated through the proxy)
		if cfg.SubmissionHandler != nil {
			api.GET("/submissions", cfg.SubmissionHandler.ListSubmissions)
			api.PATCH("/submissions/:id", cfg.SubmissionHandler.UpdateSubmission)
			api.DELETE("/submissions/:id", cfg.SubmissionHandler.DeleteSubmission)
		}

		// Form names
		if cfg.FormNamesHandler != nil {
			api.GET("/forms/names", cfg.FormNamesHandler.GetNames)
		}

		// View settings
		if h := cfg.ViewSettingsHandler; h != nil {
			api.GET("/forms/:formId/view-settings", h.GetSettings)
			api.PUT("/forms/:formId/view-settings", h.PutSettings)
			api.POST("/forms/:formId/view-settings/reset", h.Reset)
			api.GET("/forms/:formId/columns", h.GetColumns)
			api.PUT("/forms/:formId/columns/order", h.PutColumnOrder)
			api.PATCH("/forms/:formId/columns/:fieldName", h.PatchColumn)
			api.POST("/view-settings/save", h.Save)
			api.GET("/view-settings/status", h.Status)
			api.GET("/selected-form", h.GetSelectedForm)
			api.PUT("/selected-form", h.PutSelectedForm)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "not found", "code": "not_found"}})
	})
	return r
}
