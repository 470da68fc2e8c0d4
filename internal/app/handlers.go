package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/diabolofocus/form-displays-sub000/internal/http"
	httpH "github.com/diabolofocus/form-displays-sub000/internal/http/handlers"
	httpMW "github.com/diabolofocus/form-displays-sub000/internal/http/middleware"
	"github.com/diabolofocus/form-displays-sub000/internal/observability"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Submission   *httpH.SubmissionHandler
	FormNames    *httpH.FormNamesHandler
	ViewSettings *httpH.ViewSettingsHandler
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	if services.Auth == nil {
		return Middleware{}
	}
	return Middleware{Auth: httpMW.NewAuthMiddleware(log, services.Auth)}
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(dbPinger(db)),
		Submission:   httpH.NewSubmissionHandler(log, services.Submissions),
		FormNames:    httpH.NewFormNamesHandler(services.FormNames),
		ViewSettings: httpH.NewViewSettingsHandler(services.ViewSettings),
	}
}

func routerConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) apphttp.RouterConfig {
	return apphttp.RouterConfig{
		Log:                 log,
		ServiceName:         cfg.ServiceName,
		CORSOrigins:         cfg.CORSOrigins,
		TracingEnabled:      cfg.Otel.Enabled,
		Metrics:             metrics,
		AuthMiddleware:      middleware.Auth,
		HealthHandler:       handlers.Health,
		SubmissionHandler:   handlers.Submission,
		FormNamesHandler:    handlers.FormNames,
		ViewSettingsHandler: handlers.ViewSettings,
	}
}

func dbPinger(db *gorm.DB) httpH.Pinger {
	if db == nil {
		return nil
	}
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
