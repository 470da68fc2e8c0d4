package app

import (
	"github.com/diabolofocus/form-displays-sub000/internal/data/repos/viewsettings"
	"github.com/diabolofocus/form-displays-sub000/internal/observability"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
	"github.com/diabolofocus/form-displays-sub000/internal/services"
	"github.com/diabolofocus/form-displays-sub000/internal/viewconfig"
)

type Services struct {
	// Auth is nil when no JWT secret is configured.
	Auth services.AuthService

	Submissions  services.SubmissionProxy
	Catalog      services.FormCatalog
	FormNames    *services.FormNames
	ViewSettings services.ViewSettingsService

	// Store is the process-wide view config; exposed for the relay and startup load.
	Store *viewconfig.Store
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	var auth services.AuthService
	if cfg.Auth.JWTSecret != "" {
		auth = services.NewAuthService(log, cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	} else {
		log.Warn("JWT_SECRET_KEY not set; /api routes are unauthenticated")
	}

	catalog := services.NewFormCatalog(reposet.Form)
	store := viewconfig.NewStore(viewsettings.NewStoreBackend(reposet.ViewSettings), log)

	return Services{
		Auth:         auth,
		Submissions:  services.NewSubmissionProxy(services.NewSubmissionStore(reposet.Submission), log, metrics),
		Catalog:      catalog,
		FormNames:    services.NewFormNames(services.NewFormNameResolver(catalog), log, metrics),
		ViewSettings: services.NewViewSettingsService(store, catalog, log, metrics),
		Store:        store,
	}
}
