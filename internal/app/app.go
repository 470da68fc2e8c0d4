package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/diabolofocus/form-displays-sub000/internal/data/db"
	apphttp "github.com/diabolofocus/form-displays-sub000/internal/http"
	"github.com/diabolofocus/form-displays-sub000/internal/observability"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
	"github.com/diabolofocus/form-displays-sub000/internal/realtime"
	"github.com/diabolofocus/form-displays-sub000/internal/realtime/bus"
	"github.com/diabolofocus/form-displays-sub000/internal/viewconfig"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	redis        *goredis.Client
	bus          bus.Bus
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	boot, err := logger.New("development")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg, err := LoadConfig(boot)
	if err != nil {
		boot.Sync()
		return nil, err
	}
	log := boot
	if cfg.LogMode != "development" {
		if log, err = logger.New(cfg.LogMode); err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}
	return NewWithConfig(ctx, log, cfg)
}

// NewWithConfig wires the app from an already loaded config.
func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     observability.ParseHeaders(cfg.Otel.Headers),
		Insecure:    cfg.Otel.Insecure,
		SampleRatio: cfg.Otel.SampleRatio,
	})

	dbs, err := db.NewService(log, db.Config{Driver: cfg.DB.Driver, DSN: cfg.DB.DSN, SQLitePath: cfg.DB.SQLitePath})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := dbs.AutoMigrateAll(); err != nil {
			log.Sync()
			return nil, fmt.Errorf("database automigrate: %w", err)
		}
	}
	theDB := dbs.DB()

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}

	if cfg.Redis.Addr != "" {
		rdb, err := bus.NewRedisClient(ctx, bus.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.redis = rdb
		a.bus = bus.NewRedisBusFromClient(log, rdb, cfg.Redis.Channel)
	} else if cfg.AMQP.URL != "" {
		b, err := bus.NewAMQPBus(log, bus.AMQPConfig{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange})
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init amqp bus: %w", err)
		}
		a.bus = b
	}

	a.Repos = wireRepos(theDB, log)
	a.Services = wireServices(log, cfg, a.Repos, metrics)
	handlerset := wireHandlers(log, theDB, a.Services)
	middleware := wireMiddleware(log, a.Services)
	a.Server = apphttp.NewServer(routerConfig(log, cfg, metrics, handlerset, middleware))
	return a, nil
}

// Start seeds fixtures, loads saved view settings and starts the background
// workers. They stop when ctx is done or on Close.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Cfg.SeedFile != "" {
		seed, err := LoadSeedFile(a.Cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := ApplySeed(ctx, a.Log, a.Repos, seed); err != nil {
			return err
		}
	}

	if err := a.Services.Store.Load(ctx); err != nil && !errors.Is(err, viewconfig.ErrNoBackend) {
		return fmt.Errorf("load view settings: %w", err)
	}

	if a.bus != nil {
		relay := realtime.NewRelay(a.Services.Store, a.bus, a.Cfg.InstanceID, a.Log, a.Metrics)
		if err := relay.Start(ctx); err != nil {
			return err
		}
	}

	a.Services.ViewSettings.StartAutosave(ctx, a.Cfg.AutosaveInterval)
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB, a.Cfg.MetricsInterval)
	if a.redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.redis, a.Cfg.MetricsInterval)
	}
	return nil
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, ":"+a.Cfg.Port)
}

// Close stops background work and flushes what is left. Unsaved view
// settings get one final save attempt.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.ViewSettings != nil && len(a.Services.Store.DirtyFormIDs()) > 0 {
		if err := a.Services.ViewSettings.Save(ctx); err != nil {
			a.Log.Warn("final view settings save failed", "error", err)
		}
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
