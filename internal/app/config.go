package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/diabolofocus/form-displays-sub000/internal/data/db"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/envutil"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type DBConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	SQLitePath  string `yaml:"sqlitePath"`
	AutoMigrate bool   `yaml:"autoMigrate"`
}

type AuthConfig struct {
	// An empty secret leaves /api unauthenticated; only for local use.
	JWTSecret      string        `yaml:"jwtSecret"`
	JWTIssuer      string        `yaml:"jwtIssuer"`
	AccessTokenTTL time.Duration `yaml:"accessTokenTTL"`
}

type OtelSection struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sampleRatio"`
}

type RedisSection struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type AMQPSection struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type Config struct {
	LogMode     string `yaml:"logMode"`
	Environment string `yaml:"environment"`
	ServiceName string `yaml:"serviceName"`
	Version     string `yaml:"version"`
	Port        string `yaml:"port"`
	// InstanceID tags bus messages so an instance ignores its own.
	InstanceID  string `yaml:"instanceId"`

	DB          DBConfig     `yaml:"db"`
	Auth        AuthConfig   `yaml:"auth"`
	CORSOrigins []string     `yaml:"corsOrigins"`
	Otel        OtelSection  `yaml:"otel"`
	Redis       RedisSection `yaml:"redis"`
	// AMQP is used for the settings bus only when Redis is not configured.
	AMQP        AMQPSection  `yaml:"amqp"`

	MetricsEnabled   bool          `yaml:"metricsEnabled"`
	MetricsInterval  time.Duration `yaml:"metricsInterval"`
	AutosaveInterval time.Duration `yaml:"autosaveInterval"`
	SeedFile         string        `yaml:"seedFile"`
}

func defaultConfig() Config {
	return Config{
		LogMode:     "development",
		Environment: "development",
		ServiceName: "form-displays",
		Port:        "8080",
		DB: DBConfig{
			Driver:      "postgres",
			AutoMigrate: true,
		},
		Auth: AuthConfig{
			AccessTokenTTL: time.Hour,
		},
		Otel:            OtelSection{SampleRatio: 1},
		MetricsEnabled:  true,
		MetricsInterval: 15 * time.Second,
	}
}

// LoadConfig builds the config from defaults, then the YAML file named by
// CONFIG_FILE, then environment variables. Later sources win.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
		log.Info("config file applied", "path", path)
	}
	overlayEnv(&cfg)

	if cfg.InstanceID == "" {
		host, _ := os.Hostname()
		cfg.InstanceID = strings.Trim(host+"-"+uuid.NewString()[:8], "-")
	}
	if strings.EqualFold(cfg.DB.Driver, "postgres") && cfg.DB.DSN == "" {
		cfg.DB.DSN = db.PostgresDSN(
			envutil.String("POSTGRES_HOST", "localhost"),
			envutil.String("POSTGRES_PORT", "5432"),
			envutil.String("POSTGRES_USER", "postgres"),
			envutil.String("POSTGRES_PASSWORD", ""),
			envutil.String("POSTGRES_NAME", "form_displays"),
		)
	}
	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func overlayEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Version = envutil.String("APP_VERSION", cfg.Version)
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.InstanceID = envutil.String("INSTANCE_ID", cfg.InstanceID)

	cfg.DB.Driver = strings.ToLower(envutil.String("DB_DRIVER", cfg.DB.Driver))
	cfg.DB.DSN = envutil.String("DATABASE_URL", cfg.DB.DSN)
	cfg.DB.SQLitePath = envutil.String("SQLITE_PATH", cfg.DB.SQLitePath)
	cfg.DB.AutoMigrate = envutil.Bool("DB_AUTO_MIGRATE", cfg.DB.AutoMigrate)

	cfg.Auth.JWTSecret = envutil.String("JWT_SECRET_KEY", cfg.Auth.JWTSecret)
	cfg.Auth.JWTIssuer = envutil.String("JWT_ISSUER", cfg.Auth.JWTIssuer)
	cfg.Auth.AccessTokenTTL = envutil.Seconds("ACCESS_TOKEN_TTL", cfg.Auth.AccessTokenTTL)

	cfg.CORSOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.CORSOrigins)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Otel.Headers)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.Otel.SampleRatio)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)
	cfg.AMQP.URL = envutil.String("AMQP_URL", cfg.AMQP.URL)
	cfg.AMQP.Exchange = envutil.String("AMQP_EXCHANGE", cfg.AMQP.Exchange)

	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsInterval = envutil.Seconds("METRICS_INTERVAL_SECONDS", cfg.MetricsInterval)
	cfg.AutosaveInterval = envutil.Seconds("VIEW_SETTINGS_AUTOSAVE_SECONDS", cfg.AutosaveInterval)
	cfg.SeedFile = envutil.String("SEED_FILE", cfg.SeedFile)
}
