package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3002"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`

	// Requests per second allowed per client IP on /api; 0 disables limiting.
	RateLimit float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`

	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Graph    GraphConfig
	Otel     OtelConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"8h"` // long for SSE streams
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"fullstori"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"fullstori"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
	// StatementTimeout bounds every statement server-side; 0 leaves the
	// server default.
	StatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"30s"`
	AutoMigrate  bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Database,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// AuthConfig selects how API callers authenticate. With neither field set the API is open.
type AuthConfig struct {
	// APIKey is a static key accepted via the X-API-Key header.
	APIKey string `env:"API_KEY" envDefault:""`

	// JWTSecret verifies HS256 bearer tokens.
	JWTSecret string `env:"JWT_SECRET" envDefault:""`

	// JWTIssuer, when set, must match the token "iss" claim.
	JWTIssuer string `env:"JWT_ISSUER" envDefault:""`
}

// Enabled returns true if any authentication method is configured
func (a *AuthConfig) Enabled() bool {
	return a.APIKey != "" || a.JWTSecret != ""
}

// StorageConfig holds S3-compatible object storage settings for entity avatars
type StorageConfig struct {
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:""`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:""`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:""`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET_AVATARS" envDefault:"avatars"`

	// PublicURL is the base used to build avatar URLs; defaults to {Endpoint}/{Bucket}.
	PublicURL string `env:"STORAGE_PUBLIC_URL" envDefault:""`

	MaxAvatarBytes int64 `env:"STORAGE_MAX_AVATAR_BYTES" envDefault:"5242880"`
}

// IsConfigured returns true if storage is configured
func (s *StorageConfig) IsConfigured() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

// GraphConfig holds graph engine settings
type GraphConfig struct {
	// SaveTimeout bounds a single reconciliation transaction.
	SaveTimeout time.Duration `env:"GRAPH_SAVE_TIMEOUT" envDefault:"30s"`

	// DefaultName names graphs created implicitly on first load.
	DefaultName string `env:"GRAPH_DEFAULT_NAME" envDefault:"Untitled Investigation"`

	// AvatarBaseURL generates default entity avatars from their name.
	AvatarBaseURL string `env:"AVATAR_BASE_URL" envDefault:"https://ui-avatars.com/api/"`

	// SeedVocabulary seeds system roles, relationship and event types on start.
	SeedVocabulary bool `env:"SEED_VOCABULARY" envDefault:"true"`

	// Layout collision resolution
	LayoutMaxAttempts int `env:"LAYOUT_MAX_ATTEMPTS" envDefault:"64"`
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.Bool("auth_enabled", cfg.Auth.Enabled()),
		slog.Bool("storage_enabled", cfg.Storage.IsConfigured()),
	)

	return cfg, nil
}
