// Package config loads the immutable service configuration from the
// environment. A .env file in the working directory is applied first when
// present; real environment variables always win.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/user-service/internal/core/domain"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	AppName  string `env:"APP_NAME,  default=user-service"`

	// PermissionsFile optionally replaces the built-in permission table.
	PermissionsFile string `env:"PERMISSIONS_FILE"`

	JWT   JWTConfig
	Auth  AuthConfig
	Store StoreConfig
	Mongo MongoConfig
	SQL   SQLConfig
	Redis RedisConfig
	Kafka KafkaConfig
	// NotifyWorkers > 0 delivers notifications asynchronously through that
	// many workers; 0 delivers inline with the request.
	NotifyWorkers int `env:"NOTIFY_WORKERS, default=0"`
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET"`
	TTL    time.Duration `env:"JWT_TTL,    default=24h"`
	Issuer string        `env:"JWT_ISSUER, default=user-service"`
}

type AuthConfig struct {
	DefaultRole       string        `env:"DEFAULT_USER_ROLE,  default=user"`
	AllowRegistration bool          `env:"ALLOW_REGISTRATION, default=true"`
	FrontendURL       string        `env:"FRONTEND_URL,       default=http://localhost:5173"`
	ResetTokenTTL     time.Duration `env:"RESET_TOKEN_TTL,    default=1h"`
}

// ResetURL is the reset page used when a forgot-password request omits one.
func (a AuthConfig) ResetURL() string {
	return strings.TrimRight(a.FrontendURL, "/") + "/reset-password"
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=user_service"`
}

type SQLConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN"`
	SQLitePath  string `env:"SQLITE_PATH, default=users.db"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_TOPIC, default=user_notifications"`
}

// IsDevelopment reports whether human-readable logs should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load applies .env (if any), reads the environment and validates the result.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if !domain.IsValidRole(c.Auth.DefaultRole) {
		errs = append(errs, fmt.Errorf("DEFAULT_USER_ROLE %q is not one of %s", c.Auth.DefaultRole, strings.Join(domain.Roles(), ", ")))
	}
	if c.NotifyWorkers < 0 {
		errs = append(errs, errors.New("NOTIFY_WORKERS must not be negative"))
	}
	if c.Auth.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must be positive"))
	}
	switch c.Store.Driver {
	case StoreMongo, StoreSQLite:
	case StorePostgres:
		if c.SQL.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of mongo, postgres, sqlite", c.Store.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
