package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "user", cfg.Auth.DefaultRole)
	assert.True(t, cfg.Auth.AllowRegistration)
	assert.Equal(t, time.Hour, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, "http://localhost:5173/reset-password", cfg.Auth.ResetURL())
	assert.Equal(t, StoreMongo, cfg.Store.Driver)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "user_notifications", cfg.Kafka.Topic)
	assert.Zero(t, cfg.NotifyWorkers)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":         "s3cret",
		"JWT_TTL":            "2h",
		"ENV":                "production",
		"DEFAULT_USER_ROLE":  "guest",
		"ALLOW_REGISTRATION": "false",
		"FRONTEND_URL":       "https://app.example.com/",
		"STORE_DRIVER":       "postgres",
		"POSTGRES_DSN":       "postgres://u:p@db/users",
		"REDIS_ADDR":         "redis:6379",
		"KAFKA_BROKERS":      "k1:9092,k2:9092",
	}))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "guest", cfg.Auth.DefaultRole)
	assert.False(t, cfg.Auth.AllowRegistration)
	assert.Equal(t, "https://app.example.com/reset-password", cfg.Auth.ResetURL())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":       {},
		"unknown role":         {"JWT_SECRET": "x", "DEFAULT_USER_ROLE": "root"},
		"unknown driver":       {"JWT_SECRET": "x", "STORE_DRIVER": "cassandra"},
		"postgres without dsn": {"JWT_SECRET": "x", "STORE_DRIVER": "postgres"},
		"bad duration":         {"JWT_SECRET": "x", "JWT_TTL": "forever"},
		"negative workers":     {"JWT_SECRET": "x", "NOTIFY_WORKERS": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
