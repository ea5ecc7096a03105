package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "management")
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := LoadConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.PasswordResetTTL)
	assert.Equal(t, time.Minute, cfg.PermissionCacheTTL)
	assert.Equal(t, 100, cfg.RateLimitPerMinute)
	assert.Equal(t, 50, cfg.RateLimitBurst)
	assert.Equal(t, "order-events", cfg.OrderEventsTopic)
	assert.True(t, cfg.SeedRBAC)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("SEED_RBAC", "false")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.SeedRBAC)
	assert.Equal(t, 100, cfg.RateLimitPerMinute)
}

func TestValidateRejectsMissingSettings(t *testing.T) {
	setRequiredEnv(t)
	cfg := LoadConfig()
	cfg.JWTSecret = ""
	assert.EqualError(t, cfg.Validate(), "JWT_SECRET is required")

	cfg = LoadConfig()
	cfg.PostgresHost = ""
	assert.EqualError(t, cfg.Validate(), "database config incomplete")
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := f[name]
	if !ok {
		return "", errors.New("secret not found")
	}
	return v, nil
}

func TestApplySecrets(t *testing.T) {
	setRequiredEnv(t)
	cfg := LoadConfig()

	cfg.ApplySecrets(context.Background(), fakeSecrets{
		"management/DB_CREDENTIALS": `{"POSTGRES_PASSWORD":"rotated","POSTGRES_HOST":"db.internal"}`,
		"management/JWT_SECRET":     "from-secrets-manager\n",
	})

	assert.Equal(t, "app", cfg.PostgresUser)
	assert.Equal(t, "rotated", cfg.PostgresPassword)
	assert.Equal(t, "db.internal", cfg.PostgresHost)
	assert.Equal(t, "from-secrets-manager", cfg.JWTSecret)
}

func TestApplySecretsKeepsEnvWhenUnavailable(t *testing.T) {
	setRequiredEnv(t)
	cfg := LoadConfig()

	cfg.ApplySecrets(context.Background(), fakeSecrets{})

	assert.Equal(t, "secret", cfg.PostgresPassword)
	assert.Equal(t, "jwt-secret", cfg.JWTSecret)
}
