package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yashrajoria/management-backend/database"
	aws_pkg "github.com/yashrajoria/management-backend/pkg/aws"
	"github.com/yashrajoria/management-backend/services"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
	RedisURL         string

	JWTSecret              string
	JWTIssuer              string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	PasswordResetTTL       time.Duration
	PermissionCacheTTL     time.Duration
	SeedRBAC               bool
	AllowedOrigins         []string
	RateLimitPerMinute     int
	RateLimitBurst         int
	RequestTimeout         time.Duration
	StockEventsTopicArn    string
	AuthEventsTopicArn     string
	KafkaBrokers           []string
	OrderEventsTopic       string
	PaymentEventsQueueURL  string
	CloudWatchEnabled      bool
	CloudWatchNamespace    string
	CloudWatchLogGroup     string
	ExportBucket           string
	ExportPrefix           string
	ExportLinkTTL          time.Duration
	S3UsePathStyle         bool
	UseSecretsManager      bool
	SecretsDBCredentialsID string
	SecretsJWTSecretID     string
}

// SecretFetcher reads one secret string by id.
type SecretFetcher interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// LoadConfig reads .env when present and then the process environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		RedisURL:         os.Getenv("REDIS_URL"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          getEnv("JWT_ISSUER", "management-backend"),
		AccessTokenTTL:     time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,
		RefreshTokenTTL:    time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		PasswordResetTTL:   time.Duration(getEnvInt("PASSWORD_RESET_EXPIRE_MINUTES", 30)) * time.Minute,
		PermissionCacheTTL: time.Duration(getEnvInt("PERMISSION_CACHE_TTL_SECONDS", 60)) * time.Second,
		SeedRBAC:           getEnvBool("SEED_RBAC", true),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 50),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,

		StockEventsTopicArn:   os.Getenv("STOCK_EVENTS_TOPIC_ARN"),
		AuthEventsTopicArn:    os.Getenv("AUTH_SNS_TOPIC_ARN"),
		KafkaBrokers:          splitList(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic:      getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		PaymentEventsQueueURL: os.Getenv("PAYMENT_EVENTS_QUEUE_URL"),

		CloudWatchEnabled:   getEnvBool("CLOUDWATCH_ENABLED", false),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "ManagementBackend"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/management-backend"),

		ExportBucket:   os.Getenv("EXPORT_BUCKET"),
		ExportPrefix:   getEnv("EXPORT_PREFIX", "exports/"),
		ExportLinkTTL:  time.Duration(getEnvInt("EXPORT_LINK_TTL_MINUTES", 15)) * time.Minute,
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),

		UseSecretsManager:      getEnvBool("AWS_USE_SECRETS", false),
		SecretsDBCredentialsID: getEnv("SECRETS_DB_CREDENTIALS_ID", "management/DB_CREDENTIALS"),
		SecretsJWTSecretID:     getEnv("SECRETS_JWT_SECRET_ID", "management/JWT_SECRET"),
	}
}

// ApplySecrets overrides database credentials and the JWT secret with the
// values stored in Secrets Manager. Missing or unreadable secrets leave the
// environment values in place.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretFetcher) {
	if dbjson, err := sm.GetSecret(ctx, c.SecretsDBCredentialsID); err == nil && dbjson != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(dbjson), &m); err == nil {
			override(&c.PostgresUser, m["POSTGRES_USER"])
			override(&c.PostgresPassword, m["POSTGRES_PASSWORD"])
			override(&c.PostgresDB, m["POSTGRES_DB"])
			override(&c.PostgresHost, m["POSTGRES_HOST"])
			override(&c.PostgresPort, m["POSTGRES_PORT"])
		}
	}

	if secret, err := sm.GetSecret(ctx, c.SecretsJWTSecretID); err == nil && secret != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(secret), &m); err == nil {
			override(&c.JWTSecret, m["JWT_SECRET"])
		} else {
			c.JWTSecret = strings.TrimSpace(secret)
		}
	}
}

func (c *Config) Validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return errors.New("database config incomplete")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.PasswordResetTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSLMode,
		TimeZone: c.PostgresTimeZone,
	}
}

func (c *Config) Tokens() services.TokenConfig {
	return services.TokenConfig{
		Secret:     c.JWTSecret,
		Issuer:     c.JWTIssuer,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func loadSecrets(ctx context.Context, cfg *Config) error {
	awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
	if err != nil {
		return err
	}
	cfg.ApplySecrets(ctx, aws_pkg.NewSecretsClient(awsCfg))
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
