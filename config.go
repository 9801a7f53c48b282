package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	aws_pkg "github.com/gonzalo-olmedo/comicstore/pkg/aws"
)

const (
	dbSecretName  = "comicstore/DB_CREDENTIALS"
	jwtSecretName = "comicstore/JWT_SECRET"
)

// Config holds all configuration for the comic store service.
type Config struct {
	Port   string
	AppEnv string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	S3Bucket    string
	S3Prefix    string
	S3Endpoint  string
	CDNDomain   string
	OrderTopic  string
	CloudWatch  bool
	LogGroup    string
	MetricsNS   string
	UseSecrets  bool
	CORSOrigins []string

	DefaultRole   string
	AdminEmail    string
	AdminPassword string
}

// SecretGetter is the part of the Secrets Manager client config needs.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// LoadConfig reads configuration from the environment (and a .env file when
// present), with an optional Secrets Manager override.
func LoadConfig(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:   getEnv("PORT", "8000"),
		AppEnv: getEnv("APP_ENV", "development"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:      getDuration("CACHE_TTL", 10*time.Minute),

		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Prefix:    getEnv("S3_PREFIX", "products/"),
		S3Endpoint:  os.Getenv("AWS_S3_ENDPOINT"),
		CDNDomain:   os.Getenv("CDN_DOMAIN"),
		OrderTopic:  os.Getenv("ORDER_EVENTS_TOPIC_ARN"),
		CloudWatch:  getBool("CLOUDWATCH_ENABLED", false),
		LogGroup:    getEnv("CLOUDWATCH_LOG_GROUP", "/comicstore/api"),
		MetricsNS:   getEnv("CLOUDWATCH_NAMESPACE", "ComicStore"),
		UseSecrets:  getBool("AWS_USE_SECRETS", false),
		CORSOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),

		DefaultRole:   getEnv("DEFAULT_ROLE", "customer"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	// Override credentials from Secrets Manager when running on AWS
	if cfg.UseSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			logger.Warn("AWS config unavailable, skipping Secrets Manager", zap.Error(err))
		} else {
			cfg.applySecrets(context.Background(), aws_pkg.NewSecretsClient(awsCfg), logger)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applySecrets(ctx context.Context, sm SecretGetter, logger *zap.Logger) {
	if dbjson, err := sm.GetSecret(ctx, dbSecretName); err == nil && dbjson != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(dbjson), &m); err != nil {
			logger.Warn("Malformed database secret", zap.String("secret", dbSecretName), zap.Error(err))
		} else {
			override(&c.PostgresUser, m["POSTGRES_USER"])
			override(&c.PostgresPassword, m["POSTGRES_PASSWORD"])
			override(&c.PostgresDB, m["POSTGRES_DB"])
			override(&c.PostgresHost, m["POSTGRES_HOST"])
			override(&c.PostgresPort, m["POSTGRES_PORT"])
		}
	} else if err != nil {
		logger.Warn("Database secret unavailable", zap.String("secret", dbSecretName), zap.Error(err))
	}

	if v, err := sm.GetSecret(ctx, jwtSecretName); err == nil {
		override(&c.JWTSecret, v)
	} else {
		logger.Warn("JWT secret unavailable", zap.String("secret", jwtSecretName), zap.Error(err))
	}
}

func (c *Config) validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
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

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
