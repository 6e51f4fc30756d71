package userservice

import (
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Config carries everything the server and worker binaries need. Values come
// from the environment; godotenv loads a local .env file first in dev.
type Config struct {
	ServerAddr  string
	DatabaseDSN string

	GatewayHMACSecret  string
	SignatureTolerance time.Duration

	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	TokenExpiration time.Duration

	IdempotencyCacheTTL  time.Duration
	IdempotencyRetention time.Duration

	AWSRegion        string
	ActivityQueueURL string
	EventsQueueURL   string
}

// NewConfigFromEnv reads configuration from the process environment.
func NewConfigFromEnv() Config {
	return Config{
		ServerAddr:  envString("SERVER_ADDR", ":8080"),
		DatabaseDSN: envString("DATABASE_DSN", ""),

		GatewayHMACSecret:  envString("GATEWAY_HMAC_SECRET", ""),
		SignatureTolerance: envDuration("GATEWAY_SIGNATURE_TOLERANCE", DefaultSignatureTolerance),

		JWTSigningKey:   envString("JWT_SIGNING_KEY", ""),
		JWTIssuer:       envString("JWT_ISSUER", "user-service"),
		JWTAudience:     envString("JWT_AUDIENCE", ""),
		TokenExpiration: envDuration("TOKEN_EXPIRATION", 24*time.Hour),

		IdempotencyCacheTTL:  envDuration("IDEMPOTENCY_CACHE_TTL", DefaultIdempotencyCacheTTL),
		IdempotencyRetention: envDuration("IDEMPOTENCY_RETENTION", DefaultIdempotencyRetention),

		AWSRegion:        envString("AWS_REGION", "us-east-1"),
		ActivityQueueURL: envString("ACTIVITY_QUEUE_URL", ""),
		EventsQueueURL:   envString("EVENTS_QUEUE_URL", ""),
	}
}

// Validate checks the fields every deployment must set.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ServerAddr, validation.Required),
		validation.Field(&c.DatabaseDSN, validation.Required),
		validation.Field(&c.GatewayHMACSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.JWTSigningKey, validation.Required, validation.Length(16, 0)),
	)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	if d, err := time.ParseDuration(v); err == nil {
		return d
	}

	// plain integers read as seconds
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}

	return fallback
}
