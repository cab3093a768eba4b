package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	RedisURL    string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	VerificationCodeTTL time.Duration
	VerifiedMarkerTTL   time.Duration
	PasswordResetTTL    time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	ResetBaseURL   string
	AllowedOrigins []string

	ServerPort  string
	Environment string
	LogLevel    string
	LogFormat   string
	BcryptCost  int
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrInvalidTokenTTL    = errors.New("invalid token TTL format")
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		// Empty SMTP_HOST means mail is logged instead of dispatched.
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvOrDefault("SMTP_PORT", "25"),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@jobtrack.local"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		ResetBaseURL:   getEnvOrDefault("RESET_BASE_URL", "http://localhost:3000"),
		AllowedOrigins: splitAndTrim(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		ServerPort:  getEnvOrDefault("SERVER_PORT", "8080"),
		Environment: getEnvOrDefault("ENV", "development"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "json"),
		BcryptCost:  getEnvOrDefaultInt("BCRYPT_COST", 10),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	// Lifetimes are configured in seconds. Defaults: access 1 hour,
	// refresh 14 days, one-time codes 10 minutes, verified marker 24
	// hours. Changing these never invalidates already-issued tokens,
	// decode only checks the expiry embedded at issuance.
	var err error
	if cfg.AccessTokenTTL, err = parseTTL(getEnvOrDefault("JWT_ACCESS_TOKEN_TTL", "3600")); err != nil {
		return nil, ErrInvalidTokenTTL
	}
	if cfg.RefreshTokenTTL, err = parseTTL(getEnvOrDefault("JWT_REFRESH_TOKEN_TTL", "1209600")); err != nil {
		return nil, ErrInvalidTokenTTL
	}
	if cfg.VerificationCodeTTL, err = parseTTL(getEnvOrDefault("EMAIL_VERIFICATION_TTL", "600")); err != nil {
		return nil, ErrInvalidTokenTTL
	}
	if cfg.VerifiedMarkerTTL, err = parseTTL(getEnvOrDefault("EMAIL_VERIFIED_MARKER_TTL", "86400")); err != nil {
		return nil, ErrInvalidTokenTTL
	}
	if cfg.PasswordResetTTL, err = parseTTL(getEnvOrDefault("PASSWORD_RESET_TTL", "600")); err != nil {
		return nil, ErrInvalidTokenTTL
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func splitAndTrim(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func parseTTL(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0, ErrInvalidTokenTTL
	}
	return time.Duration(seconds) * time.Second, nil
}
