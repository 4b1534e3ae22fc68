package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from environment variables, loading a
// local .env file first if one exists. Unset variables leave the current
// values untouched.
//
// Recognized variables:
//
//	ADDRESS       bind address (e.g. ":8080")
//	DATABASE_DSN  PostgreSQL DSN
//	JWT_SECRET    HMAC secret for signing tokens
//	CORS_ORIGINS  comma-separated list of allowed origins
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("ADDRESS"); v != "" {
		cfg.EndpointAddr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = strings.Split(v, ",")
	}
}
