// Package config loads application configuration from environment
// variables.  Each concern has its own Load function so components can
// be configured independently; cmd/server loads a .env file first when
// one is present.
package config

import (
	"errors"
	"fmt"
	"os"
)

// Config holds the process-level settings: environment, HTTP port,
// database coordinates and token signing.
type Config struct {
	Env          string // application environment (dev, test, prod)
	Port         string // HTTP port to listen on
	DBUser       string
	DBPass       string // may be empty
	DBHost       string
	DBPort       string
	DBName       string
	DBMigrate    bool   // apply the schema on start
	DBMaxConns   int    // pool size; idle connections are capped to the same
	JWTSecret    string // HMAC secret shared with the token issuer
	AccessTTLMin int    // default lifetime of minted service tokens
}

// Load reads the required process settings.  Every missing or malformed
// variable is reported in the returned error.
func Load() (Config, error) {
	var r required
	cfg := Config{
		Env:          r.str("APP_ENV"),
		Port:         r.str("APP_PORT"),
		DBUser:       r.str("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       r.str("DB_HOST"),
		DBPort:       r.str("DB_PORT"),
		DBName:       r.str("DB_NAME"),
		DBMigrate:    envBool("DB_MIGRATE", false),
		DBMaxConns:   envInt("DB_MAX_CONNS", 25),
		JWTSecret:    r.str("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 15),
	}
	return cfg, r.err()
}

// required collects failures so that a misconfigured deployment learns
// about every missing variable at once.
type required struct {
	errs []error
}

func (r *required) str(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.errs = append(r.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (r *required) err() error {
	return errors.Join(r.errs...)
}
