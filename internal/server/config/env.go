package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/streetcredrx/credauth/internal/flagx"
)

// lookupEnv is a seam for tests.
var lookupEnv = os.LookupEnv

// loadDotenv loads the dotenv file named by -env, or ./.env when present.
// Variables already set in the process environment are not overridden.
func loadDotenv() error {
	path := flagx.EnvFile()
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays cfg with environment variables:
//
//	APP_ENV             production | development
//	PORT                HTTP port of the long-running server
//	DATABASE_URL        Postgres connection string (NEON_DATABASE_URL is accepted too)
//	JWT_SECRET          token signing secret
//	DB_MIGRATE          apply embedded migrations at startup
//	REDIS_ADDR          enables login/signup rate limiting
//	LOGIN_RATE_LIMIT    requests per window and client
//	LOGIN_RATE_WINDOW   window length, e.g. "1m"
//	TRUSTED_PROXIES     comma-separated CIDRs allowed to set X-Forwarded-For
func parseEnv(cfg *Config) error {
	if err := loadDotenv(); err != nil {
		return err
	}

	envString(&cfg.Env, "APP_ENV")
	if port, ok := lookupEnv("PORT"); ok && port != "" {
		cfg.EndpointAddrHTTP = ":" + port
	}
	envString(&cfg.DatabaseDSN, "NEON_DATABASE_URL")
	envString(&cfg.DatabaseDSN, "DATABASE_URL")
	envString(&cfg.SecretKey, "JWT_SECRET")
	envString(&cfg.RedisAddr, "REDIS_ADDR")
	if v, ok := lookupEnv("TRUSTED_PROXIES"); ok && v != "" {
		cfg.TrustedProxies = strings.Split(v, ",")
	}

	if err := envBool(&cfg.RunMigrations, "DB_MIGRATE"); err != nil {
		return err
	}
	if err := envInt(&cfg.RateLimit, "LOGIN_RATE_LIMIT"); err != nil {
		return err
	}
	return envDuration(&cfg.RateLimitWindow, "LOGIN_RATE_WINDOW")
}

func envString(dst *string, key string) {
	if v, ok := lookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envBool(dst *bool, key string) error {
	v, ok := lookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envInt(dst *int, key string) error {
	v, ok := lookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v, ok := lookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
