package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// lookupEnv is a seam for tests.
var lookupEnv = os.LookupEnv

func parseEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if v, ok := lookupEnv("CREDAUTH_SERVER_URL"); ok && v != "" {
		cfg.ServerURL = v
	}
	if v, ok := lookupEnv("CREDAUTH_STATE_DIR"); ok && v != "" {
		cfg.StateDir = v
	}
	if v, ok := lookupEnv("CREDAUTH_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CREDAUTH_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	return nil
}
