package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the credauth CLI.
type Config struct {
	// ServerURL is the prefix the auth routes hang off.
	ServerURL string
	// StateDir holds the persistent session database.
	StateDir       string
	RequestTimeout time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080/api"
	c.StateDir = ".credauth"
	c.RequestTimeout = 10 * time.Second
}

// StateFile is the SQLite file of the persistent store inside dir.
func StateFile(dir string) string {
	return filepath.Join(dir, "state.db")
}

// Options names the files LoadConfig reads. Empty fields skip the JSON file
// and fall back to ./.env.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// LoadConfig applies defaults, then the JSON file, then the environment.
func LoadConfig(opts Options) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, opts.ConfigFile); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, opts.EnvFile); err != nil {
		return nil, err
	}
	return cfg, nil
}
