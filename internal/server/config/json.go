package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/streetcredrx/credauth/internal/flagx"
	"github.com/streetcredrx/credauth/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling. Zero values leave the current
// setting untouched.
type JsonConfig struct {
	Env                string         `json:"env"`
	EndpointAddrHTTP   string         `json:"endpoint_addr_http"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	DefaultTokenTTL    timex.Duration `json:"default_token_ttl"`
	RememberMeTokenTTL timex.Duration `json:"remember_me_token_ttl"`
	BcryptCost         int            `json:"bcrypt_cost"`
	DBMaxOpenConns     int            `json:"db_max_open_conns"`
	DBConnectTimeout   timex.Duration `json:"db_connect_timeout"`
	DBIdleTimeout      timex.Duration `json:"db_idle_timeout"`
	RunMigrations      bool           `json:"run_migrations"`
	RedisAddr          string         `json:"redis_addr"`
	RateLimit          int            `json:"rate_limit"`
	RateLimitWindow    timex.Duration `json:"rate_limit_window"`
	TrustedProxies     []string       `json:"trusted_proxies"`
}

func parseJson(cfg *Config) error {
	path := flagx.ConfigFile()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	jc.apply(cfg)
	return nil
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.Env, jc.Env)
	setString(&cfg.EndpointAddrHTTP, jc.EndpointAddrHTTP)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.SecretKey, jc.SecretKey)
	setString(&cfg.RedisAddr, jc.RedisAddr)

	if jc.DefaultTokenTTL.Duration > 0 {
		cfg.DefaultTokenTTL = jc.DefaultTokenTTL.Duration
	}
	if jc.RememberMeTokenTTL.Duration > 0 {
		cfg.RememberMeTokenTTL = jc.RememberMeTokenTTL.Duration
	}
	if jc.DBConnectTimeout.Duration > 0 {
		cfg.DBConnectTimeout = jc.DBConnectTimeout.Duration
	}
	if jc.DBIdleTimeout.Duration > 0 {
		cfg.DBIdleTimeout = jc.DBIdleTimeout.Duration
	}
	if jc.RateLimitWindow.Duration > 0 {
		cfg.RateLimitWindow = jc.RateLimitWindow.Duration
	}
	if jc.BcryptCost > 0 {
		cfg.BcryptCost = jc.BcryptCost
	}
	if jc.DBMaxOpenConns > 0 {
		cfg.DBMaxOpenConns = jc.DBMaxOpenConns
	}
	if jc.RateLimit > 0 {
		cfg.RateLimit = jc.RateLimit
	}
	if len(jc.TrustedProxies) > 0 {
		cfg.TrustedProxies = jc.TrustedProxies
	}
	if jc.RunMigrations {
		cfg.RunMigrations = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
