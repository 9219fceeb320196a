// Package config loads the server and serverless-function configuration.
//
// Sources, later ones winning:
//
//  1. defaults (LoadDefaults)
//  2. JSON file given with -c or -config
//  3. environment, after loading an optional dotenv file (-env, else .env)
//  4. command-line flags
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/streetcredrx/credauth/internal/common"
	"github.com/streetcredrx/credauth/internal/cryptox"
	"github.com/streetcredrx/credauth/internal/dbx"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// DevSecretKey signs tokens when no secret is configured outside
// production. Tokens signed with it are forgeable by anyone who has read
// this file.
const DevSecretKey = "development-secret-change-me"

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")
	ErrInsecureSecret     = errors.New("JWT_SECRET must be set to a non-default value in production")
	ErrUnknownEnv         = errors.New("APP_ENV must be production or development")
)

type Config struct {
	Env              string
	EndpointAddrHTTP string
	DatabaseDSN      string
	SecretKey        string
	// InsecureSecret is set when SecretKey fell back to DevSecretKey.
	InsecureSecret bool

	DefaultTokenTTL    time.Duration
	RememberMeTokenTTL time.Duration
	BcryptCost         int

	DBMaxOpenConns   int
	DBConnectTimeout time.Duration
	DBIdleTimeout    time.Duration
	RunMigrations    bool

	// RedisAddr enables rate limiting of login and signup when set.
	RedisAddr       string
	RateLimit       int
	RateLimitWindow time.Duration
	// TrustedProxies lists CIDRs whose X-Forwarded-For is believed when
	// identifying clients. Empty means the socket address is used.
	TrustedProxies []string
	trustedNets    []*net.IPNet
}

func (c *Config) LoadDefaults() {
	pool := dbx.DefaultPoolOptions()

	c.Env = EnvProduction
	c.EndpointAddrHTTP = ":8080"
	c.DefaultTokenTTL = common.DefaultSessionDuration
	c.RememberMeTokenTTL = common.RememberMeDuration
	c.BcryptCost = cryptox.DefaultCost
	c.DBMaxOpenConns = pool.MaxOpenConns
	c.DBConnectTimeout = pool.ConnectTimeout
	c.DBIdleTimeout = pool.IdleTimeout
	c.RateLimit = 10
	c.RateLimitWindow = time.Minute
}

// DevMode reports whether error details may be returned to clients.
func (c *Config) DevMode() bool {
	return c.Env == EnvDevelopment
}

// PoolOptions returns the database pool bounds.
func (c *Config) PoolOptions() dbx.PoolOptions {
	return dbx.PoolOptions{
		MaxOpenConns:   c.DBMaxOpenConns,
		ConnectTimeout: c.DBConnectTimeout,
		IdleTimeout:    c.DBIdleTimeout,
	}
}

// TrustedProxyNets returns TrustedProxies as parsed by validate.
func (c *Config) TrustedProxyNets() []*net.IPNet {
	return c.trustedNets
}

// LoadConfig builds the configuration from every source and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env != EnvProduction && c.Env != EnvDevelopment {
		return fmt.Errorf("%w, got %q", ErrUnknownEnv, c.Env)
	}
	if c.DatabaseDSN == "" {
		return ErrMissingDatabaseURL
	}

	c.trustedNets = nil
	for _, cidr := range c.TrustedProxies {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
		c.trustedNets = append(c.trustedNets, n)
	}

	if c.SecretKey == "" || c.SecretKey == DevSecretKey {
		if c.Env == EnvProduction {
			return ErrInsecureSecret
		}
		c.SecretKey = DevSecretKey
		c.InsecureSecret = true
	}
	return nil
}
