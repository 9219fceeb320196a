package config

import (
	"flag"
	"io"
	"os"

	"github.com/streetcredrx/credauth/internal/flagx"
)

// parseFlags overlays cfg with command-line flags:
//
//	-a string   HTTP listen address (e.g. ":8080")
//	-d string   Postgres DSN
//	-s string   JWT secret
//	-e string   environment (production | development)
//	-r string   Redis address for rate limiting
//	-m          apply embedded migrations at startup (use -m or -m=true)
func parseFlags(cfg *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-e", "-r", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrHTTP, "a", cfg.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "JWT secret key")
	fs.StringVar(&cfg.Env, "e", cfg.Env, "environment")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address")
	fs.BoolVar(&cfg.RunMigrations, "m", cfg.RunMigrations, "run migrations")

	return fs.Parse(args)
}
