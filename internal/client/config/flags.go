package config

import (
	"time"

	"github.com/spf13/cobra"
)

// Flags are the persistent flags of the CLI root command.
type Flags struct {
	ConfigFile string
	EnvFile    string
	ServerURL  string
	StateDir   string
	Timeout    time.Duration
}

// Register adds the flags to cmd and every subcommand.
func (f *Flags) Register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.ConfigFile, "config", "c", "", "JSON config file")
	pf.StringVar(&f.EnvFile, "env-file", "", "dotenv file (default ./.env when present)")
	pf.StringVarP(&f.ServerURL, "server", "s", "", "base URL of the auth API")
	pf.StringVar(&f.StateDir, "state-dir", "", "directory of the persistent session store")
	pf.DurationVar(&f.Timeout, "timeout", 0, "request timeout")
}

// Options returns the file locations given on the command line.
func (f *Flags) Options() Options {
	return Options{ConfigFile: f.ConfigFile, EnvFile: f.EnvFile}
}

// Apply overrides cfg with the flags the user actually set.
func (f *Flags) Apply(cmd *cobra.Command, cfg *Config) {
	fs := cmd.Flags()
	if fs.Changed("server") {
		cfg.ServerURL = f.ServerURL
	}
	if fs.Changed("state-dir") {
		cfg.StateDir = f.StateDir
	}
	if fs.Changed("timeout") {
		cfg.RequestTimeout = f.Timeout
	}
}
