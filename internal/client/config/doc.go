// Package config loads the settings of the credauth CLI.
//
// Sources, later ones winning:
//
//  1. defaults (LoadDefaults)
//  2. JSON file given with --config
//  3. environment, after loading an optional dotenv file (--env-file, else .env)
//  4. command-line flags (Flags)
//
// JSON example; durations are strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://example.org/.netlify/functions",
//	  "state_dir": "/home/ann/.credauth",
//	  "request_timeout": "10s"
//	}
//
// Environment: CREDAUTH_SERVER_URL, CREDAUTH_STATE_DIR, CREDAUTH_TIMEOUT.
package config
