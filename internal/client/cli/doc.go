// Package cli provides the credauth command-line client.
//
// Every command restores the stored session first: an expired remember-me
// session is purged and the cached user is refreshed from the server. Run
// without a subcommand it starts an interactive shell; sessions created
// there without --remember live only as long as the shell.
//
// Commands: login, signup, whoami, logout.
package cli
