package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/streetcredrx/credauth/internal/client/config"
)

// AppBuilder constructs the App once configuration is known.
type AppBuilder func(ctx context.Context, cfg *config.Config) (*App, error)

type state struct {
	app *App
}

// NewRootCmd creates the root command
func NewRootCmd(build AppBuilder) *cobra.Command {
	var (
		flags config.Flags
		st    state
	)

	rootCmd := &cobra.Command{
		Use:           "credauth",
		Short:         "Sign in to the credentialing API from the terminal",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(flags.Options())
			if err != nil {
				return err
			}
			flags.Apply(cmd, cfg)

			st.app, err = build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return st.app.Restore(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return st.app.Close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.app.Shell(cmd.Context())
		},
	}
	flags.Register(rootCmd)

	rootCmd.AddCommand(
		newLoginCommand(&st),
		newSignupCommand(&st),
		newWhoAmICommand(&st),
		newLogoutCommand(&st),
	)

	return rootCmd
}

func newLoginCommand(st *state) *cobra.Command {
	var remember bool
	cmd := &cobra.Command{
		Use:   "login",
		Args:  cobra.NoArgs,
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.app.Login(cmd.Context(), remember)
		},
	}
	cmd.Flags().BoolVarP(&remember, "remember", "r", false, "keep the session for 30 days")
	return cmd
}

func newSignupCommand(st *state) *cobra.Command {
	var remember bool
	cmd := &cobra.Command{
		Use:     "signup",
		Aliases: []string{"register"},
		Args:    cobra.NoArgs,
		Short:   "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.app.Signup(cmd.Context(), remember)
		},
	}
	cmd.Flags().BoolVarP(&remember, "remember", "r", false, "keep the session for 30 days")
	return cmd
}

func newWhoAmICommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Aliases: []string{"me"},
		Args:    cobra.NoArgs,
		Short:   "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.app.WhoAmI(cmd.Context())
		},
	}
}

func newLogoutCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Args:  cobra.NoArgs,
		Short: "Forget the session on this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.app.Logout(cmd.Context())
		},
	}
}
