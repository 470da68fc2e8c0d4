package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/diabolofocus/form-displays-sub000/internal/app"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
	"github.com/diabolofocus/form-displays-sub000/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "form-displays",
		Short:         "Form submissions dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv("CONFIG_FILE", configFile)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "seed FILE",
			Short: "Load forms and submissions from a YAML fixture",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return seed(cmd.Context(), args[0])
			},
		},
		newTokenCmd(),
	)
	return root
}

func serve(ctx context.Context) error {
	a, err := app.New(ctx)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer closeApp(a)

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	return a.Run(ctx)
}

func seed(ctx context.Context, path string) error {
	data, err := app.LoadSeedFile(path)
	if err != nil {
		return err
	}
	a, err := app.New(ctx)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer closeApp(a)
	return app.ApplySeed(ctx, a.Log, a.Repos, data)
}

// newTokenCmd issues a caller token signed with the configured secret, for
// local testing against a protected API.
func newTokenCmd() *cobra.Command {
	var callerID, instanceID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a caller token signed with JWT_SECRET_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Nop()
			cfg, err := app.LoadConfig(log)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET_KEY is not set")
			}
			token, err := services.NewAuthService(log, cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL).
				IssueToken(callerID, instanceID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&callerID, "caller", "local-dev", "caller id (token subject)")
	cmd.Flags().StringVar(&instanceID, "instance", "", "instance id claim")
	return cmd
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Close(ctx)
}
