// main.go - admin control tool for pulseboard
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pulseboard/internal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "pulsectl",
		Short:         "Manage a pulseboard installation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")

	root.AddCommand(
		newMigrateCmd(),
		newSiteCmd(),
		newSeedCmd(),
		newStatsCmd(),
	)
	return root
}

// withApp builds the application, runs fn and releases storage. The HTTP
// server is never started.
func withApp(fn func(app *internal.Application) error) error {
	app, err := internal.NewApp()
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *internal.Application) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed")
				return nil
			})
		},
	}
}
