package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand builds the workshop command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&cli{})
}

func newRootCommand(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "workshop",
		Short: "Publish and update workshop items",
		Long: `Workshop uploader

Publishes single files (legacy mode) or whole directories to an application's
workshop, updates existing items and inspects what a user has published.

Uses an in-memory platform emulator by default. Set DATABASE_URL and
STORAGE_URL to keep the catalog between runs.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&c.envFile, "env-file", "", "dotenv file to load (default: .env when present)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "text or json")
	rootCmd.PersistentFlags().StringVarP(&c.user, "user", "u", "", "identity owning published items")

	rootCmd.AddCommand(newUploadCommand(c))
	rootCmd.AddCommand(newDownloadCommand(c))
	rootCmd.AddCommand(newItemsCommand(c))
	rootCmd.AddCommand(newPurgeCommand(c))
	rootCmd.AddCommand(newServeCommand(c))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "workshop %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
