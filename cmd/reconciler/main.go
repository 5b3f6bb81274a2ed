package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/invoice-reconciler/internal/app"
	"github.com/josh-kwaku/invoice-reconciler/internal/config"
	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
)

var Version = "dev"

type rootOptions struct {
	output string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "reconciler",
		Short:         "Operate invoice/payment matching and reconciliation runs",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutput(opts.output)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputJSON, "Output format (json, yaml)")

	rootCmd.AddCommand(matchCmd(opts))
	rootCmd.AddCommand(validateCmd(opts))
	rootCmd.AddCommand(reconcileCmd(opts))
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}

// loadConfig reads configuration and points the process logger at stderr so
// stdout carries only command output.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(os.Stderr, "reconciler-cli", cfg.LogLevel, cfg.AppEnv)
	return cfg, nil
}

func connect(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return a, nil
}
