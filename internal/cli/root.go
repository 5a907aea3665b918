// Package cli implements ledgerctl, the operator command line for the token
// ledger. It drives the same services as the HTTP API.
package cli

import (
	"context"
	"fmt"
	"io"

	"token-ledger/config"
	"token-ledger/internal/app"
	"token-ledger/pkg/logger"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Loader builds the engine a command runs against.
type Loader func(ctx context.Context, opts *RootOptions, stderr io.Writer) (*app.App, error)

// DefaultLoader reads configuration and connects to the configured store.
// Logs go to stderr so they never mix with command output.
func DefaultLoader(ctx context.Context, opts *RootOptions, stderr io.Writer) (*app.App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	return app.Build(ctx, cfg, logger.NewWithWriter(level, stderr))
}

// NewRootCommand creates the root command for ledgerctl.
func NewRootCommand(load Loader) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the token ledger",
		Long:  "Review point exchange requests, export ledger history and send alerts against the configured store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (defaults to ./config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRequestsCommand(opts, load))
	cmd.AddCommand(NewTransactionsCommand(opts, load))
	cmd.AddCommand(NewStatsCommand(opts, load))
	cmd.AddCommand(NewAlertsCommand(opts, load))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withApp loads the engine, runs fn and releases the engine's connections.
func withApp(cmd *cobra.Command, opts *RootOptions, load Loader, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := load(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize ledger", err)
	}
	defer a.Close()
	return fn(ctx, a)
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
