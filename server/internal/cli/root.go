// Package cli implements alertctl, a one-shot command line for the default
// alert reconciler.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/synthetics/pkg/types"
	"github.com/obsidianstack/synthetics/server/internal/alerts"
	"github.com/obsidianstack/synthetics/server/internal/app"
	"github.com/obsidianstack/synthetics/server/internal/config"
)

// Reconciler is the part of the default alert service the commands drive.
type Reconciler interface {
	SetupDefaultAlerts(ctx context.Context) (alerts.DefaultRules, error)
	UpdateDefaultAlerts(ctx context.Context) (alerts.DefaultRules, error)
	GetDefaultAlerts(ctx context.Context) (alerts.DefaultRules, error)
	GetAlertActions(ctx context.Context) ([]types.Action, error)
}

// OpenFunc builds a Reconciler for the options. The returned func releases it.
type OpenFunc func(ctx context.Context, opts *RootOptions) (Reconciler, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	open OpenFunc
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for alertctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{open: openService})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alertctl",
		Short: "Manage synthetics default alerts",
		Long: `Create, refresh and inspect the default synthetics alert rules
(monitor status and TLS certificate) against the configured rules registry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSetupCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewActionsCommand(opts))

	return cmd
}

// openService loads the config and wires the real service.
func openService(ctx context.Context, opts *RootOptions) (Reconciler, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load config", err)
	}
	a, err := app.Build(ctx, cfg.Server, newLogger(os.Stderr, opts.Verbose))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open registry", err)
	}
	return a.Service, a.Close, nil
}

// newLogger logs to w: debug and up when verbose, warnings and up otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
