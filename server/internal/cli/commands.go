package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/synthetics/server/internal/alerts"
)

// NewSetupCommand creates the setup command.
func NewSetupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create missing default alert rules",
		Long: `Create the status and TLS default rules if they do not exist.
Existing rules are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, rootOpts, Reconciler.SetupDefaultAlerts)
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Refresh the actions of the default alert rules",
		Long: `Recompute the default actions from the current connectors and
settings and write them to both default rules, creating any that are missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, rootOpts, Reconciler.UpdateDefaultAlerts)
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current default alert rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, rootOpts, Reconciler.GetDefaultAlerts)
		},
	}
}

// NewActionsCommand creates the actions command.
func NewActionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "Show the actions default rules would get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			svc, closeFn, err := rootOpts.open(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer closeFn()

			actions, err := svc.GetAlertActions(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "default actions", err)
			}
			return writeActions(cmd.OutOrStdout(), rootOpts.Format, actions)
		},
	}
}

func runRules(cmd *cobra.Command, opts *RootOptions, op func(Reconciler, context.Context) (alerts.DefaultRules, error)) error {
	ctx := commandContext(cmd)
	svc, closeFn, err := opts.open(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	rules, err := op(svc, ctx)
	return writeRules(cmd.OutOrStdout(), opts.Format, rules, err)
}

// commandContext returns the command's context, or Background when the
// command was run without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
