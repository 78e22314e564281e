package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/obsidianstack/synthetics/pkg/types"
	"github.com/obsidianstack/synthetics/server/internal/alerts"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Reconciliation failed for at least one rule kind
	ExitCommandError = 2 // Command error (bad flags, unreadable config, registry unreachable)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// rulesOutput is the JSON shape of setup, update and show.
type rulesOutput struct {
	Status  *types.Rule       `json:"status_rule"`
	TLS     *types.Rule       `json:"tls_rule"`
	Errors  map[string]string `json:"errors,omitempty"`
	Success bool              `json:"success"`
}

// writeRules prints the default rules in format and converts a reconciliation
// failure to an ExitError. Rules that succeeded are printed either way.
func writeRules(w io.Writer, format string, rules alerts.DefaultRules, err error) error {
	var setupErr *alerts.SetupError
	if err != nil && !errors.As(err, &setupErr) {
		return WrapExitError(ExitFailure, "default alerts", err)
	}

	if format == "json" {
		out := rulesOutput{Status: rules.Status, TLS: rules.TLS, Success: err == nil}
		if setupErr != nil {
			out.Errors = make(map[string]string, len(setupErr.Errs))
			for k, e := range setupErr.Errs {
				out.Errors[k.Label()] = e.Error()
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			return WrapExitError(ExitCommandError, "encode output", encErr)
		}
	} else {
		for _, k := range types.Kinds() {
			var kindErr error
			if setupErr != nil {
				kindErr = setupErr.Errs[k]
			}
			fmt.Fprintln(w, ruleLine(k, rules.Get(k), kindErr))
		}
	}

	if err != nil {
		return WrapExitError(ExitFailure, "default alerts", err)
	}
	return nil
}

func ruleLine(k types.RuleKind, r *types.Rule, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("%-6s ERROR    %v", k.Label(), err)
	case r == nil:
		return fmt.Sprintf("%-6s missing", k.Label())
	}
	ids := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		ids = append(ids, a.ID)
	}
	return fmt.Sprintf("%-6s %-8s %s %q every %s actions=[%s]",
		k.Label(), enabledLabel(r.Enabled), r.ID, r.Name, r.Schedule.Interval, strings.Join(ids, ","))
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

// writeActions prints the computed default actions.
func writeActions(w io.Writer, format string, actions []types.Action) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(actions); err != nil {
			return WrapExitError(ExitCommandError, "encode output", err)
		}
		return nil
	}
	if len(actions) == 0 {
		fmt.Fprintln(w, "no default connectors selected")
		return nil
	}
	for _, a := range actions {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.ConnectorTypeID, a.Group)
	}
	return nil
}
