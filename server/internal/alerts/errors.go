package alerts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/obsidianstack/synthetics/pkg/types"
)

// ErrAmbiguousRuleState is matched by errors reporting that more than one
// rule of a default kind exists.
var ErrAmbiguousRuleState = errors.New("alerts: ambiguous default rule state")

// AmbiguousRuleStateError reports that Count rules of Kind were found where
// at most one is expected. The reconciler does not pick one.
type AmbiguousRuleStateError struct {
	Kind  types.RuleKind
	Count int
}

func (e *AmbiguousRuleStateError) Error() string {
	return fmt.Sprintf("alerts: %d rules of type %s found, expected at most one", e.Count, e.Kind)
}

func (e *AmbiguousRuleStateError) Unwrap() error { return ErrAmbiguousRuleState }

// SetupError collects the per-kind failures of a paired reconciliation.
// Kinds absent from Errs succeeded.
type SetupError struct {
	Op   string
	Errs map[types.RuleKind]error
}

func (e *SetupError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "alerts: default alerts %s failed", e.Op)
	sep := ": "
	for _, k := range types.Kinds() {
		if err, ok := e.Errs[k]; ok {
			fmt.Fprintf(&b, "%s%s: %v", sep, k.Label(), err)
			sep = "; "
		}
	}
	return b.String()
}

// Unwrap returns the per-kind errors in kind order, so errors.Is and
// errors.As see every cause.
func (e *SetupError) Unwrap() []error {
	out := make([]error, 0, len(e.Errs))
	for _, k := range types.Kinds() {
		if err, ok := e.Errs[k]; ok {
			out = append(out, err)
		}
	}
	return out
}
