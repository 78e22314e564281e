package alerts

import (
	"errors"
	"strings"
	"testing"

	"github.com/obsidianstack/synthetics/pkg/types"
)

func TestSetupError_Message(t *testing.T) {
	err := &SetupError{Op: "setup", Errs: map[types.RuleKind]error{
		types.KindTLS:    errors.New("tls broke"),
		types.KindStatus: errors.New("status broke"),
	}}
	msg := err.Error()
	// Kinds appear in fixed order regardless of map iteration.
	if !strings.Contains(msg, "status: status broke; tls: tls broke") {
		t.Errorf("Error(): got %q", msg)
	}
	if n := len(err.Unwrap()); n != 2 {
		t.Errorf("Unwrap: got %d errors, want 2", n)
	}
}

func TestSetupError_AsAmbiguous(t *testing.T) {
	err := error(&SetupError{Op: "update", Errs: map[types.RuleKind]error{
		types.KindStatus: &AmbiguousRuleStateError{Kind: types.KindStatus, Count: 3},
	}})
	var amb *AmbiguousRuleStateError
	if !errors.As(err, &amb) || amb.Count != 3 {
		t.Errorf("errors.As: got %v", amb)
	}
	if !errors.Is(err, ErrAmbiguousRuleState) {
		t.Error("errors.Is(ErrAmbiguousRuleState): got false")
	}
}
