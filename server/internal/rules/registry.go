package rules

import (
	"context"
	"errors"

	"github.com/obsidianstack/synthetics/pkg/types"
)

var (
	// ErrNotFound is returned when a rule id does not exist.
	ErrNotFound = errors.New("rules: rule not found")

	// ErrConflict is returned when a create would violate the
	// one-default-rule-per-kind constraint.
	ErrConflict = errors.New("rules: conflicting rule")
)

// FindOptions selects a page of rules. RuleTypeID is an exact match;
// an empty RuleTypeID matches every rule. Page is 1-based.
type FindOptions struct {
	RuleTypeID string
	Page       int
	PerPage    int
}

// FindResult is one page of a Find call. Total counts every match, not
// only those on the page.
type FindResult struct {
	Data    []*types.Rule
	Total   int
	Page    int
	PerPage int
}

// Definition is the full body of a new rule.
type Definition struct {
	RuleTypeID string
	Name       string
	Consumer   string
	Schedule   types.Schedule
	Tags       []string
	Enabled    bool
	Throttle   *string
	NotifyWhen string
	Params     map[string]any
	Actions    []types.Action
}

// Patch is the body of an update. Every field replaces the stored value.
type Patch struct {
	Name       string
	Tags       []string
	Schedule   types.Schedule
	Params     map[string]any
	NotifyWhen string
	Actions    []types.Action
}

// Registry stores rule definitions.
type Registry interface {
	Find(ctx context.Context, opts FindOptions) (*FindResult, error)
	Get(ctx context.Context, id string) (*types.Rule, error)
	Create(ctx context.Context, def Definition) (*types.Rule, error)
	Update(ctx context.Context, id string, p Patch) (*types.Rule, error)
}

// AtomicCreator is implemented by registries that can create a default rule
// conditionally. CreateIfAbsent returns the existing default rule of
// def.RuleTypeID with created=false when one exists, or inserts def and
// returns it with created=true. The check and the insert are atomic.
type AtomicCreator interface {
	CreateIfAbsent(ctx context.Context, def Definition) (rule *types.Rule, created bool, err error)
}

// normalizePage applies defaults to paging options.
func normalizePage(opts FindOptions) (page, perPage int) {
	page, perPage = opts.Page, opts.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	return page, perPage
}

// isDefault reports whether tags carry the default marker.
func isDefault(tags []string) bool {
	for _, t := range tags {
		if t == types.DefaultAlertTag {
			return true
		}
	}
	return false
}
