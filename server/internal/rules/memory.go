package rules

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/synthetics/pkg/types"
)

// Memory is a thread-safe in-memory Registry keyed by rule id.
// Find returns rules ordered by creation time.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]*types.Rule
	order []string
	now   func() time.Time // injectable for deterministic tests
}

// NewMemory creates an empty Memory registry.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]*types.Rule),
		now:  time.Now,
	}
}

// Find returns the requested page of rules whose rule-type id equals
// opts.RuleTypeID.
func (m *Memory) Find(_ context.Context, opts FindOptions) (*FindResult, error) {
	page, perPage := normalizePage(opts)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []*types.Rule
	for _, id := range m.order {
		r := m.data[id]
		if opts.RuleTypeID == "" || r.RuleTypeID == opts.RuleTypeID {
			matches = append(matches, r)
		}
	}

	res := &FindResult{Total: len(matches), Page: page, PerPage: perPage, Data: []*types.Rule{}}
	start := (page - 1) * perPage
	if start >= len(matches) {
		return res, nil
	}
	end := start + perPage
	if end > len(matches) {
		end = len(matches)
	}
	for _, r := range matches[start:end] {
		res.Data = append(res.Data, cloneRule(r))
	}
	return res, nil
}

// Get returns a copy of the rule with the given id.
func (m *Memory) Get(_ context.Context, id string) (*types.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRule(r), nil
}

// Create stores a new rule. A second default rule of the same kind is
// rejected with ErrConflict.
func (m *Memory) Create(_ context.Context, def Definition) (*types.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if isDefault(def.Tags) && m.findDefaultLocked(def.RuleTypeID) != nil {
		return nil, ErrConflict
	}
	return cloneRule(m.insertLocked(def)), nil
}

// CreateIfAbsent implements AtomicCreator.
func (m *Memory) CreateIfAbsent(_ context.Context, def Definition) (*types.Rule, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := m.findDefaultLocked(def.RuleTypeID); existing != nil {
		return cloneRule(existing), false, nil
	}
	return cloneRule(m.insertLocked(def)), true, nil
}

// Update replaces the mutable fields of rule id.
func (m *Memory) Update(_ context.Context, id string, p Patch) (*types.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Name = p.Name
	r.Tags = append([]string(nil), p.Tags...)
	r.Schedule = p.Schedule
	r.Params = cloneParams(p.Params)
	r.NotifyWhen = p.NotifyWhen
	r.Actions = cloneActions(p.Actions)
	r.UpdatedAt = m.now()
	return cloneRule(r), nil
}

// Count returns the number of stored rules.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) findDefaultLocked(ruleTypeID string) *types.Rule {
	for _, id := range m.order {
		r := m.data[id]
		if r.RuleTypeID == ruleTypeID && isDefault(r.Tags) {
			return r
		}
	}
	return nil
}

func (m *Memory) insertLocked(def Definition) *types.Rule {
	now := m.now()
	r := ruleFromDefinition(uuid.NewString(), def, now)
	m.data[r.ID] = r
	m.order = append(m.order, r.ID)
	sort.SliceStable(m.order, func(i, j int) bool {
		return m.data[m.order[i]].CreatedAt.Before(m.data[m.order[j]].CreatedAt)
	})
	return r
}

func ruleFromDefinition(id string, def Definition, now time.Time) *types.Rule {
	return &types.Rule{
		ID:         id,
		RuleTypeID: def.RuleTypeID,
		Name:       def.Name,
		Consumer:   def.Consumer,
		Schedule:   def.Schedule,
		Tags:       append([]string(nil), def.Tags...),
		Enabled:    def.Enabled,
		Throttle:   def.Throttle,
		NotifyWhen: def.NotifyWhen,
		Params:     cloneParams(def.Params),
		Actions:    cloneActions(def.Actions),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func cloneRule(r *types.Rule) *types.Rule {
	cp := *r
	cp.Tags = append([]string(nil), r.Tags...)
	cp.Params = cloneParams(r.Params)
	cp.Actions = cloneActions(r.Actions)
	return &cp
}

func cloneParams(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func cloneActions(as []types.Action) []types.Action {
	out := make([]types.Action, 0, len(as))
	for _, a := range as {
		a.Params = cloneParams(a.Params)
		out = append(out, a)
	}
	return out
}
