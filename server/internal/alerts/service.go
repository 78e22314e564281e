package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/obsidianstack/synthetics/pkg/types"
	"github.com/obsidianstack/synthetics/server/internal/connectors"
	"github.com/obsidianstack/synthetics/server/internal/events"
	"github.com/obsidianstack/synthetics/server/internal/rules"
	"github.com/obsidianstack/synthetics/server/internal/settings"
)

// DefaultRules holds the default rule of each kind. A nil field means the
// rule does not exist or its reconciliation failed.
type DefaultRules struct {
	Status *types.Rule `json:"status_rule"`
	TLS    *types.Rule `json:"tls_rule"`
}

// Get returns the rule held for kind.
func (d DefaultRules) Get(kind types.RuleKind) *types.Rule {
	switch kind {
	case types.KindStatus:
		return d.Status
	case types.KindTLS:
		return d.TLS
	}
	return nil
}

func (d *DefaultRules) set(kind types.RuleKind, r *types.Rule) {
	switch kind {
	case types.KindStatus:
		d.Status = r
	case types.KindTLS:
		d.TLS = r
	}
}

// ConnectorsAndSettings is the input of action resolution.
type ConnectorsAndSettings struct {
	Connectors []types.Connector
	Settings   *types.Settings
}

// Service reconciles the default rules against the rules registry.
// It holds no rule state between calls; every operation re-reads the
// registry, the connector list and the settings.
//
// Without an atomic registry (rules.AtomicCreator) two reconciliations racing
// against an empty registry may both create a rule of the same kind.
type Service struct {
	rules      rules.Registry
	connectors connectors.Registry
	settings   settings.Store

	log     *slog.Logger
	metrics *Metrics
	events  events.Publisher
	prefix  string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics records reconciliation outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher publishes rule created/updated events under subject prefix.
func WithPublisher(p events.Publisher, prefix string) Option {
	return func(s *Service) {
		s.events = p
		s.prefix = prefix
	}
}

// NewService creates a Service over the given collaborators.
func NewService(r rules.Registry, c connectors.Registry, st settings.Store, opts ...Option) *Service {
	s := &Service{
		rules:      r,
		connectors: c,
		settings:   st,
		log:        slog.Default(),
		events:     events.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetupDefaultAlerts creates the status and TLS default rules if they do not
// exist. Both kinds run concurrently and to completion. Rules that were set up
// are returned even when the other kind failed; the failures are reported in
// a *SetupError.
func (s *Service) SetupDefaultAlerts(ctx context.Context) (DefaultRules, error) {
	return s.forEachKind(ctx, "setup", func(ctx context.Context, k types.RuleKind) (*types.Rule, error) {
		return s.CreateDefaultAlertIfNotExist(ctx, k, k.DefaultName(), k.DefaultInterval())
	})
}

// UpdateDefaultAlerts refreshes the actions of both default rules, creating
// any that are missing. Failures are aggregated as in SetupDefaultAlerts.
func (s *Service) UpdateDefaultAlerts(ctx context.Context) (DefaultRules, error) {
	return s.forEachKind(ctx, "update", func(ctx context.Context, k types.RuleKind) (*types.Rule, error) {
		return s.UpdateDefaultAlert(ctx, k, k.DefaultName(), k.DefaultInterval())
	})
}

// GetDefaultAlerts looks up the existing default rule of each kind.
func (s *Service) GetDefaultAlerts(ctx context.Context) (DefaultRules, error) {
	return s.forEachKind(ctx, "lookup", s.GetExistingAlert)
}

// GetExistingAlert returns the rule whose rule-type id is kind, or nil when
// there is none. More than one match is reported as *AmbiguousRuleStateError.
func (s *Service) GetExistingAlert(ctx context.Context, kind types.RuleKind) (*types.Rule, error) {
	res, err := s.rules.Find(ctx, rules.FindOptions{
		RuleTypeID: string(kind),
		Page:       1,
		PerPage:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("alerts: find %s rule: %w", kind.Label(), err)
	}
	if res.Total > 1 {
		s.metrics.ambiguousRule(kind.Label())
		s.log.Warn("default alert lookup is ambiguous", "kind", kind.Label(), "count", res.Total)
		return nil, &AmbiguousRuleStateError{Kind: kind, Count: res.Total}
	}
	if len(res.Data) == 0 {
		return nil, nil
	}
	return res.Data[0], nil
}

// CreateDefaultAlertIfNotExist returns the existing rule of kind unchanged, or
// creates an enabled default rule with the current default actions.
func (s *Service) CreateDefaultAlertIfNotExist(ctx context.Context, kind types.RuleKind, name, interval string) (*types.Rule, error) {
	existing, err := s.GetExistingAlert(ctx, kind)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.metrics.outcome(kind.Label(), outcomeExisting)
		return existing, nil
	}

	actions, err := s.GetAlertActions(ctx)
	if err != nil {
		return nil, err
	}

	def := rules.Definition{
		RuleTypeID: string(kind),
		Name:       name,
		Consumer:   types.Consumer,
		Schedule:   types.Schedule{Interval: interval},
		Tags:       []string{types.DefaultAlertTag},
		Enabled:    true,
		Throttle:   nil,
		Params:     map[string]any{},
		Actions:    actions,
	}

	var rule *types.Rule
	if ac, ok := s.rules.(rules.AtomicCreator); ok {
		r, created, err := ac.CreateIfAbsent(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("alerts: create %s rule: %w", kind.Label(), err)
		}
		if !created {
			s.log.Info("default alert created concurrently, keeping it", "kind", kind.Label(), "id", r.ID)
			s.metrics.outcome(kind.Label(), outcomeExisting)
			return r, nil
		}
		rule = r
	} else {
		r, err := s.rules.Create(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("alerts: create %s rule: %w", kind.Label(), err)
		}
		rule = r
	}

	s.log.Info("default alert created",
		"kind", kind.Label(),
		"id", rule.ID,
		"interval", interval,
		"actions", len(actions),
	)
	s.metrics.outcome(kind.Label(), outcomeCreated)
	s.publish(events.RuleCreated, rule)
	return rule, nil
}

// UpdateDefaultAlert replaces the actions of the existing rule of kind with
// freshly computed defaults. Name, tags, schedule, params and notify-when are
// kept as stored. When no rule exists it behaves like
// CreateDefaultAlertIfNotExist(kind, name, interval).
func (s *Service) UpdateDefaultAlert(ctx context.Context, kind types.RuleKind, name, interval string) (*types.Rule, error) {
	existing, err := s.GetExistingAlert(ctx, kind)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return s.CreateDefaultAlertIfNotExist(ctx, kind, name, interval)
	}

	actions, err := s.GetAlertActions(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := s.rules.Update(ctx, existing.ID, rules.Patch{
		Name:       existing.Name,
		Tags:       existing.Tags,
		Schedule:   existing.Schedule,
		Params:     existing.Params,
		NotifyWhen: existing.NotifyWhen,
		Actions:    actions,
	})
	if err != nil {
		return nil, fmt.Errorf("alerts: update %s rule %s: %w", kind.Label(), existing.ID, err)
	}

	s.log.Info("default alert actions refreshed", "kind", kind.Label(), "id", updated.ID, "actions", len(actions))
	s.metrics.outcome(kind.Label(), outcomeUpdated)
	s.publish(events.RuleUpdated, updated)
	return updated, nil
}

// GetAlertActions builds the default action list: one action per connector
// whose id is in the settings' default-connector set, in registry order.
func (s *Service) GetAlertActions(ctx context.Context) ([]types.Action, error) {
	cs, err := s.GetActionConnectors(ctx)
	if err != nil {
		return nil, err
	}

	selected := make([]types.Connector, 0, len(cs.Connectors))
	for _, c := range cs.Connectors {
		if cs.Settings.IsDefaultConnector(c.ID) {
			selected = append(selected, c)
		}
	}
	return PopulateAlertActions(types.MonitorStatusGroup, selected, cs.Settings.DefaultEmail, MonitorStatusMessages), nil
}

// GetActionConnectors reads the settings and the connector list. A settings
// failure is returned; a connector-list failure is logged and replaced by an
// empty list.
func (s *Service) GetActionConnectors(ctx context.Context) (*ConnectorsAndSettings, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("alerts: read settings: %w", err)
	}
	if st == nil {
		st = &types.Settings{}
	}

	conns, err := s.connectors.GetAll(ctx)
	if err != nil {
		s.log.Error("default alerts: list action connectors failed, using none", "err", err)
		s.metrics.connectorFailure()
		conns = []types.Connector{}
	}
	return &ConnectorsAndSettings{Connectors: conns, Settings: st}, nil
}

// forEachKind runs fn for every kind concurrently and waits for all of them.
func (s *Service) forEachKind(ctx context.Context, op string, fn func(context.Context, types.RuleKind) (*types.Rule, error)) (DefaultRules, error) {
	kinds := types.Kinds()
	results := make([]*types.Rule, len(kinds))
	errs := make([]error, len(kinds))

	var wg sync.WaitGroup
	for i, k := range kinds {
		wg.Add(1)
		go func(i int, k types.RuleKind) {
			defer wg.Done()
			results[i], errs[i] = fn(ctx, k)
		}(i, k)
	}
	wg.Wait()

	var (
		out    DefaultRules
		setErr *SetupError
	)
	for i, k := range kinds {
		if errs[i] != nil {
			if setErr == nil {
				setErr = &SetupError{Op: op, Errs: make(map[types.RuleKind]error)}
			}
			setErr.Errs[k] = errs[i]
			s.metrics.outcome(k.Label(), outcomeFailed)
			s.log.Error("default alert "+op+" failed", "kind", k.Label(), "err", errs[i])
			continue
		}
		out.set(k, results[i])
	}
	if setErr != nil {
		return out, setErr
	}
	return out, nil
}

func (s *Service) publish(name string, r *types.Rule) {
	subject := events.Subject(s.prefix, name)
	if err := s.events.Publish(subject, r); err != nil {
		s.log.Warn("default alert event not published", "subject", subject, "err", err)
	}
}
