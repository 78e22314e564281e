package types

import "time"

// Fixed values stamped on every default rule.
const (
	// DefaultAlertTag marks a rule as system-provisioned rather than user-created.
	DefaultAlertTag = "SYNTHETICS_DEFAULT_ALERT"

	// Consumer is the owning application recorded on default rules.
	Consumer = "uptime"

	// MonitorStatusGroup is the action group default actions fire on.
	MonitorStatusGroup = "xpack.synthetics.alerts.actionGroups.monitorStatus"

	// NotifyOnActionGroupChange notifies only when the action group changes.
	NotifyOnActionGroupChange = "onActionGroupChange"
)

// Schedule is how often a rule runs, e.g. {Interval: "1m"}.
type Schedule struct {
	Interval string `json:"interval" yaml:"interval"`
}

// Rule is an automated alerting rule as stored by the rules registry.
// RuleTypeID is always populated; it is the normalized rule-type field.
type Rule struct {
	ID         string         `json:"id"`
	RuleTypeID string         `json:"rule_type_id"`
	Name       string         `json:"name"`
	Consumer   string         `json:"consumer"`
	Schedule   Schedule       `json:"schedule"`
	Tags       []string       `json:"tags"`
	Enabled    bool           `json:"enabled"`
	Throttle   *string        `json:"throttle"`
	NotifyWhen string         `json:"notify_when,omitempty"`
	Params     map[string]any `json:"params"`
	Actions    []Action       `json:"actions"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// HasTag reports whether tag is present on the rule.
func (r *Rule) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Kind returns the rule's kind. The result is only meaningful when Valid.
func (r *Rule) Kind() RuleKind { return RuleKind(r.RuleTypeID) }

// Action is one notification attached to a rule: the connector to invoke, the
// action group it fires on and the connector-specific parameters.
type Action struct {
	ID              string          `json:"id"`
	ConnectorTypeID string          `json:"connector_type_id"`
	Group           string          `json:"group"`
	Params          map[string]any  `json:"params"`
	Frequency       ActionFrequency `json:"frequency"`
}

// ActionFrequency controls how often an action is executed.
type ActionFrequency struct {
	Summary    bool    `json:"summary"`
	NotifyWhen string  `json:"notify_when"`
	Throttle   *string `json:"throttle"`
}
