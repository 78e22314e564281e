package types

import "fmt"

// RuleKind identifies one of the internal default rule categories.
// Its value is the rule-type id registered with the rules registry.
type RuleKind string

// The default rule kinds. The set is fixed.
const (
	KindStatus RuleKind = "xpack.synthetics.alerts.monitorStatus"
	KindTLS    RuleKind = "xpack.synthetics.alerts.tls"
)

// kindInfo holds the fixed defaults for a RuleKind.
type kindInfo struct {
	name     string
	interval string
	label    string
}

var kinds = map[RuleKind]kindInfo{
	KindStatus: {name: "Synthetics status internal alert", interval: "1m", label: "status"},
	KindTLS:    {name: "Synthetics internal TLS alert", interval: "10m", label: "tls"},
}

// Kinds returns every default rule kind in reconciliation order.
func Kinds() []RuleKind {
	return []RuleKind{KindStatus, KindTLS}
}

// Valid reports whether k is one of the default rule kinds.
func (k RuleKind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// DefaultName returns the display name given to the default rule of kind k.
func (k RuleKind) DefaultName() string { return kinds[k].name }

// DefaultInterval returns the schedule interval of the default rule of kind k.
func (k RuleKind) DefaultInterval() string { return kinds[k].interval }

// Label is the short lower-case name used in logs, metrics and JSON keys.
func (k RuleKind) Label() string {
	if info, ok := kinds[k]; ok {
		return info.label
	}
	return string(k)
}

// ParseKind accepts either a rule-type id or a short label ("status", "tls").
func ParseKind(s string) (RuleKind, error) {
	for k, info := range kinds {
		if s == string(k) || s == info.label {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown rule kind %q: want status|tls", s)
}
