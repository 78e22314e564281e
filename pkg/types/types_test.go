package types

import "testing"

func TestKinds_Order(t *testing.T) {
	got := Kinds()
	if len(got) != 2 || got[0] != KindStatus || got[1] != KindTLS {
		t.Errorf("Kinds: got %v, want [status tls]", got)
	}
}

func TestKindDefaults(t *testing.T) {
	cases := []struct {
		kind     RuleKind
		name     string
		interval string
		label    string
	}{
		{KindStatus, "Synthetics status internal alert", "1m", "status"},
		{KindTLS, "Synthetics internal TLS alert", "10m", "tls"},
	}
	for _, c := range cases {
		if !c.kind.Valid() {
			t.Errorf("%s: Valid() = false", c.kind)
		}
		if got := c.kind.DefaultName(); got != c.name {
			t.Errorf("%s name: got %q, want %q", c.label, got, c.name)
		}
		if got := c.kind.DefaultInterval(); got != c.interval {
			t.Errorf("%s interval: got %q, want %q", c.label, got, c.interval)
		}
		if got := c.kind.Label(); got != c.label {
			t.Errorf("label: got %q, want %q", got, c.label)
		}
	}
}

func TestUnknownKind(t *testing.T) {
	k := RuleKind("xpack.uptime.alerts.durationAnomaly")
	if k.Valid() {
		t.Error("Valid: got true, want false")
	}
	if k.Label() != string(k) {
		t.Errorf("Label: got %q, want the raw id", k.Label())
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]RuleKind{
		"status":                      KindStatus,
		"tls":                         KindTLS,
		"xpack.synthetics.alerts.tls": KindTLS,
	} {
		got, err := ParseKind(in)
		if err != nil {
			t.Errorf("ParseKind(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseKind(%q): got %v, want %v", in, got, want)
		}
	}
	if _, err := ParseKind("duration"); err == nil {
		t.Error("ParseKind(duration): expected error, got nil")
	}
}

func TestRuleHasTag(t *testing.T) {
	r := &Rule{RuleTypeID: string(KindTLS), Tags: []string{"team-a", DefaultAlertTag}}
	if !r.HasTag(DefaultAlertTag) {
		t.Error("HasTag(default): got false, want true")
	}
	if r.HasTag("team-b") {
		t.Error("HasTag(team-b): got true, want false")
	}
	if r.Kind() != KindTLS {
		t.Errorf("Kind: got %v, want %v", r.Kind(), KindTLS)
	}
}

func TestSettingsIsDefaultConnector(t *testing.T) {
	var nilSettings *Settings
	if nilSettings.IsDefaultConnector("a") {
		t.Error("nil settings: got true, want false")
	}
	s := &Settings{DefaultConnectors: []string{"a", "b"}}
	if !s.IsDefaultConnector("b") {
		t.Error("IsDefaultConnector(b): got false, want true")
	}
	if s.IsDefaultConnector("c") {
		t.Error("IsDefaultConnector(c): got true, want false")
	}
}
