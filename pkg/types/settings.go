package types

// DefaultEmail holds the recipients used by email default actions.
type DefaultEmail struct {
	To  []string `json:"to" yaml:"to"`
	Cc  []string `json:"cc,omitempty" yaml:"cc,omitempty"`
	Bcc []string `json:"bcc,omitempty" yaml:"bcc,omitempty"`
}

// Settings are the persisted platform-wide synthetics defaults.
// Every field is optional. A nil DefaultConnectors means the set was never
// configured, which selects no connectors.
type Settings struct {
	DefaultConnectors       []string      `json:"default_connectors,omitempty" yaml:"default_connectors,omitempty"`
	DefaultEmail            *DefaultEmail `json:"default_email,omitempty" yaml:"default_email,omitempty"`
	CertExpirationThreshold int           `json:"cert_expiration_threshold,omitempty" yaml:"cert_expiration_threshold,omitempty"`
	CertAgeThreshold        int           `json:"cert_age_threshold,omitempty" yaml:"cert_age_threshold,omitempty"`
}

// IsDefaultConnector reports whether id is in the default-connector set.
func (s *Settings) IsDefaultConnector(id string) bool {
	if s == nil {
		return false
	}
	for _, c := range s.DefaultConnectors {
		if c == id {
			return true
		}
	}
	return false
}
