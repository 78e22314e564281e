package types

// Connector type ids understood by the default action builder.
const (
	ConnectorEmail     = ".email"
	ConnectorSlack     = ".slack"
	ConnectorTeams     = ".teams"
	ConnectorPagerDuty = ".pagerduty"
	ConnectorWebhook   = ".webhook"
	ConnectorServerLog = ".server-log"
)

// Connector is a configured notification channel.
type Connector struct {
	ID              string `json:"id" yaml:"id"`
	ConnectorTypeID string `json:"connector_type_id" yaml:"type"`
	Name            string `json:"name" yaml:"name"`

	// URLEnv names the environment variable holding the delivery URL for
	// webhook-style connectors (slack, teams, pagerduty, webhook).
	URLEnv string `json:"-" yaml:"url_env"`

	IsPreconfigured bool `json:"is_preconfigured" yaml:"preconfigured"`
}
