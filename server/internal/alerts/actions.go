package alerts

import "github.com/obsidianstack/synthetics/pkg/types"

// Messages holds the templated texts of a default action. Placeholders in
// {{double braces}} are rendered by the alerting framework at execution time.
type Messages struct {
	Subject         string
	Message         string
	RecoverySubject string
	RecoveryMessage string
}

// MonitorStatusMessages are the texts used by the default rules.
var MonitorStatusMessages = Messages{
	Subject: `"{{context.monitorName}}" ({{context.locationName}}) is down - Elastic Synthetics`,
	Message: `Monitor "{{context.monitorName}}" is {{{context.status}}} from {{context.locationName}}.

- Reason: {{{context.reason}}}
- Checked at: {{context.checkedAt}}
- URL: {{context.monitorUrl}}
- Details: {{{context.linkMessage}}}`,
	RecoverySubject: `"{{context.monitorName}}" ({{context.locationName}}) {{context.recoveryStatus}} - Elastic Synthetics`,
	RecoveryMessage: `The alert for monitor "{{context.monitorName}}" from {{context.locationName}} is no longer active: {{context.recoveryReason}}.

- Checked at: {{context.checkedAt}}
- URL: {{context.monitorUrl}}
- Details: {{{context.linkMessage}}}`,
}

// PopulateAlertActions builds one action per connector, in connector order,
// firing on group. Parameters are shaped for each connector type; email
// actions are addressed to email (which may be nil).
func PopulateAlertActions(group string, connectors []types.Connector, email *types.DefaultEmail, msgs Messages) []types.Action {
	actions := make([]types.Action, 0, len(connectors))
	for _, c := range connectors {
		actions = append(actions, types.Action{
			ID:              c.ID,
			ConnectorTypeID: c.ConnectorTypeID,
			Group:           group,
			Params:          actionParams(c.ConnectorTypeID, email, msgs),
			Frequency: types.ActionFrequency{
				Summary:    false,
				NotifyWhen: types.NotifyOnActionGroupChange,
				Throttle:   nil,
			},
		})
	}
	return actions
}

func actionParams(connectorType string, email *types.DefaultEmail, msgs Messages) map[string]any {
	switch connectorType {
	case types.ConnectorEmail:
		var to, cc, bcc []string
		if email != nil {
			to, cc, bcc = email.To, email.Cc, email.Bcc
		}
		return map[string]any{
			"to":              nonNil(to),
			"cc":              nonNil(cc),
			"bcc":             nonNil(bcc),
			"subject":         msgs.Subject,
			"message":         msgs.Message,
			"recoverySubject": msgs.RecoverySubject,
			"recoveryMessage": msgs.RecoveryMessage,
		}
	case types.ConnectorPagerDuty:
		return map[string]any{
			"eventAction":         "trigger",
			"dedupKey":            "{{rule.id}}-{{alert.id}}",
			"summary":             msgs.Subject,
			"recoveryEventAction": "resolve",
			"recoverySummary":     msgs.RecoverySubject,
		}
	case types.ConnectorWebhook:
		return map[string]any{
			"body":         msgs.Message,
			"recoveryBody": msgs.RecoveryMessage,
		}
	case types.ConnectorServerLog:
		return map[string]any{
			"level":           "warn",
			"message":         msgs.Message,
			"recoveryMessage": msgs.RecoveryMessage,
		}
	default:
		return map[string]any{
			"message":         msgs.Message,
			"recoveryMessage": msgs.RecoveryMessage,
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
