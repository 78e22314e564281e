// Package connectors lists the notification connectors default rules can
// attach actions to, and delivers test notifications through them.
//
// Static serves connectors declared in the server config. HTTP reads them
// from a remote actions API. Deliverer posts a Notification to slack, teams,
// pagerduty and generic webhook connectors.
package connectors
