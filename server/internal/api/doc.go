// Package api implements the HTTP REST API for the synthetics server.
//
// New(deps) returns a chi router that serves:
//
//	GET  /api/v1/health                        whether both default rules exist
//	GET  /api/v1/default_alerts                current status and TLS default rules
//	POST /api/v1/default_alerts                create missing default rules
//	PUT  /api/v1/default_alerts                refresh default rule actions
//	GET  /api/v1/settings                      dynamic settings
//	PUT  /api/v1/settings                      save settings, then refresh default rules
//	GET  /api/v1/connectors                    action connectors, defaults marked
//	POST /api/v1/connectors/{id}/_execute      send a test notification
//	GET  /ws                                   WebSocket hub (when configured)
//	GET  /metrics                              Prometheus metrics (when configured)
//
// An ambiguous default rule state answers 409; other reconciliation failures
// answer 500 with the per-kind reasons. All bodies are JSON; types are in
// types.go.
package api
