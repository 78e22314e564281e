// Package alerts provisions the default synthetics alerting rules.
//
// Service keeps exactly one enabled rule per default rule kind (monitor
// status, TLS). Setup creates whatever is missing; Update refreshes the
// action list of existing rules from the current default connectors and
// settings. Status and TLS are reconciled concurrently and a failure of one
// never cancels the other; failures are reported together in a SetupError.
package alerts
