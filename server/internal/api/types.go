package api

import "github.com/obsidianstack/synthetics/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is "ok" when both default rules exist, "degraded" when one or
	// both are missing, and "error" when the lookup failed.
	State      string `json:"state"`
	StatusRule bool   `json:"status_rule"`
	TLSRule    bool   `json:"tls_rule"`
	Error      string `json:"error,omitempty"`
}

// SettingsResponse is the payload for GET and PUT /api/v1/settings.
type SettingsResponse struct {
	Settings types.Settings `json:"settings"`
}

// ConnectorResponse is one entry in GET /api/v1/connectors.
type ConnectorResponse struct {
	ID              string `json:"id"`
	ConnectorTypeID string `json:"connector_type_id"`
	Name            string `json:"name"`
	IsPreconfigured bool   `json:"is_preconfigured"`
	IsDefault       bool   `json:"is_default"`
}

// ExecuteResponse is the payload for POST /api/v1/connectors/{id}/_execute.
type ExecuteResponse struct {
	ConnectorID string `json:"connector_id"`
	Status      string `json:"status"`
}

// errorResponse is the JSON body for all error responses.
type errorResponse struct {
	Error string `json:"error"`
	// Reasons maps a rule kind label to its failure, for partial failures.
	Reasons map[string]string `json:"reasons,omitempty"`
}
