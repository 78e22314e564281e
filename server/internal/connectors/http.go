package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/obsidianstack/synthetics/pkg/types"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTP is a Registry that reads connectors from a remote actions API:
//
//	GET {endpoint}/api/actions/connectors
//
// The response is a JSON array of {id, connector_type_id, name, is_preconfigured}.
type HTTP struct {
	endpoint string
	header   string
	key      string
	client   *http.Client
}

// NewHTTP creates an HTTP registry. When key is non-empty it is sent in the
// header named header on every request.
func NewHTTP(endpoint, header, key string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTP{
		endpoint: strings.TrimRight(endpoint, "/"),
		header:   header,
		key:      key,
		client:   &http.Client{Timeout: timeout},
	}
}

// GetAll fetches the connector list.
func (h *HTTP) GetAll(ctx context.Context) ([]types.Connector, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/api/actions/connectors", nil)
	if err != nil {
		return nil, fmt.Errorf("connectors: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if h.key != "" {
		req.Header.Set(h.header, h.key)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connectors: get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("connectors: actions API returned HTTP %d", resp.StatusCode)
	}

	var out []types.Connector
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("connectors: decode response: %w", err)
	}
	return out, nil
}
