package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/obsidianstack/synthetics/pkg/types"
)

// ErrUnsupported is returned for connector types that cannot be delivered to
// over a webhook URL, such as email.
var ErrUnsupported = errors.New("connectors: delivery not supported for connector type")

// Notification is a message sent through a connector.
type Notification struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // critical | warning | info
}

// Deliverer posts notifications to webhook-style connectors.
type Deliverer struct {
	client *http.Client
	lookup func(string) string // env lookup, injectable for tests
}

// NewDeliverer creates a Deliverer with a 10 second request timeout.
func NewDeliverer() *Deliverer {
	return &Deliverer{
		client: &http.Client{Timeout: 10 * time.Second},
		lookup: os.Getenv,
	}
}

// Send delivers n through c. The target URL is read from the environment
// variable named by c.URLEnv.
func (d *Deliverer) Send(ctx context.Context, c types.Connector, n Notification) error {
	url := ""
	if c.URLEnv != "" {
		url = d.lookup(c.URLEnv)
	}

	var body []byte
	switch c.ConnectorTypeID {
	case types.ConnectorSlack:
		body, _ = json.Marshal(map[string]string{
			"text": fmt.Sprintf("*%s* %s", severityLabel(n.Severity), n.Message),
		})
	case types.ConnectorTeams:
		body, _ = json.Marshal(map[string]interface{}{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": severityColor(n.Severity),
			"summary":    n.Subject,
			"title":      n.Subject,
			"text":       n.Message,
		})
	case types.ConnectorPagerDuty:
		body, _ = json.Marshal(map[string]interface{}{
			"event_action": "trigger",
			"payload": map[string]string{
				"summary":  n.Subject,
				"severity": pagerDutySeverity(n.Severity),
				"source":   c.ID,
			},
		})
	case types.ConnectorWebhook:
		body, _ = json.Marshal(map[string]interface{}{"notification": n})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupported, c.ConnectorTypeID)
	}

	if url == "" {
		return fmt.Errorf("connectors: %q has no delivery URL (url_env %q)", c.ID, c.URLEnv)
	}
	if err := d.post(ctx, url, body); err != nil {
		slog.Error("connectors: delivery failed", "connector", c.ID, "type", c.ConnectorTypeID, "err", err)
		return err
	}
	slog.Debug("connectors: delivered", "connector", c.ID, "type", c.ConnectorTypeID)
	return nil
}

func (d *Deliverer) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}

func pagerDutySeverity(s string) string {
	switch s {
	case "critical", "warning":
		return s
	default:
		return "info"
	}
}
