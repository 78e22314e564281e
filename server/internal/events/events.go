// Package events publishes default-rule lifecycle events so other services
// can react when the reconciler creates or refreshes a rule.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Event names appended to the subject prefix.
const (
	RuleCreated = "created"
	RuleUpdated = "updated"
)

// Publisher sends a JSON payload on a subject.
type Publisher interface {
	Publish(subject string, payload any) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(string, any) error { return nil }

// NATS publishes events to a NATS server.
type NATS struct {
	conn *nats.Conn
}

// Connect dials the NATS server at url.
func Connect(url string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("synthetics-default-alerts"))
	if err != nil {
		return nil, fmt.Errorf("events: connect %q: %w", url, err)
	}
	return &NATS{conn: conn}, nil
}

// Publish marshals payload as JSON and publishes it on subject.
func (n *NATS) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", subject, err)
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Drain() //nolint:errcheck
		n.conn.Close()
	}
}

// Subject joins prefix and name with a dot.
func Subject(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
