// Package alert bridges recall events to external channels (Slack,
// Discord). Delivery is best-effort: failures are logged, never
// propagated into the operation that triggered the alert.
package alert

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Message is a channel-agnostic alert.
type Message struct {
	Title    string
	Body     string
	Severity string // "info", "warning", "error"
	Fields   []Field
}

// Field is a key-value pair displayed alongside the alert body.
type Field struct {
	Name  string
	Value string
}

// Adapter is implemented once per channel platform.
type Adapter interface {
	// Name identifies the platform, e.g. "slack".
	Name() string
	// Send delivers the message to the platform's configured channel.
	Send(msg Message) error
}

// Notifier fans a message out to every configured adapter.
type Notifier struct {
	adapters []Adapter
}

// NewNotifier returns a Notifier over the given adapters.
func NewNotifier(adapters ...Adapter) *Notifier {
	return &Notifier{adapters: adapters}
}

// RecallAlert posts a recall alert to every adapter. Implements
// engine.Alerter.
func (n *Notifier) RecallAlert(batchID, reason string, affected []string) {
	msg := Message{
		Title:    "Batch Recall Alert",
		Body:     fmt.Sprintf("Batch %s has been recalled. Reason: %s", batchID, reason),
		Severity: "warning",
		Fields: []Field{
			{Name: "Batch", Value: batchID},
			{Name: "Reason", Value: reason},
			{Name: "Affected", Value: strings.Join(affected, ", ")},
			{Name: "Time", Value: time.Now().UTC().Format(time.RFC3339)},
		},
	}
	n.Broadcast(msg)
}

// Broadcast delivers a message to every adapter, logging failures.
func (n *Notifier) Broadcast(msg Message) {
	for _, a := range n.adapters {
		if err := a.Send(msg); err != nil {
			log.Printf("alert: %s delivery failed: %v", a.Name(), err)
		}
	}
}
