// Package notify fans announcements out to chat platforms (Slack, Discord).
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Severity hints for platform-side formatting.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
)

// Message is an outbound announcement. Fields render as key-value pairs in
// platform attachments.
type Message struct {
	Title    string
	Body     string
	Severity string
	Fields   []Field
}

// Field is a key-value pair displayed with a message.
type Field struct {
	Name  string
	Value string
}

// Adapter is the interface platform-specific implementations satisfy.
type Adapter interface {
	// Send delivers a message to the platform's configured channel.
	Send(ctx context.Context, msg Message) error

	// Close shuts down the adapter connection.
	Close() error
}

// Fanout delivers a message through every adapter, collecting per-adapter
// failures instead of stopping at the first.
type Fanout struct {
	adapters []Adapter
}

// NewFanout creates a Fanout over the given adapters. Nil adapters are
// skipped so call sites can pass optionally-configured platforms directly.
func NewFanout(adapters ...Adapter) *Fanout {
	f := &Fanout{}
	for _, a := range adapters {
		if a != nil {
			f.adapters = append(f.adapters, a)
		}
	}
	return f
}

// Send delivers msg through all adapters. If some fail, the rest still run
// and the failures are joined into one error.
func (f *Fanout) Send(ctx context.Context, msg Message) error {
	var failures []string
	for _, a := range f.adapters {
		if err := a.Send(ctx, msg); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(failures, "; "))
	}
	return nil
}

// Close closes all adapters, returning the first error seen.
func (f *Fanout) Close() error {
	var first error
	for _, a := range f.adapters {
		if err := a.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SeverityColor maps a severity to a sidebar color hint.
func SeverityColor(severity string) string {
	switch severity {
	case SeveritySuccess:
		return "#36a64f"
	case SeverityWarning:
		return "#daa038"
	default:
		return "#439fe0"
	}
}
