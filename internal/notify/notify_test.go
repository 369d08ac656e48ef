package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type mockAdapter struct {
	sent   []Message
	err    error
	closed bool
}

func (m *mockAdapter) Send(_ context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockAdapter) Close() error {
	m.closed = true
	return nil
}

func TestFanout_SendsToAll(t *testing.T) {
	a, b := &mockAdapter{}, &mockAdapter{}
	f := NewFanout(a, b)

	msg := Message{Title: "Need fully funded", Severity: SeveritySuccess}
	if err := f.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Errorf("sent = %d/%d, want 1/1", len(a.sent), len(b.sent))
	}
}

func TestFanout_SkipsNilAdapters(t *testing.T) {
	a := &mockAdapter{}
	f := NewFanout(nil, a, nil)

	if err := f.Send(context.Background(), Message{Title: "x"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(a.sent) != 1 {
		t.Errorf("sent = %d, want 1", len(a.sent))
	}
}

func TestFanout_PartialFailureStillDelivers(t *testing.T) {
	bad := &mockAdapter{err: errors.New("slack: rate limited")}
	good := &mockAdapter{}
	f := NewFanout(bad, good)

	err := f.Send(context.Background(), Message{Title: "x"})
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error = %q", err)
	}
	if len(good.sent) != 1 {
		t.Errorf("good adapter sent = %d, want 1 despite sibling failure", len(good.sent))
	}
}

func TestFanout_Close(t *testing.T) {
	a, b := &mockAdapter{}, &mockAdapter{}
	f := NewFanout(a, b)
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("not all adapters closed")
	}
}

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		severity string
		want     string
	}{
		{SeveritySuccess, "#36a64f"},
		{SeverityWarning, "#daa038"},
		{SeverityInfo, "#439fe0"},
		{"unknown", "#439fe0"},
	}
	for _, tt := range tests {
		if got := SeverityColor(tt.severity); got != tt.want {
			t.Errorf("SeverityColor(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}
