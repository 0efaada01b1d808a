package slack

import (
	"errors"
	"testing"

	"github.com/ayusetu/setu/internal/alert"
	slackapi "github.com/slack-go/slack"
)

type fakeClient struct {
	channelID string
	options   []slackapi.MsgOption
	err       error
	calls     int
}

func (f *fakeClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	f.calls++
	f.channelID = channelID
	f.options = options
	return channelID, "123.456", f.err
}

func TestSend(t *testing.T) {
	fc := &fakeClient{}
	a := &Adapter{client: fc, channelID: "C123"}

	err := a.Send(alert.Message{
		Title:    "Batch Recall Alert",
		Body:     "Batch LOT1 has been recalled. Reason: contamination",
		Severity: "warning",
		Fields:   []alert.Field{{Name: "Batch", Value: "LOT1"}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if fc.calls != 1 {
		t.Fatalf("calls = %d, want 1", fc.calls)
	}
	if fc.channelID != "C123" {
		t.Errorf("channel = %q, want C123", fc.channelID)
	}
	if len(fc.options) != 1 {
		t.Errorf("options = %d, want 1 attachment option", len(fc.options))
	}
}

func TestSend_Error(t *testing.T) {
	fc := &fakeClient{err: errors.New("channel_not_found")}
	a := &Adapter{client: fc, channelID: "C123"}

	if err := a.Send(alert.Message{Title: "t"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestName(t *testing.T) {
	if got := New("xoxb-test", "C123").Name(); got != "slack" {
		t.Errorf("Name = %q", got)
	}
}

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		severity, want string
	}{
		{"warning", "#e8a317"},
		{"error", "#d00000"},
		{"info", "#36a64f"},
		{"", "#36a64f"},
	}
	for _, tt := range tests {
		if got := severityColor(tt.severity); got != tt.want {
			t.Errorf("severityColor(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}
