package alert

import (
	"errors"
	"testing"
)

type fakeAdapter struct {
	name string
	sent []Message
	err  error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Send(msg Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func TestRecallAlert(t *testing.T) {
	a := &fakeAdapter{name: "fake"}
	n := NewNotifier(a)

	n.RecallAlert("LOT1", "contamination", []string{"F001", "LOT1"})

	if len(a.sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(a.sent))
	}
	msg := a.sent[0]
	if msg.Title != "Batch Recall Alert" {
		t.Errorf("title = %q", msg.Title)
	}
	if msg.Body != "Batch LOT1 has been recalled. Reason: contamination" {
		t.Errorf("body = %q", msg.Body)
	}
	if msg.Severity != "warning" {
		t.Errorf("severity = %q", msg.Severity)
	}
	byName := map[string]string{}
	for _, f := range msg.Fields {
		byName[f.Name] = f.Value
	}
	if byName["Batch"] != "LOT1" {
		t.Errorf("Batch field = %q", byName["Batch"])
	}
	if byName["Affected"] != "F001, LOT1" {
		t.Errorf("Affected field = %q", byName["Affected"])
	}
}

func TestBroadcast_AllAdapters(t *testing.T) {
	a := &fakeAdapter{name: "a"}
	b := &fakeAdapter{name: "b"}
	n := NewNotifier(a, b)

	n.Broadcast(Message{Title: "t"})

	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Errorf("sent = %d/%d, want 1/1", len(a.sent), len(b.sent))
	}
}

func TestBroadcast_FailureDoesNotBlockOthers(t *testing.T) {
	bad := &fakeAdapter{name: "bad", err: errors.New("boom")}
	good := &fakeAdapter{name: "good"}
	n := NewNotifier(bad, good)

	n.Broadcast(Message{Title: "t"})

	if len(good.sent) != 1 {
		t.Errorf("good adapter sent = %d, want 1", len(good.sent))
	}
}

func TestBroadcast_NoAdapters(t *testing.T) {
	NewNotifier().Broadcast(Message{Title: "t"})
}
