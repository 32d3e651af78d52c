package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type recordingSink struct {
	events []Event
	err    error
	closed bool
}

func (s *recordingSink) Write(ev Event) error {
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestManager_EmitStampsRunAndTime(t *testing.T) {
	m := NewManager("run-1")
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	rec := &recordingSink{}
	if err := m.AddSink(rec); err != nil {
		t.Fatalf("AddSink: %v", err)
	}
	if err := m.Emit(Event{Type: EventRepoAccepted, Repo: "acme/storefront"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("events = %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.RunID != "run-1" || !ev.Time.Equal(fixed) {
		t.Fatalf("event = %+v", ev)
	}
	if err := m.Close(); err != nil || !rec.closed {
		t.Fatalf("Close: %v closed=%v", err, rec.closed)
	}
}

func TestManager_CollectsSinkErrors(t *testing.T) {
	m := NewManager("run-1")
	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("disk full")}
	_ = m.AddSink(bad)
	_ = m.AddSink(good)

	err := m.Emit(Event{Type: EventRunStarted})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v", err)
	}
	if len(good.events) != 1 {
		t.Fatalf("healthy sink must still receive the event")
	}
	if err := m.AddSink(nil); err == nil {
		t.Fatalf("expected error for nil sink")
	}
}

func TestManager_NilIsNoop(t *testing.T) {
	var m *Manager
	if err := m.Emit(Event{Type: EventRunStarted}); err != nil {
		t.Fatalf("Emit on nil manager: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close on nil manager: %v", err)
	}
}

func TestEmitSink_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewEmitSink(&buf, "ndjson")
	if err != nil {
		t.Fatalf("NewEmitSink: %v", err)
	}
	_ = s.Write(Event{Type: EventRepoSkipped, Repo: "a/b", Reason: "processed"})
	_ = s.Write(Event{Type: EventRunFinished, Analyzed: 3})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != EventRepoSkipped || ev.Reason != "processed" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestEmitSink_JSONArrayOnClose(t *testing.T) {
	var buf bytes.Buffer
	s, _ := NewEmitSink(&buf, "json")
	_ = s.Write(Event{Type: EventRunStarted})
	if buf.Len() != 0 {
		t.Fatalf("json format must buffer until Close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var evs []Event
	if err := json.Unmarshal(buf.Bytes(), &evs); err != nil || len(evs) != 1 {
		t.Fatalf("decoded %d events, err %v", len(evs), err)
	}

	if _, err := NewEmitSink(&buf, "xml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestNewFileSink_AppendsNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "run.ndjson")
	for i := 0; i < 2; i++ {
		s, err := NewFileSink(path, "")
		if err != nil {
			t.Fatalf("NewFileSink: %v", err)
		}
		if err := s.Write(Event{Type: EventRunStarted}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := strings.Count(string(b), "\n"); n != 2 {
		t.Fatalf("lines = %d, want 2 across runs", n)
	}

	if _, err := NewFileSink(filepath.Join(t.TempDir(), "run.txt"), ""); err == nil {
		t.Fatalf("expected error for unknown extension")
	}
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSink(&buf, false)
	_ = s.Write(Event{Type: EventRepoSkipped, Repo: "a/b", Reason: "library"})
	_ = s.Write(Event{Type: EventRepoAccepted, Repo: "acme/storefront", Tools: []string{"AXE"}})
	_ = s.Write(Event{Type: EventRunFinished, Analyzed: 2, Saved: 1, Skipped: 1})

	out := buf.String()
	if strings.Contains(out, "a/b") {
		t.Fatalf("skips must be hidden unless verbose: %q", out)
	}
	if !strings.Contains(out, "acme/storefront AXE") {
		t.Fatalf("missing accepted line: %q", out)
	}
	if !strings.Contains(out, "analyzed=2 saved=1 skipped=1 errored=0") {
		t.Fatalf("missing summary: %q", out)
	}

	buf.Reset()
	_ = NewConsoleSink(&buf, true).Write(Event{Type: EventRepoSkipped, Repo: "a/b", Reason: "library"})
	if !strings.Contains(buf.String(), "[SKIP] a/b (library)") {
		t.Fatalf("verbose skip line = %q", buf.String())
	}
}
