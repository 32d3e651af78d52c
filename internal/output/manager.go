package output

import (
	"errors"
	"fmt"
	"time"
)

// Sink receives crawl events.
type Sink interface {
	Write(ev Event) error
	Close() error
}

// Manager fans events out to every sink, stamping the run ID and time.
type Manager struct {
	runID string
	sinks []Sink
	now   func() time.Time
}

func NewManager(runID string) *Manager {
	return &Manager{runID: runID, now: time.Now}
}

func (m *Manager) RunID() string {
	if m == nil {
		return ""
	}
	return m.runID
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

// Emit writes ev to every sink. A nil Manager drops events.
func (m *Manager) Emit(ev Event) error {
	if m == nil {
		return nil
	}
	if ev.RunID == "" {
		ev.RunID = m.runID
	}
	if ev.Time.IsZero() {
		ev.Time = m.now().UTC()
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ev); err != nil {
			errs = append(errs, fmt.Errorf("write %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors writing to sinks: %w", errors.Join(errs...))
	}
	return nil
}

func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sinks: %w", errors.Join(errs...))
	}
	return nil
}
