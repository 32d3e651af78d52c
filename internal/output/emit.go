package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// EmitSink writes events as structured data.
//
// Formats:
//   - ndjson: streams one JSON object per line
//   - json: collects events and writes a single JSON array on Close
type EmitSink struct {
	writer io.Writer
	closer io.Closer
	format string
	mu     sync.Mutex
	events []Event
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported emit format: %s", format)
	}
	return &EmitSink{writer: w, format: format}, nil
}

func (s *EmitSink) Write(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		s.events = append(s.events, ev)
		return nil
	}
	if err := json.NewEncoder(s.writer).Encode(ev); err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

func (s *EmitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.format == "json" {
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if s.events == nil {
			s.events = []Event{}
		}
		if err = encoder.Encode(s.events); err == nil {
			err = flushIfPossible(s.writer)
		}
	}
	if s.closer != nil {
		if closeErr := s.closer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// flushIfPossible flushes buffered writers (bufio.Writer and friends) so
// streamed events are visible to tailing readers.
func flushIfPossible(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
