package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ConsoleSink prints human-readable decision lines. Skips and rejections are
// only shown when verbose.
type ConsoleSink struct {
	writer  io.Writer
	verbose bool
	mu      sync.Mutex

	ok   *color.Color
	warn *color.Color
	bad  *color.Color
	dim  *color.Color
}

func NewConsoleSink(w io.Writer, verbose bool) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{
		writer:  w,
		verbose: verbose,
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		bad:     color.New(color.FgRed),
		dim:     color.New(color.Faint),
	}
}

func (s *ConsoleSink) Write(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var line string
	switch ev.Type {
	case EventRepoAccepted:
		text := "[SAVED] " + ev.Repo
		if len(ev.Tools) > 0 {
			text += " " + strings.Join(ev.Tools, ",")
		}
		line = s.ok.Sprint(text)
	case EventRepoErrored:
		line = s.bad.Sprintf("[ERROR] %s: %s", ev.Repo, ev.Error)
	case EventRepoSkipped, EventRepoRejected:
		if !s.verbose {
			return nil
		}
		line = s.dim.Sprintf("[SKIP] %s (%s)", ev.Repo, ev.Reason)
	case EventBatchFlushed:
		line = s.warn.Sprintf("[FLUSH] %d records", ev.Records)
	case EventRunFinished:
		line = fmt.Sprintf("analyzed=%d saved=%d skipped=%d errored=%d",
			ev.Analyzed, ev.Saved, ev.Skipped, ev.Errored)
	default:
		return nil
	}

	if _, err := fmt.Fprintln(s.writer, line); err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

func (s *ConsoleSink) Close() error {
	return nil
}
