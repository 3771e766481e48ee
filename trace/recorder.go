// Package trace captures the diagnostic transcript of a team invocation.
//
// Scraping a shared stdout stream is racy when several invocations run in
// one process, so the recorder is an explicit event log instead: components
// append {time, level, text} events, each event is duplicated live to a
// writer (normally stdout) for operator debugging, and the full transcript
// stays in memory for persistence.
package trace

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level classifies a recorded event.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// Event is one line of the diagnostic transcript.
type Event struct {
	Time  time.Time
	Level Level
	Text  string
}

// Recorder accumulates events for a single invocation. It is safe for
// concurrent use; events keep their append order, and live output is written
// under the same lock so the transcript and the writer never diverge.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	live   io.Writer
}

// NewRecorder creates a recorder that mirrors every event to live.
// Pass nil to keep the transcript in memory only.
func NewRecorder(live io.Writer) *Recorder {
	return &Recorder{live: live}
}

// Record appends a formatted event and mirrors it to the live writer.
// A nil recorder discards events, so callers never need a guard.
func (r *Recorder) Record(level Level, format string, args ...any) {
	if r == nil {
		return
	}
	ev := Event{Time: time.Now().UTC(), Level: level, Text: fmt.Sprintf(format, args...)}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
	if r.live != nil {
		fmt.Fprintf(r.live, "%s %s %s\n", ev.Time.Format(time.RFC3339Nano), ev.Level, ev.Text)
	}
}

// Debugf records a debug-level event.
func (r *Recorder) Debugf(format string, args ...any) { r.Record(LevelDebug, format, args...) }

// Infof records an info-level event.
func (r *Recorder) Infof(format string, args ...any) { r.Record(LevelInfo, format, args...) }

// Errorf records an error-level event.
func (r *Recorder) Errorf(format string, args ...any) { r.Record(LevelError, format, args...) }

// Events returns a snapshot of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Transcript renders the recorded events as the persistable raw log, one
// line per event, ANSI escape sequences stripped.
func (r *Recorder) Transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return ""
	}

	var b strings.Builder
	for _, ev := range r.events {
		b.WriteString(ev.Time.Format(time.RFC3339Nano))
		b.WriteByte(' ')
		b.WriteString(string(ev.Level))
		b.WriteByte(' ')
		b.WriteString(ev.Text)
		b.WriteByte('\n')
	}

	return StripANSI(b.String())
}
