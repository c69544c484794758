// Package logging provides leveled logging and run tracing for episim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TraceLogger for typed JSONL run and step events (<dir>/trace.jsonl)
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level the engine
// logs every individual infection event.
const LevelTrace = slog.LevelDebug - 4

// TraceFile is the name of the JSONL file written by TraceLogger.
const TraceFile = "trace.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// RunEvent opens an SI run in the trace.
type RunEvent struct {
	Nodes   int     `json:"nodes"`
	Steps   int     `json:"steps"`
	Beta    float64 `json:"beta"`
	Initial []int   `json:"initial"`
}

// StepEvent records one completed sweep: the nodes infected during it, the
// infected total afterwards and the random draws it consumed.
type StepEvent struct {
	Step       int   `json:"step"`
	Infections []int `json:"infections"`
	Infected   int   `json:"infected"`
	Trials     int   `json:"trials"`
}

// TraceEntry is one line of trace.jsonl. Event is "run" or "step" and
// names the embedded event that is set.
type TraceEntry struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	*RunEvent
	*StepEvent
}

// TraceLogger writes run and step events to a JSONL file.
// It is safe for concurrent use. A nil TraceLogger is safe to use;
// all methods are no-ops on nil receiver.
type TraceLogger struct {
	mu      sync.Mutex
	file    *os.File
	nowFunc func() time.Time
}

// NewTraceLogger creates a trace logger writing to dir/trace.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened.
func NewTraceLogger(dir string, level string) *TraceLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, TraceFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &TraceLogger{file: f, nowFunc: time.Now}
}

// LogRun records the start of a run.
func (tl *TraceLogger) LogRun(ev RunEvent) {
	if ev.Initial == nil {
		ev.Initial = []int{}
	}
	tl.write(TraceEntry{Event: "run", RunEvent: &ev})
}

// LogStep records a completed step. A nil Infections list is written as [].
func (tl *TraceLogger) LogStep(ev StepEvent) {
	if ev.Infections == nil {
		ev.Infections = []int{}
	}
	tl.write(TraceEntry{Event: "step", StepEvent: &ev})
}

func (tl *TraceLogger) write(entry TraceEntry) {
	if tl == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.file == nil {
		return
	}

	entry.Time = tl.nowFunc().UTC()
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = tl.file.Write(append(data, '\n'))
}

// ReadTrace decodes every entry of a trace file, in order.
func ReadTrace(path string) ([]TraceEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []TraceEntry
	dec := json.NewDecoder(f)
	for dec.More() {
		var e TraceEntry
		if err := dec.Decode(&e); err != nil {
			return entries, fmt.Errorf("trace entry %d: %w", len(entries)+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Close closes the underlying file. Safe to call on nil receiver.
func (tl *TraceLogger) Close() {
	if tl == nil || tl.file == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.file.Close()
	tl.file = nil
}
