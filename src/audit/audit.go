// Package audit keeps an append-only JSONL trail of labeling decisions. The
// annotations table only holds the latest verdict per file; the audit log is
// where overwritten first-pass labels and session history survive.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion marks the event layout. Readers skip events stamped with a
// newer version instead of failing.
const SchemaVersion = 1

// Event is one labeling decision. Pass is 1 for first-pass labels and 2 for
// recheck labels.
type Event struct {
	SchemaVersion int    `json:"schema_version"`
	SessionID     string `json:"session_id"`
	Timestamp     string `json:"timestamp"`
	Annotator     string `json:"annotator"`
	Filename      string `json:"filename"`
	Foldername    string `json:"foldername"`
	Label         int    `json:"label"`
	Pass          int    `json:"pass"`
}

// Time parses the event timestamp, zero on failure.
func (e Event) Time() time.Time {
	ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Writer appends events to a JSONL file. All events from one Writer share a
// session id. Safe for concurrent use.
type Writer struct {
	mu        sync.Mutex
	f         *os.File
	sessionID string
}

// NewWriter opens path for appending, creating it if needed.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Writer{f: f, sessionID: uuid.NewString()}, nil
}

// SessionID returns the id stamped on every event from this Writer.
func (w *Writer) SessionID() string { return w.sessionID }

// Record appends one event and flushes it to the OS before returning.
func (w *Writer) Record(annotator, filename, foldername string, label, pass int) error {
	ev := Event{
		SchemaVersion: SchemaVersion,
		SessionID:     w.sessionID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Annotator:     annotator,
		Filename:      filename,
		Foldername:    foldername,
		Label:         label,
		Pass:          pass,
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
