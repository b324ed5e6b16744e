package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/openecglab/ECGAnnotator/src/logging"
)

// maxLineBytes bounds a single audit line. Anything longer is corruption.
const maxLineBytes = 1 << 20

// ReadRecent returns up to limit events from the end of the log, oldest
// first. Malformed lines and events from newer schemas are skipped. A missing
// file yields no events.
func ReadRecent(path string, limit int) ([]Event, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	skipped := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			skipped++
			continue
		}
		if ev.SchemaVersion > SchemaVersion {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	if skipped > 0 {
		logging.Warnf("audit: skipped %d unreadable events in %s", skipped, path)
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// SessionSummary aggregates one session's events.
type SessionSummary struct {
	SessionID  string
	Annotator  string
	Events     int
	FirstPass  int
	SecondPass int
	Start      time.Time
	End        time.Time
}

// Summarize groups events by session id, ordered by session start.
func Summarize(events []Event) []SessionSummary {
	byID := map[string]*SessionSummary{}
	var order []string
	for _, ev := range events {
		s, ok := byID[ev.SessionID]
		if !ok {
			s = &SessionSummary{SessionID: ev.SessionID, Annotator: ev.Annotator}
			byID[ev.SessionID] = s
			order = append(order, ev.SessionID)
		}
		s.Events++
		switch ev.Pass {
		case 1:
			s.FirstPass++
		case 2:
			s.SecondPass++
		}
		ts := ev.Time()
		if ts.IsZero() {
			continue
		}
		if s.Start.IsZero() || ts.Before(s.Start) {
			s.Start = ts
		}
		if ts.After(s.End) {
			s.End = ts
		}
	}
	out := make([]SessionSummary, 0, len(byID))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
