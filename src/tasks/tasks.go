// Package tasks enumerates subject folders under a data directory and builds
// the annotation queues. Each immediate subfolder is one task; the record
// inside is named after the folder.
package tasks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/openecglab/ECGAnnotator/src/logging"
)

// Task is one subject folder.
type Task struct {
	Name string
	Dir  string
}

// RecordPrefix returns the record path without extension, <dir>/<name>.
// ReadRecord appends .hea and the signal file names from the header.
func (t Task) RecordPrefix() string { return filepath.Join(t.Dir, t.Name) }

// Discover lists the subfolders of root in name order, skipping names present
// in done. Plain files under root are ignored.
func Discover(root string, done map[string]struct{}) ([]Task, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	// ReadDir sorts by name, which fixes the first-pass queue order
	var out []Task
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, skip := done[e.Name()]; skip {
			continue
		}
		out = append(out, Task{Name: e.Name(), Dir: filepath.Join(root, e.Name())})
	}
	logging.Debugf("tasks: %d pending under %s", len(out), root)
	return out, nil
}

// RecheckQueue maps stored filenames back onto folders under root. Order is
// preserved; names whose folder no longer exists are dropped with a warning.
func RecheckQueue(root string, filenames []string) []Task {
	var out []Task
	for _, name := range filenames {
		dir := filepath.Join(root, name)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			logging.Warnf("tasks: recheck target %s has no folder under %s", name, root)
			continue
		}
		out = append(out, Task{Name: name, Dir: dir})
	}
	return out
}
