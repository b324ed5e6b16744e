// Package annotations persists labeling decisions in a flat CSV store.
//
// One row per task filename. First-pass labels append rows, relabels and
// second-pass (recheck) labels mutate them in place. Every mutation rewrites
// the complete table to disk so a crash never loses more than the in-flight
// edit. The file is UTF-8 with BOM for spreadsheet compatibility.
package annotations

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/openecglab/ECGAnnotator/src/logging"
)

// Label is an annotation verdict.
type Label int

const (
	Benign    Label = 0
	Malignant Label = 1
	Unknown   Label = 999
)

// Valid reports whether l is one of the three accepted verdicts.
func (l Label) Valid() bool { return l == Benign || l == Malignant || l == Unknown }

func (l Label) String() string {
	switch l {
	case Benign:
		return "benign"
	case Malignant:
		return "malignant"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("label(%d)", int(l))
}

var columns = []string{"filename", "foldername", "is_malignant", "annotator", "is_malignant_2nd", "annotator_2nd"}

var (
	// ErrNotFound means the filename has no row yet.
	ErrNotFound = errors.New("filename not present in store")
	// ErrLocked means another process holds the store lock.
	ErrLocked = errors.New("store is in use by another instance")
	// ErrBadLabel means a value outside 0/1/999 was passed.
	ErrBadLabel = errors.New("label must be 0, 1 or 999")
)

// Row is one stored annotation record. Second is nil until a recheck label is
// applied.
type Row struct {
	Filename     string
	Foldername   string
	First        Label
	Annotator    string
	Second       *Label
	Annotator2nd string
}

// Store is the in-memory table plus its backing CSV file. Safe for concurrent
// use; the backing file is guarded by a file lock for the store's lifetime.
type Store struct {
	mu    sync.Mutex
	path  string
	lock  *flock.Flock
	rows  []Row
	index map[string]int
}

// Open loads the store at path, creating an empty one if the file does not
// exist yet. It acquires <path>.lock and fails with ErrLocked when another
// instance holds it.
func Open(path string) (*Store, error) {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	s := &Store{path: path, lock: lock, index: map[string]int{}}
	if err := s.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

// Close releases the store lock.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// Path returns the backing CSV path.
func (s *Store) Path() string { return s.path }

func (s *Store) load() error {
	rows, err := ReadFile(s.path)
	if err != nil {
		return err
	}
	for _, row := range rows {
		s.index[row.Filename] = len(s.rows)
		s.rows = append(s.rows, row)
	}
	logging.Debugf("store: loaded %d rows from %s", len(s.rows), s.path)
	return nil
}

// ReadFile parses the table at path without taking the store lock, for
// read-only reporting while an annotation session may be running. A missing
// file yields no rows.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	// the decoder strips a leading BOM when present
	r := csv.NewReader(transform.NewReader(f, unicode.UTF8BOM.NewDecoder()))
	r.FieldsPerRecord = len(columns)
	recs, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	for i, name := range recs[0] {
		if strings.TrimSpace(name) != columns[i] {
			return nil, fmt.Errorf("parse %s: unexpected column %q, want %q", path, name, columns[i])
		}
	}
	var rows []Row
	for n, rec := range recs[1:] {
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("parse %s row %d: %w", path, n+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(rec []string) (Row, error) {
	row := Row{
		Filename:     rec[0],
		Foldername:   rec[1],
		Annotator:    rec[3],
		Annotator2nd: rec[5],
	}
	first, err := parseLabel(rec[2])
	if err != nil {
		return Row{}, fmt.Errorf("is_malignant: %w", err)
	}
	row.First = first
	if strings.TrimSpace(rec[4]) != "" {
		second, err := parseLabel(rec[4])
		if err != nil {
			return Row{}, fmt.Errorf("is_malignant_2nd: %w", err)
		}
		row.Second = &second
	}
	return row, nil
}

// parseLabel accepts integer cells and the float renderings ("999.0") other
// tooling writes for this column.
func parseLabel(cell string) (Label, error) {
	cell = strings.TrimSpace(cell)
	n, err := strconv.Atoi(cell)
	if err != nil {
		f, ferr := strconv.ParseFloat(cell, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("bad label %q", cell)
		}
		n = int(f)
	}
	l := Label(n)
	if !l.Valid() {
		return 0, fmt.Errorf("bad label %q: %w", cell, ErrBadLabel)
	}
	return l, nil
}

// Len reports the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Rows returns a copy of the table in stored order.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = copyRow(r)
	}
	return out
}

// Lookup returns the row for filename, if present.
func (s *Store) Lookup(filename string) (Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[filename]
	if !ok {
		return Row{}, false
	}
	return copyRow(s.rows[i]), true
}

func copyRow(r Row) Row {
	if r.Second != nil {
		v := *r.Second
		r.Second = &v
	}
	return r
}

// LabeledSet returns the set of filenames that already have a row.
func (s *Store) LabeledSet() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.rows))
	for _, r := range s.rows {
		out[r.Filename] = struct{}{}
	}
	return out
}

// RecheckTargets returns, in stored order, the filenames whose first pass was
// Unknown and which have no second label yet.
func (s *Store) RecheckTargets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.rows {
		if r.First == Unknown && r.Second == nil {
			out = append(out, r.Filename)
		}
	}
	return out
}

// ApplyFirst records a first-pass label: an existing row is overwritten (last
// write wins), an unseen filename appends a row. The table is saved before
// returning.
func (s *Store) ApplyFirst(filename, foldername string, label Label, annotator string) error {
	if !label.Valid() {
		return fmt.Errorf("%d: %w", int(label), ErrBadLabel)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[filename]; ok {
		s.rows[i].First = label
		s.rows[i].Annotator = annotator
	} else {
		s.index[filename] = len(s.rows)
		s.rows = append(s.rows, Row{Filename: filename, Foldername: foldername, First: label, Annotator: annotator})
	}
	return s.saveLocked()
}

// ApplySecond records a recheck label on an existing row.
func (s *Store) ApplySecond(filename string, label Label, annotator string) error {
	if !label.Valid() {
		return fmt.Errorf("%d: %w", int(label), ErrBadLabel)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[filename]
	if !ok {
		return fmt.Errorf("%s: %w", filename, ErrNotFound)
	}
	v := label
	s.rows[i].Second = &v
	s.rows[i].Annotator2nd = annotator
	return s.saveLocked()
}

// saveLocked rewrites the whole table. Callers hold s.mu. The write goes to a
// temp file in the same directory followed by a rename, so a crash mid-write
// cannot truncate the store.
func (s *Store) saveLocked() error {
	var buf bytes.Buffer
	// the encoder emits the BOM before the first byte
	bw := transform.NewWriter(&buf, unicode.UTF8BOM.NewEncoder())
	w := csv.NewWriter(bw)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	for _, r := range s.rows {
		second, annot2 := "", r.Annotator2nd
		if r.Second != nil {
			second = strconv.Itoa(int(*r.Second))
		}
		rec := []string{r.Filename, r.Foldername, strconv.Itoa(int(r.First)), r.Annotator, second, annot2}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("encode store: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".annotations-*.csv")
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	logging.Debugf("store: wrote %d rows to %s", len(s.rows), s.path)
	return nil
}
