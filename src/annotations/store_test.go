package annotations

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "annotations.csv"))
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("store file should not be created before the first label, stat err = %v", err)
	}
}

func TestApplyFirst_AppendsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.csv")
	s := openStore(t, path)
	if err := s.ApplyFirst("100", "batch_a", Malignant, "alice"); err != nil {
		t.Fatalf("ApplyFirst: %v", err)
	}
	if err := s.ApplyFirst("101", "batch_a", Unknown, "alice"); err != nil {
		t.Fatalf("ApplyFirst: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(raw), "\uFEFF") {
		t.Errorf("store file missing UTF-8 BOM, starts with % x", raw[:3])
	}
	first := strings.SplitN(strings.TrimPrefix(string(raw), "\uFEFF"), "\n", 2)[0]
	if got, want := strings.TrimSpace(first), "filename,foldername,is_malignant,annotator,is_malignant_2nd,annotator_2nd"; got != want {
		t.Errorf("header = %q, want %q", got, want)
	}

	reopened := openStore(t, path)
	rows := reopened.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows after reopen = %d, want 2", len(rows))
	}
	if rows[0].Filename != "100" || rows[0].First != Malignant || rows[0].Annotator != "alice" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Filename != "101" || rows[1].First != Unknown {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[1].Second != nil {
		t.Errorf("row 1 second label should be unset, got %v", *rows[1].Second)
	}
}

func TestApplyFirst_OverwritesExistingRow(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "annotations.csv"))
	if err := s.ApplyFirst("100", "batch_a", Unknown, "alice"); err != nil {
		t.Fatalf("ApplyFirst: %v", err)
	}
	if err := s.ApplyFirst("100", "batch_b", Malignant, "bob"); err != nil {
		t.Fatalf("ApplyFirst relabel: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	row, ok := s.Lookup("100")
	if !ok {
		t.Fatal("Lookup(100) missing")
	}
	if row.First != Malignant || row.Annotator != "bob" {
		t.Errorf("row = %+v, want relabeled by bob", row)
	}
	if row.Foldername != "batch_a" {
		t.Errorf("foldername = %q, relabel must not move the row to %q", row.Foldername, "batch_b")
	}
}

func TestApplySecond(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "annotations.csv"))
	if err := s.ApplyFirst("100", "batch_a", Unknown, "alice"); err != nil {
		t.Fatalf("ApplyFirst: %v", err)
	}
	if err := s.ApplySecond("100", Benign, "bob"); err != nil {
		t.Fatalf("ApplySecond: %v", err)
	}
	row, _ := s.Lookup("100")
	if row.Second == nil || *row.Second != Benign || row.Annotator2nd != "bob" {
		t.Errorf("row = %+v, want second pass benign by bob", row)
	}
	if row.First != Unknown || row.Annotator != "alice" {
		t.Errorf("second pass must not touch first-pass fields, row = %+v", row)
	}

	err := s.ApplySecond("missing", Benign, "bob")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ApplySecond(missing) err = %v, want ErrNotFound", err)
	}
}

func TestApply_RejectsBadLabel(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "annotations.csv"))
	if err := s.ApplyFirst("100", "batch_a", Label(7), "alice"); !errors.Is(err, ErrBadLabel) {
		t.Errorf("ApplyFirst(7) err = %v, want ErrBadLabel", err)
	}
	if err := s.ApplySecond("100", Label(-1), "alice"); !errors.Is(err, ErrBadLabel) {
		t.Errorf("ApplySecond(-1) err = %v, want ErrBadLabel", err)
	}
}

func TestRecheckTargets_StoredOrderAndFilter(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "annotations.csv"))
	for _, step := range []struct {
		file  string
		label Label
	}{
		{"a", Unknown},
		{"b", Malignant},
		{"c", Unknown},
		{"d", Unknown},
	} {
		if err := s.ApplyFirst(step.file, "batch", step.label, "alice"); err != nil {
			t.Fatalf("ApplyFirst(%s): %v", step.file, err)
		}
	}
	if err := s.ApplySecond("d", Benign, "bob"); err != nil {
		t.Fatalf("ApplySecond: %v", err)
	}

	got := s.RecheckTargets()
	want := []string{"a", "c"}
	if len(got) != len(want) {
		t.Fatalf("RecheckTargets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RecheckTargets = %v, want %v", got, want)
		}
	}
}

func TestLabeledSet(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "annotations.csv"))
	_ = s.ApplyFirst("100", "batch", Benign, "alice")
	_ = s.ApplyFirst("101", "batch", Malignant, "alice")
	set := s.LabeledSet()
	if len(set) != 2 {
		t.Fatalf("LabeledSet size = %d, want 2", len(set))
	}
	for _, name := range []string{"100", "101"} {
		if _, ok := set[name]; !ok {
			t.Errorf("LabeledSet missing %q", name)
		}
	}
}

func TestLoad_ToleratesFloatLabelsAndBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.csv")
	body := "\uFEFFfilename,foldername,is_malignant,annotator,is_malignant_2nd,annotator_2nd\r\n" +
		"100,batch_a,999.0,alice,,\r\n" +
		"101,batch_a,1.0,alice,0.0,bob\r\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := openStore(t, path)
	row, ok := s.Lookup("100")
	if !ok || row.First != Unknown || row.Second != nil {
		t.Errorf("row 100 = %+v, ok = %v", row, ok)
	}
	row, ok = s.Lookup("101")
	if !ok || row.First != Malignant || row.Second == nil || *row.Second != Benign || row.Annotator2nd != "bob" {
		t.Errorf("row 101 = %+v, ok = %v", row, ok)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad header", "filename,dirname,is_malignant,annotator,is_malignant_2nd,annotator_2nd\n"},
		{"bad label", "filename,foldername,is_malignant,annotator,is_malignant_2nd,annotator_2nd\n100,b,7,alice,,\n"},
		{"fractional label", "filename,foldername,is_malignant,annotator,is_malignant_2nd,annotator_2nd\n100,b,1.5,alice,,\n"},
		{"short row", "filename,foldername,is_malignant,annotator,is_malignant_2nd,annotator_2nd\n100,b,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "annotations.csv")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := Open(path); err == nil {
				t.Error("Open succeeded, want parse error")
			}
		})
	}
}

func TestOpen_SecondInstanceBlocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.csv")
	s := openStore(t, path)
	_ = s

	if _, err := Open(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Open err = %v, want ErrLocked", err)
	}
}

func TestReadFile_WhileStoreOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.csv")
	s := openStore(t, path)
	if err := s.ApplyFirst("100", "batch", Malignant, "alice"); err != nil {
		t.Fatalf("ApplyFirst: %v", err)
	}

	rows, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile must not need the lock: %v", err)
	}
	if len(rows) != 1 || rows[0].Filename != "100" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, filepath.Join(dir, "annotations.csv"))
	for _, name := range []string{"a", "b", "c"} {
		if err := s.ApplyFirst(name, "batch", Benign, "alice"); err != nil {
			t.Fatalf("ApplyFirst(%s): %v", name, err)
		}
	}
	leftovers, err := filepath.Glob(filepath.Join(dir, ".annotations-*"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestStats(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "annotations.csv"))
	_ = s.ApplyFirst("a", "batch", Unknown, "alice")
	_ = s.ApplyFirst("b", "batch", Malignant, "alice")
	_ = s.ApplyFirst("c", "batch", Benign, "bob")
	_ = s.ApplyFirst("d", "batch", Unknown, "bob")
	_ = s.ApplySecond("a", Malignant, "carol")

	sum := s.Stats()
	if sum.Total != 4 {
		t.Errorf("Total = %d, want 4", sum.Total)
	}
	if sum.FirstUnknown != 2 || sum.FirstMalignant != 1 || sum.FirstBenign != 1 {
		t.Errorf("first counts = %d/%d/%d, want 2 unknown, 1 malignant, 1 benign",
			sum.FirstUnknown, sum.FirstMalignant, sum.FirstBenign)
	}
	if sum.SecondDone != 1 || sum.SecondMalignant != 1 {
		t.Errorf("second counts = done %d malignant %d, want 1/1", sum.SecondDone, sum.SecondMalignant)
	}
	if sum.RecheckPending != 1 {
		t.Errorf("RecheckPending = %d, want 1 (only %q)", sum.RecheckPending, "d")
	}
	if got := sum.Annotators["alice"]; got.First != 2 || got.Second != 0 {
		t.Errorf("alice = %+v, want 2 first-pass labels", got)
	}
	if got := sum.Annotators["carol"]; got.First != 0 || got.Second != 1 {
		t.Errorf("carol = %+v, want 1 second-pass label", got)
	}
}

func TestLabelString(t *testing.T) {
	tests := []struct {
		label Label
		want  string
	}{
		{Benign, "benign"},
		{Malignant, "malignant"},
		{Unknown, "unknown"},
		{Label(42), "label(42)"},
	}
	for _, tt := range tests {
		if got := tt.label.String(); got != tt.want {
			t.Errorf("Label(%d).String() = %q, want %q", int(tt.label), got, tt.want)
		}
	}
}
