package annotations

// AnnotatorCount tallies how many labels one annotator applied per pass.
type AnnotatorCount struct {
	First  int
	Second int
}

// Summary aggregates the store for reporting.
type Summary struct {
	Total           int
	FirstBenign     int
	FirstMalignant  int
	FirstUnknown    int
	SecondDone      int
	SecondBenign    int
	SecondMalignant int
	SecondUnknown   int
	RecheckPending  int
	Annotators      map[string]AnnotatorCount
}

// Stats computes label and annotator tallies over the current table.
func (s *Store) Stats() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summarize(s.rows)
}

// Summarize computes label and annotator tallies over rows.
func Summarize(rows []Row) Summary {
	sum := Summary{Total: len(rows), Annotators: map[string]AnnotatorCount{}}
	for _, r := range rows {
		switch r.First {
		case Benign:
			sum.FirstBenign++
		case Malignant:
			sum.FirstMalignant++
		case Unknown:
			sum.FirstUnknown++
		}
		if r.Annotator != "" {
			ac := sum.Annotators[r.Annotator]
			ac.First++
			sum.Annotators[r.Annotator] = ac
		}
		if r.Second == nil {
			if r.First == Unknown {
				sum.RecheckPending++
			}
			continue
		}
		sum.SecondDone++
		switch *r.Second {
		case Benign:
			sum.SecondBenign++
		case Malignant:
			sum.SecondMalignant++
		case Unknown:
			sum.SecondUnknown++
		}
		if r.Annotator2nd != "" {
			ac := sum.Annotators[r.Annotator2nd]
			ac.Second++
			sum.Annotators[r.Annotator2nd] = ac
		}
	}
	return sum
}
