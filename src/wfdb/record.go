package wfdb

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Signal is one lead of a record, in physical units.
type Signal struct {
	Name     string
	Units    string
	Gain     float64
	Baseline int
	Samples  []float64
}

// Record is a fully read WFDB record.
type Record struct {
	Name    string
	Fs      float64
	SigLen  int
	Signals []Signal
}

// Duration reports the record length in wall time.
func (r *Record) Duration() time.Duration {
	if r.Fs <= 0 {
		return 0
	}
	return time.Duration(float64(r.SigLen) / r.Fs * float64(time.Second))
}

// ReadRecord reads the record at prefix, where <prefix>.hea is the header and
// the signal files it names live in the same directory. Frames with several
// samples per signal are averaged down to one sample (smoothing).
func ReadRecord(prefix string) (*Record, error) {
	h, err := ReadHeader(prefix + ".hea")
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	dir := filepath.Dir(prefix)
	rec := &Record{Name: h.Name, Fs: h.Fs, SigLen: h.SigLen}
	rec.Signals = make([]Signal, h.NumSig)
	for i, spec := range h.Signals {
		rec.Signals[i] = Signal{Name: spec.Description, Units: spec.Units, Gain: spec.Gain, Baseline: spec.Baseline}
	}

	for _, grp := range groupByFile(h.Signals) {
		if err := readGroup(rec, h, grp, dir); err != nil {
			return nil, fmt.Errorf("read signals: %w", err)
		}
	}
	if rec.SigLen == 0 && len(rec.Signals) > 0 {
		rec.SigLen = len(rec.Signals[0].Samples)
	}
	return rec, nil
}

// fileGroup is the set of signals stored interleaved in one signal file.
type fileGroup struct {
	file    string
	indices []int
}

func groupByFile(specs []SignalSpec) []fileGroup {
	var groups []fileGroup
	byFile := map[string]int{}
	for i, s := range specs {
		gi, ok := byFile[s.FileName]
		if !ok {
			gi = len(groups)
			byFile[s.FileName] = gi
			groups = append(groups, fileGroup{file: s.FileName})
		}
		groups[gi].indices = append(groups[gi].indices, i)
	}
	return groups
}

func readGroup(rec *Record, h *Header, grp fileGroup, dir string) error {
	first := h.Signals[grp.indices[0]]
	format := first.Format
	for _, si := range grp.indices {
		if h.Signals[si].Format != format {
			return fmt.Errorf("%s: signals sharing one file use different formats", grp.file)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, grp.file))
	if err != nil {
		return err
	}
	if off := first.ByteOffset; off > 0 {
		if off > len(data) {
			return fmt.Errorf("%s: byte offset %d beyond file size %d", grp.file, off, len(data))
		}
		data = data[off:]
	}
	samples, err := decodeSamples(format, data)
	if err != nil {
		return fmt.Errorf("%s: %w", grp.file, err)
	}

	frameSamples := 0
	for _, si := range grp.indices {
		frameSamples += h.Signals[si].SamplesPerFrame
	}
	frames := len(samples) / frameSamples
	if h.SigLen > 0 {
		if frames < h.SigLen {
			return fmt.Errorf("%s: short signal file: %d frames, header declares %d", grp.file, frames, h.SigLen)
		}
		frames = h.SigLen
	}

	sentinel, hasSentinel := invalidValue(format)
	// format 8 stores first differences; reconstruct per-signal running values
	acc := map[int]int32{}
	if format == 8 {
		for _, si := range grp.indices {
			acc[si] = int32(h.Signals[si].InitValue)
		}
	}
	for _, si := range grp.indices {
		rec.Signals[si].Samples = make([]float64, frames)
	}
	pos := 0
	for f := 0; f < frames; f++ {
		for _, si := range grp.indices {
			spec := h.Signals[si]
			sum := 0.0
			valid := 0
			for k := 0; k < spec.SamplesPerFrame; k++ {
				d := samples[pos]
				pos++
				if format == 8 {
					acc[si] += d
					d = acc[si]
				}
				v := physical(d, spec, sentinel, hasSentinel)
				if !math.IsNaN(v) {
					sum += v
					valid++
				}
			}
			if valid == 0 {
				rec.Signals[si].Samples[f] = math.NaN()
			} else {
				rec.Signals[si].Samples[f] = sum / float64(valid)
			}
		}
	}
	return nil
}
