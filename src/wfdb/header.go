// Package wfdb reads single-segment WFDB records: a text header (<prefix>.hea)
// describing the signals plus one or more binary signal files. Values are
// returned in physical units via the per-signal gain and baseline.
package wfdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultGain substitutes for a zero/absent ADC gain per the header conventions.
const DefaultGain = 200.0

// DefaultFs substitutes for an absent sampling frequency.
const DefaultFs = 250.0

// SignalSpec is one parsed signal description line.
type SignalSpec struct {
	FileName        string
	Format          int
	SamplesPerFrame int
	Skew            int
	ByteOffset      int
	Gain            float64
	Baseline        int
	Units           string
	ADCRes          int
	ADCZero         int
	InitValue       int
	Checksum        int
	BlockSize       int
	Description     string
}

// Header is a parsed .hea file.
type Header struct {
	Name    string
	NumSig  int
	Fs      float64
	SigLen  int
	Signals []SignalSpec
}

// ReadHeader parses the header file at path.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, err := parseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

func parseHeader(r io.Reader) (*Header, error) {
	sc := bufio.NewScanner(r)
	var h *Header
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if h == nil {
			rec, err := parseRecordLine(line)
			if err != nil {
				return nil, err
			}
			h = rec
			continue
		}
		if len(h.Signals) == h.NumSig {
			// info lines after the signal specs are ignored
			break
		}
		spec, err := parseSignalLine(line)
		if err != nil {
			return nil, fmt.Errorf("signal line %d: %w", len(h.Signals)+1, err)
		}
		h.Signals = append(h.Signals, spec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("empty header")
	}
	if len(h.Signals) != h.NumSig {
		return nil, fmt.Errorf("header declares %d signals, found %d", h.NumSig, len(h.Signals))
	}
	return h, nil
}

func parseRecordLine(line string) (*Header, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, fmt.Errorf("record line: expected at least name and signal count")
	}
	name := fields[0]
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return nil, fmt.Errorf("record %q: multi-segment records are not supported", name)
	}
	nsig, err := strconv.Atoi(fields[1])
	if err != nil || nsig < 1 {
		return nil, fmt.Errorf("record line: bad signal count %q", fields[1])
	}
	h := &Header{Name: name, NumSig: nsig, Fs: DefaultFs, Signals: make([]SignalSpec, 0, nsig)}
	if len(fields) >= 3 {
		// fs may carry a counter-frequency suffix: "360/12(0)"
		fsField := fields[2]
		if i := strings.IndexByte(fsField, '/'); i >= 0 {
			fsField = fsField[:i]
		}
		fs, err := strconv.ParseFloat(fsField, 64)
		if err != nil || fs <= 0 {
			return nil, fmt.Errorf("record line: bad sampling frequency %q", fields[2])
		}
		h.Fs = fs
	}
	if len(fields) >= 4 {
		n, err := strconv.Atoi(fields[3])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("record line: bad sample count %q", fields[3])
		}
		h.SigLen = n
	}
	// base time and date, if present, are ignored
	return h, nil
}

func parseSignalLine(line string) (SignalSpec, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return SignalSpec{}, fmt.Errorf("expected file name and format")
	}
	spec := SignalSpec{
		FileName:        fields[0],
		SamplesPerFrame: 1,
		Gain:            DefaultGain,
		Units:           "mV",
	}
	var err error
	spec.Format, spec.SamplesPerFrame, spec.Skew, spec.ByteOffset, err = parseFormatSpec(fields[1])
	if err != nil {
		return SignalSpec{}, err
	}
	haveBaseline := false
	if len(fields) >= 3 {
		gain, baseline, units, gerr := parseGainSpec(fields[2])
		if gerr != nil {
			return SignalSpec{}, gerr
		}
		if gain != 0 {
			spec.Gain = gain
		}
		if baseline != nil {
			spec.Baseline = *baseline
			haveBaseline = true
		}
		if units != "" {
			spec.Units = units
		}
	}
	ints := []*int{&spec.ADCRes, &spec.ADCZero, &spec.InitValue, &spec.Checksum, &spec.BlockSize}
	for i, dst := range ints {
		fi := 3 + i
		if fi >= len(fields) {
			break
		}
		v, cerr := strconv.Atoi(fields[fi])
		if cerr != nil {
			return SignalSpec{}, fmt.Errorf("bad field %q", fields[fi])
		}
		*dst = v
	}
	if !haveBaseline {
		spec.Baseline = spec.ADCZero
	}
	if len(fields) <= 5 {
		// initval defaults to adczero when absent (matters for format 8)
		spec.InitValue = spec.ADCZero
	}
	if len(fields) > 8 {
		spec.Description = strings.Join(fields[8:], " ")
	}
	return spec, nil
}

// parseFormatSpec splits a format field such as "212x4:3+8" into its parts:
// format, optional samples-per-frame (x), skew (:) and byte offset (+).
func parseFormatSpec(s string) (format, spf, skew, offset int, err error) {
	spf = 1
	rest := s
	// the optional parts appear in fixed order; peel from the right
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		offset, err = strconv.Atoi(rest[i+1:])
		if err != nil || offset < 0 {
			return 0, 0, 0, 0, fmt.Errorf("bad byte offset in format %q", s)
		}
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		skew, err = strconv.Atoi(rest[i+1:])
		if err != nil || skew < 0 {
			return 0, 0, 0, 0, fmt.Errorf("bad skew in format %q", s)
		}
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, 'x'); i >= 0 {
		spf, err = strconv.Atoi(rest[i+1:])
		if err != nil || spf < 1 {
			return 0, 0, 0, 0, fmt.Errorf("bad samples-per-frame in format %q", s)
		}
		rest = rest[:i]
	}
	format, err = strconv.Atoi(rest)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("bad format %q", s)
	}
	return format, spf, skew, offset, nil
}

// parseGainSpec splits a gain field such as "200(1024)/mV" into gain, optional
// baseline and optional units.
func parseGainSpec(s string) (float64, *int, string, error) {
	units := ""
	rest := s
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		units = rest[i+1:]
		rest = rest[:i]
	}
	var baseline *int
	if i := strings.IndexByte(rest, '('); i >= 0 {
		j := strings.IndexByte(rest, ')')
		if j < i {
			return 0, nil, "", fmt.Errorf("bad baseline in gain %q", s)
		}
		b, err := strconv.Atoi(rest[i+1 : j])
		if err != nil {
			return 0, nil, "", fmt.Errorf("bad baseline in gain %q", s)
		}
		baseline = &b
		rest = rest[:i]
	}
	gain, err := strconv.ParseFloat(rest, 64)
	if err != nil || gain < 0 {
		return 0, nil, "", fmt.Errorf("bad gain %q", s)
	}
	return gain, baseline, units, nil
}
