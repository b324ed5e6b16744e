package wfdb

import (
	"strings"
	"testing"
)

func TestParseHeader_ClassicTwoLead(t *testing.T) {
	src := "100 2 360 650000\n" +
		"100.dat 212 200 11 1024 995 -22131 0 MLII\n" +
		"100.dat 212 200 11 1024 1011 20052 0 V5\n" +
		"# 69 M 1085 1629 x1\n"
	h, err := parseHeader(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if h.Name != "100" || h.NumSig != 2 {
		t.Fatalf("record line: got name=%q nsig=%d", h.Name, h.NumSig)
	}
	if h.Fs != 360 || h.SigLen != 650000 {
		t.Fatalf("record line: got fs=%v siglen=%d", h.Fs, h.SigLen)
	}
	s0 := h.Signals[0]
	if s0.FileName != "100.dat" || s0.Format != 212 || s0.SamplesPerFrame != 1 {
		t.Fatalf("signal 0: got file=%q fmt=%d spf=%d", s0.FileName, s0.Format, s0.SamplesPerFrame)
	}
	if s0.Gain != 200 || s0.Baseline != 1024 || s0.Units != "mV" {
		t.Fatalf("signal 0: got gain=%v baseline=%d units=%q", s0.Gain, s0.Baseline, s0.Units)
	}
	if s0.ADCRes != 11 || s0.InitValue != 995 || s0.Checksum != -22131 {
		t.Fatalf("signal 0: got adcres=%d initval=%d checksum=%d", s0.ADCRes, s0.InitValue, s0.Checksum)
	}
	if s0.Description != "MLII" || h.Signals[1].Description != "V5" {
		t.Fatalf("descriptions: got %q, %q", s0.Description, h.Signals[1].Description)
	}
}

func TestParseHeader_Defaults(t *testing.T) {
	h, err := parseHeader(strings.NewReader("r 1\nr.dat 16\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if h.Fs != DefaultFs {
		t.Fatalf("fs default: got %v want %v", h.Fs, DefaultFs)
	}
	if h.SigLen != 0 {
		t.Fatalf("siglen default: got %d want 0", h.SigLen)
	}
	s := h.Signals[0]
	if s.Gain != DefaultGain || s.Units != "mV" || s.Baseline != 0 || s.SamplesPerFrame != 1 {
		t.Fatalf("signal defaults: got %+v", s)
	}
}

func TestParseHeader_GainBaselineUnits(t *testing.T) {
	cases := []struct {
		name     string
		field    string
		gain     float64
		baseline int
		units    string
	}{
		{"plain", "100", 100, 0, "mV"},
		{"zero gain falls back", "0", DefaultGain, 0, "mV"},
		{"fractional with units", "100.5/uV", 100.5, 0, "uV"},
		{"baseline", "200(512)", 200, 512, "mV"},
		{"baseline and units", "200(-32)/mmHg", 200, -32, "mmHg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := "r 1 250\nr.dat 16 " + tc.field + "\n"
			h, err := parseHeader(strings.NewReader(src))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			s := h.Signals[0]
			if s.Gain != tc.gain || s.Baseline != tc.baseline || s.Units != tc.units {
				t.Fatalf("got gain=%v baseline=%d units=%q, want gain=%v baseline=%d units=%q",
					s.Gain, s.Baseline, s.Units, tc.gain, tc.baseline, tc.units)
			}
		})
	}
}

func TestParseHeader_BaselineDefaultsToADCZero(t *testing.T) {
	h, err := parseHeader(strings.NewReader("r 1 250\nr.dat 16 200 12 1024\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := h.Signals[0].Baseline; got != 1024 {
		t.Fatalf("baseline: got %d want 1024", got)
	}
	if got := h.Signals[0].InitValue; got != 1024 {
		t.Fatalf("initval should default to adczero: got %d want 1024", got)
	}
}

func TestParseFormatSpec(t *testing.T) {
	cases := []struct {
		in                       string
		format, spf, skew, offst int
	}{
		{"212", 212, 1, 0, 0},
		{"16x4", 16, 4, 0, 0},
		{"212:3", 212, 1, 3, 0},
		{"16+24", 16, 1, 0, 24},
		{"212x2:3+8", 212, 2, 3, 8},
	}
	for _, tc := range cases {
		f, spf, skew, off, err := parseFormatSpec(tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if f != tc.format || spf != tc.spf || skew != tc.skew || off != tc.offst {
			t.Fatalf("%s: got fmt=%d spf=%d skew=%d off=%d, want fmt=%d spf=%d skew=%d off=%d",
				tc.in, f, spf, skew, off, tc.format, tc.spf, tc.skew, tc.offst)
		}
	}
}

func TestParseHeader_CounterFrequencySuffix(t *testing.T) {
	h, err := parseHeader(strings.NewReader("r 1 360/12(0) 100\nr.dat 16\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if h.Fs != 360 {
		t.Fatalf("fs: got %v want 360", h.Fs)
	}
}

func TestParseHeader_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"only comments", "# nothing here\n"},
		{"record line too short", "justaname\n"},
		{"bad nsig", "r x\n"},
		{"multi-segment", "r/3 2 360\nr.dat 16\nr.dat 16\n"},
		{"bad fs", "r 1 fast\nr.dat 16\n"},
		{"missing signal line", "r 2 360\nr.dat 16\n"},
		{"signal line too short", "r 1 360\nr.dat\n"},
		{"bad gain", "r 1 360\nr.dat 16 loud\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseHeader(strings.NewReader(tc.src)); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}
