package uihelpers

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ComputeWaveformSize applies the clamp rules for the stacked lead image.
// Input: raw canvas width/height and the lead count. Returns total width and
// height; the height is always a whole multiple of the per-lead strip height.
func ComputeWaveformSize(rawW, rawH, leads int) (int, int) {
	w := rawW
	if w < 800 {
		w = 800
	}
	if leads < 1 {
		leads = 1
	}
	strip := 0
	if rawH > 0 {
		// leave room for the status bar and window chrome
		strip = (rawH - 60) / leads
	}
	if strip < 90 {
		strip = 90
	}
	if strip > 220 {
		strip = 220
	}
	return w, strip * leads
}

// ComputeVisibleSamples returns how many samples of a lead fit the display
// window: round(fs*seconds) capped at the signal length.
func ComputeVisibleSamples(fs, seconds float64, sigLen int) int {
	if fs <= 0 || seconds <= 0 || sigLen <= 0 {
		return 0
	}
	n := int(math.Round(fs * seconds))
	if n > sigLen {
		n = sigLen
	}
	if n < 1 {
		n = 1
	}
	return n
}

// PickTimeStep selects a readable tick step for a time window in seconds.
func PickTimeStep(windowSeconds float64) float64 {
	switch {
	case windowSeconds <= 0:
		return 1
	case windowSeconds <= 2:
		return 0.25
	case windowSeconds <= 5:
		return 0.5
	case windowSeconds <= 12:
		return 1
	case windowSeconds <= 25:
		return 2
	case windowSeconds <= 60:
		return 5
	default:
		return 10
	}
}

// BuildTimeTicks returns tick positions from 0 to windowSeconds inclusive at
// the given step (callers can map to chart.Tick).
func BuildTimeTicks(windowSeconds, step float64) []float64 {
	if windowSeconds <= 0 || step <= 0 {
		return []float64{0, windowSeconds}
	}
	var out []float64
	for v := 0.0; v <= windowSeconds+step*0.25; v += step { // small slack for float
		if v > windowSeconds {
			v = windowSeconds
		}
		out = append(out, round6(v))
		if v == windowSeconds {
			break
		}
	}
	if len(out) < 2 {
		out = []float64{0, windowSeconds}
	}
	return out
}

// round6 rounds to 6 decimal places to stabilize test comparisons / labels prep.
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

// DownsampleMinMax reduces a trace to at most maxPoints while keeping each
// bucket's extremes, so narrow spikes survive the reduction. Returns the kept
// sample indices and their values in index order. All-NaN buckets keep a
// single NaN so gaps stay visible.
func DownsampleMinMax(samples []float64, maxPoints int) ([]int, []float64) {
	n := len(samples)
	if maxPoints < 2 || n <= maxPoints {
		idxs := make([]int, n)
		for i := range idxs {
			idxs[i] = i
		}
		return idxs, append([]float64(nil), samples...)
	}
	buckets := maxPoints / 2
	idxs := make([]int, 0, 2*buckets)
	vals := make([]float64, 0, 2*buckets)
	for b := 0; b < buckets; b++ {
		lo := b * n / buckets
		hi := (b + 1) * n / buckets
		if hi <= lo {
			hi = lo + 1
		}
		minI, maxI := -1, -1
		var minV, maxV float64
		for i := lo; i < hi && i < n; i++ {
			v := samples[i]
			if math.IsNaN(v) {
				continue
			}
			if minI == -1 || v < minV {
				minI, minV = i, v
			}
			if maxI == -1 || v > maxV {
				maxI, maxV = i, v
			}
		}
		if minI == -1 {
			idxs = append(idxs, lo)
			vals = append(vals, math.NaN())
			continue
		}
		if minI <= maxI {
			idxs = append(idxs, minI)
			vals = append(vals, minV)
			if maxI != minI {
				idxs = append(idxs, maxI)
				vals = append(vals, maxV)
			}
		} else {
			idxs = append(idxs, maxI)
			vals = append(vals, maxV)
			idxs = append(idxs, minI)
			vals = append(vals, minV)
		}
	}
	return idxs, vals
}

// Segment is a contiguous run of drawable points.
type Segment struct {
	Xs []float64
	Ys []float64
}

// SplitSegments breaks a series at NaN gaps so a plotted line never bridges
// missing samples.
func SplitSegments(xs, ys []float64) []Segment {
	var out []Segment
	var cur Segment
	flush := func() {
		if len(cur.Xs) > 0 {
			out = append(out, cur)
			cur = Segment{}
		}
	}
	for i := range ys {
		if i < len(xs) && !math.IsNaN(ys[i]) {
			cur.Xs = append(cur.Xs, xs[i])
			cur.Ys = append(cur.Ys, ys[i])
		} else {
			flush()
		}
	}
	flush()
	return out
}

// FormatStatus renders the side panel status card text for the current task.
// pos is 1-based.
func FormatStatus(recheck bool, name string, pos, total int) string {
	tag := "[first pass]"
	if recheck {
		tag = "[recheck]"
	}
	return fmt.Sprintf("%s\n%s\n(%d/%d)", tag, name, pos, total)
}

// LeadName returns the display name for a lead, falling back to L<n> when the
// header carried no description.
func LeadName(name string, index int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf("L%d", index+1)
	}
	return name
}

// FormatTimeTick provides a compact axis label for a tick in seconds.
func FormatTimeTick(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatSampleValue renders a crosshair readout such as "0.512 mV".
func FormatSampleValue(v float64, units string) string {
	if math.IsNaN(v) {
		return "no data"
	}
	if strings.TrimSpace(units) == "" {
		units = "mV"
	}
	return fmt.Sprintf("%.3f %s", v, units)
}
