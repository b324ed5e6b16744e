package main

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/openecglab/ECGAnnotator/cmd/ecgannotator/uihelpers"
	"github.com/openecglab/ECGAnnotator/src/logging"
	"github.com/openecglab/ECGAnnotator/src/wfdb"
)

// Plot geometry and palette, matching the tool's dark waveform look.
// The paddings must stay wider than the x-axis tick label and axis name
// overhang: go-chart only shrinks the canvas box when those spill past the
// image edge, so with enough padding every strip's plot region is exactly
// the configured box and the crosshair can map cursor x back to time with
// the same constants.
const (
	waveLeftPad  = 56
	waveRightPad = 28
)

var (
	waveBackground = drawing.Color{R: 0x12, G: 0x12, B: 0x12, A: 0xFF}
	waveTrace      = drawing.Color{R: 0x00, G: 0xFF, B: 0xCC, A: 0xFF}
	waveFrame      = drawing.Color{R: 0x44, G: 0x44, B: 0x44, A: 0xFF}
	waveGridMajor  = drawing.Color{R: 0x33, G: 0x33, B: 0x33, A: 0xFF}
	waveGridMinor  = drawing.Color{R: 0x22, G: 0x22, B: 0x22, A: 0xFF}
	waveLabel      = drawing.Color{R: 0xAA, G: 0xAA, B: 0xAA, A: 0xFF}
)

// leadView is one lead prepared for drawing: the visible window of samples in
// physical units, plus the downsampled points actually plotted.
type leadView struct {
	Name  string
	Units string
	Fs    float64

	// plotted points (possibly min/max reduced)
	Xs []float64
	Ys []float64

	// full visible window, for the crosshair readout
	Samples []float64
}

// buildLeadViews cuts every lead down to the display window and reduces dense
// traces to at most maxPoints plotted points. maxPoints <= 0 disables the
// reduction.
func buildLeadViews(rec *wfdb.Record, seconds float64, maxPoints int) []leadView {
	if rec == nil {
		return nil
	}
	views := make([]leadView, 0, len(rec.Signals))
	for i, sig := range rec.Signals {
		limit := uihelpers.ComputeVisibleSamples(rec.Fs, seconds, len(sig.Samples))
		window := sig.Samples[:limit]
		idxs, vals := uihelpers.DownsampleMinMax(window, maxPoints)
		xs := make([]float64, len(idxs))
		for j, idx := range idxs {
			xs[j] = float64(idx) / rec.Fs
		}
		views = append(views, leadView{
			Name:    uihelpers.LeadName(sig.Name, i),
			Units:   sig.Units,
			Fs:      rec.Fs,
			Xs:      xs,
			Ys:      vals,
			Samples: window,
		})
	}
	return views
}

// renderWaveform composites one strip per lead into a single image of the
// requested size. The bottom strip carries the time axis labels; the others
// share its grid. Render failures fall back to the blank dark image so the
// canvas never goes white.
func renderWaveform(views []leadView, w, h int, windowSeconds float64) image.Image {
	if len(views) == 0 || w < 1 || h < 1 {
		return blank(w, h)
	}
	strip := h / len(views)
	if strip < 1 {
		strip = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, w, strip*len(views)))
	for i, v := range views {
		bottom := i == len(views)-1
		img := renderLeadStrip(v, w, strip, windowSeconds, bottom)
		draw.Draw(out, image.Rect(0, i*strip, w, (i+1)*strip), img, image.Point{}, draw.Src)
	}
	return out
}

// renderLeadStrip draws a single lead as a go-chart line chart and stamps the
// lead name into the left gutter.
func renderLeadStrip(v leadView, w, h int, windowSeconds float64, bottom bool) image.Image {
	var series []chart.Series
	for _, seg := range uihelpers.SplitSegments(v.Xs, v.Ys) {
		xs, ys := seg.Xs, seg.Ys
		if len(xs) == 1 {
			// go-chart cannot stroke a single point; widen it to a short dash
			xs = []float64{xs[0], xs[0] + 0.002}
			ys = []float64{ys[0], ys[0]}
		}
		series = append(series, chart.ContinuousSeries{
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: waveTrace, StrokeWidth: 1.0},
		})
	}
	if len(series) == 0 {
		// all-NaN window: draw an invisible floor so the grid still renders
		series = append(series, chart.ContinuousSeries{
			XValues: []float64{0, windowSeconds},
			YValues: []float64{0, 0},
			Style:   chart.Style{StrokeColor: waveBackground, StrokeWidth: 0.1},
		})
	}

	step := uihelpers.PickTimeStep(windowSeconds)
	ticks := make([]chart.Tick, 0, 16)
	for _, tv := range uihelpers.BuildTimeTicks(windowSeconds, step) {
		label := ""
		if bottom {
			label = uihelpers.FormatTimeTick(tv)
		}
		ticks = append(ticks, chart.Tick{Value: tv, Label: label})
	}

	xAxis := chart.XAxis{
		Style:     chart.Style{StrokeColor: waveFrame, FontColor: waveLabel, FontSize: 8},
		Ticks:     ticks,
		Range:     &chart.ContinuousRange{Min: 0, Max: windowSeconds},
		GridLines: timeGridLines(windowSeconds, step),
		// explicit GridLines carry their own styles; these enable drawing them
		GridMajorStyle: chart.Style{StrokeColor: waveGridMajor, StrokeWidth: 0.6},
		GridMinorStyle: chart.Style{StrokeColor: waveGridMinor, StrokeWidth: 0.4},
	}
	if bottom {
		xAxis.Name = "Time (s)"
		xAxis.NameStyle = chart.Style{FontColor: waveLabel, FontSize: 9}
	}

	lo, hi, ok := seriesBounds(v.Ys)
	if !ok {
		lo, hi = -1, 1
	}
	if hi-lo < 1e-9 {
		lo -= 0.5
		hi += 0.5
	}
	pad := (hi - lo) * 0.12

	bottomPad := 6
	if bottom {
		// room for tick labels plus the axis name, so the canvas box is
		// never constrained below the padding
		bottomPad = 32
	}
	ch := chart.Chart{
		Width:      w,
		Height:     h,
		Background: chart.Style{FillColor: waveBackground, Padding: chart.Box{Top: 6, Left: waveLeftPad, Right: waveRightPad, Bottom: bottomPad}},
		Canvas:     chart.Style{FillColor: waveBackground, StrokeColor: waveFrame, StrokeWidth: 1.0},
		XAxis:      xAxis,
		YAxis: chart.YAxis{
			Style: chart.Hidden(),
			Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
		},
		Series: series,
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		logging.Warnf("render lead %s: %v", v.Name, err)
		return drawLeadLabel(blank(w, h), v.Name)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		logging.Warnf("decode lead %s: %v", v.Name, err)
		return drawLeadLabel(blank(w, h), v.Name)
	}
	return drawLeadLabel(img, v.Name)
}

// timeGridLines builds the one-per-tick major grid plus a dotted-equivalent
// minor grid at fifth-of-a-step subdivisions.
func timeGridLines(windowSeconds, step float64) []chart.GridLine {
	if windowSeconds <= 0 || step <= 0 {
		return nil
	}
	var lines []chart.GridLine
	for v := step; v < windowSeconds; v += step {
		lines = append(lines, chart.GridLine{
			Value: v,
			Style: chart.Style{StrokeColor: waveGridMajor, StrokeWidth: 0.6},
		})
	}
	minor := step / 5
	for v := minor; v < windowSeconds; v += minor {
		// skip positions already covered by a major line
		ratio := v / step
		if diff := ratio - float64(int(ratio+0.5)); diff < 1e-6 && diff > -1e-6 {
			continue
		}
		lines = append(lines, chart.GridLine{
			IsMinor: true,
			Value:   v,
			Style:   chart.Style{StrokeColor: waveGridMinor, StrokeWidth: 0.4},
		})
	}
	return lines
}

// seriesBounds returns the min and max over ys ignoring NaN gaps.
func seriesBounds(ys []float64) (lo, hi float64, ok bool) {
	for _, y := range ys {
		if y != y { // NaN
			continue
		}
		if !ok {
			lo, hi, ok = y, y, true
			continue
		}
		if y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}
	return lo, hi, ok
}

// drawLeadLabel stamps the lead name into the strip's left gutter.
func drawLeadLabel(img image.Image, name string) image.Image {
	if img == nil || name == "" {
		return img
	}
	b := img.Bounds()
	rgba, isRGBA := img.(*image.RGBA)
	if !isRGBA {
		rgba = image.NewRGBA(b)
		draw.Draw(rgba, b, img, b.Min, draw.Src)
	}
	face := basicfont.Face7x13
	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(color.RGBA{R: 0xAA, G: 0xAA, B: 0xAA, A: 0xFF}),
		Face: face,
	}
	x := b.Min.X + 8
	y := b.Min.Y + b.Dy()/2 + face.Metrics().Ascent.Ceil()/2
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(name)
	return rgba
}

// blank is the dark fallback image shown before any record loads and after a
// failed read or render.
func blank(w, h int) image.Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 18, G: 18, B: 18, A: 255})
		}
	}
	return img
}
