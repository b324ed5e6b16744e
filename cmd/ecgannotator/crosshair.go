package main

import (
	"fmt"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/openecglab/ECGAnnotator/cmd/ecgannotator/uihelpers"
)

// crosshairOverlay draws a crosshair over the waveform canvas when enabled,
// with a readout of the lead under the cursor, the time at the cursor, and
// the nearest sample's physical value.
type crosshairOverlay struct {
	widget.BaseWidget
	state    *uiState
	enabled  bool
	mouse    fyne.Position
	hovering bool
}

func newCrosshairOverlay(state *uiState) *crosshairOverlay {
	c := &crosshairOverlay{state: state, enabled: state != nil && state.crosshairEnabled}
	c.ExtendBaseWidget(c)
	return c
}

func (c *crosshairOverlay) CreateRenderer() fyne.WidgetRenderer {
	// transparent background keeps the full area hoverable
	bg := canvas.NewRectangle(color.RGBA{})
	lineV := canvas.NewLine(color.RGBA{R: 200, G: 200, B: 200, A: 220})
	lineV.StrokeWidth = 1.0
	lineH := canvas.NewLine(color.RGBA{R: 200, G: 200, B: 200, A: 220})
	lineH.StrokeWidth = 1.0
	dot := canvas.NewCircle(color.RGBA{R: 240, G: 240, B: 240, A: 220})
	label := widget.NewRichText()
	label.Wrapping = fyne.TextWrapOff
	labelBG := canvas.NewRectangle(color.RGBA{A: 170})
	objs := []fyne.CanvasObject{bg, lineV, lineH, dot, labelBG, label}
	return &crosshairRenderer{c: c, bg: bg, lineV: lineV, lineH: lineH, dot: dot, labelBG: labelBG, label: label, objs: objs}
}

type crosshairRenderer struct {
	c       *crosshairOverlay
	bg      *canvas.Rectangle
	lineV   *canvas.Line
	lineH   *canvas.Line
	dot     *canvas.Circle
	labelBG *canvas.Rectangle
	label   *widget.RichText
	objs    []fyne.CanvasObject
}

func (r *crosshairRenderer) Destroy() {}

func (r *crosshairRenderer) hide() {
	r.lineV.Position1 = fyne.NewPos(-10, -10)
	r.lineV.Position2 = fyne.NewPos(-10, -10)
	r.lineH.Position1 = fyne.NewPos(-10, -10)
	r.lineH.Position2 = fyne.NewPos(-10, -10)
	r.dot.Move(fyne.NewPos(-10, -10))
	r.labelBG.Resize(fyne.NewSize(0, 0))
	r.labelBG.Move(fyne.NewPos(-1000, -1000))
	r.label.Move(fyne.NewPos(-1000, -1000))
}

func (r *crosshairRenderer) Layout(size fyne.Size) {
	if r.c == nil {
		return
	}
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	state := r.c.state
	if !r.c.enabled || !r.c.hovering || state == nil || len(state.views) == 0 {
		r.hide()
		return
	}

	x := r.c.mouse.X
	y := r.c.mouse.Y
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x > size.Width {
		x = size.Width
	}
	if y > size.Height {
		y = size.Height
	}

	// drawn rectangle of the contain-fit image inside the overlay
	var imgW, imgH float32
	if state.waveCanvas != nil && state.waveCanvas.Image != nil {
		b := state.waveCanvas.Image.Bounds()
		imgW = float32(b.Dx())
		imgH = float32(b.Dy())
	}
	if imgW <= 0 || imgH <= 0 {
		r.hide()
		return
	}
	scale := size.Width / imgW
	if sy := size.Height / imgH; sy < scale {
		scale = sy
	}
	drawW := imgW * scale
	drawH := imgH * scale
	drawX := (size.Width - drawW) / 2
	drawY := (size.Height - drawH) / 2
	if x < drawX || x > drawX+drawW || y < drawY || y > drawY+drawH {
		r.hide()
		return
	}

	// back-map the cursor into image pixels, then into lead/time space
	xImg := (x - drawX) / scale
	yImg := (y - drawY) / scale
	stripH := imgH / float32(len(state.views))
	lead := int(yImg / stripH)
	if lead < 0 {
		lead = 0
	}
	if lead >= len(state.views) {
		lead = len(state.views) - 1
	}
	// the plot region of every strip equals the configured chart padding
	// (renderLeadStrip keeps the paddings wide enough that go-chart never
	// constrains the canvas box), so the same constants invert the mapping
	plotW := imgW - waveLeftPad - waveRightPad
	if plotW < 1 {
		plotW = imgW
	}
	frac := (xImg - waveLeftPad) / plotW
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	t := float64(frac) * state.windowSeconds

	r.lineV.Position1 = fyne.NewPos(x, drawY)
	r.lineV.Position2 = fyne.NewPos(x, drawY+drawH)
	r.lineH.Position1 = fyne.NewPos(drawX, y)
	r.lineH.Position2 = fyne.NewPos(drawX+drawW, y)
	r.dot.Resize(fyne.NewSize(6, 6))
	r.dot.Move(fyne.NewPos(x-3, y-3))

	v := state.views[lead]
	value := math.NaN()
	if v.Fs > 0 && len(v.Samples) > 0 {
		idx := int(math.Round(t * v.Fs))
		if idx >= len(v.Samples) {
			idx = len(v.Samples) - 1
		}
		if idx >= 0 {
			value = v.Samples[idx]
		}
	}
	text := fmt.Sprintf("%s\nt = %.2f s\n%s", v.Name, t, uihelpers.FormatSampleValue(value, v.Units))
	r.label.Segments = []widget.RichTextSegment{&widget.TextSegment{Text: text}}
	r.label.Refresh()

	pad := float32(6)
	ts := r.label.MinSize()
	bgW := ts.Width + 2*pad
	bgH := ts.Height + 2*pad
	tx, ty := x+8, y+8
	if tx+bgW > size.Width {
		tx = size.Width - bgW
	}
	if ty+bgH > size.Height {
		ty = size.Height - bgH
	}
	r.labelBG.Resize(fyne.NewSize(bgW, bgH))
	r.labelBG.Move(fyne.NewPos(tx, ty))
	r.label.Move(fyne.NewPos(tx+pad, ty+pad))
}

func (r *crosshairRenderer) MinSize() fyne.Size           { return fyne.NewSize(10, 10) }
func (r *crosshairRenderer) Objects() []fyne.CanvasObject { return r.objs }
func (r *crosshairRenderer) Refresh() {
	r.Layout(r.c.Size())
	r.bg.Refresh()
	r.lineV.StrokeColor = theme.Color(theme.ColorNameDisabled)
	r.lineH.StrokeColor = theme.Color(theme.ColorNameDisabled)
	r.lineV.Refresh()
	r.lineH.Refresh()
	r.dot.Refresh()
	r.labelBG.Refresh()
	r.label.Refresh()
}

func (c *crosshairOverlay) MouseMoved(ev *desktop.MouseEvent) {
	if !c.enabled {
		return
	}
	c.hovering = true
	c.mouse = ev.Position
	c.Refresh()
}
func (c *crosshairOverlay) MouseIn(ev *desktop.MouseEvent) { c.hovering = true; c.Refresh() }
func (c *crosshairOverlay) MouseOut()                      { c.hovering = false; c.Refresh() }

var _ desktop.Hoverable = (*crosshairOverlay)(nil)
