// Command fyneprobe opens a minimal window exercising exactly what the
// annotator needs from the desktop stack: the forced dark theme variant, an
// image canvas, and key events. Useful for triaging rendering environments.
package main

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

type darkTheme struct{}

func (d *darkTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}
func (d *darkTheme) Font(style fyne.TextStyle) fyne.Resource { return theme.DefaultTheme().Font(style) }
func (d *darkTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}
func (d *darkTheme) Size(name fyne.ThemeSizeName) float32 { return theme.DefaultTheme().Size(name) }

func main() {
	fmt.Println("[fyneprobe] starting minimal Fyne app")
	a := app.New()
	a.Settings().SetTheme(&darkTheme{})
	w := a.NewWindow("Fyne Probe")

	img := image.NewRGBA(image.Rect(0, 0, 320, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 320; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 18, G: 18, B: 18, A: 255})
		}
	}
	imgCanvas := canvas.NewImageFromImage(img)
	imgCanvas.FillMode = canvas.ImageFillContain
	imgCanvas.SetMinSize(fyne.NewSize(320, 120))

	w.SetContent(container.NewBorder(nil,
		widget.NewLabel("Dark-theme image canvas probe - closes in 5s"), nil, nil, imgCanvas))
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		fmt.Printf("[fyneprobe] key: %s\n", ev.Name)
	})

	go func() {
		time.Sleep(5 * time.Second)
		fmt.Println("[fyneprobe] closing window via fyne.Do")
		fyne.Do(func() { w.Close() })
	}()
	w.ShowAndRun()
	fmt.Println("[fyneprobe] exited cleanly")
}
