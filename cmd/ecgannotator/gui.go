package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/openecglab/ECGAnnotator/cmd/ecgannotator/uihelpers"
	"github.com/openecglab/ECGAnnotator/src/annotations"
	"github.com/openecglab/ECGAnnotator/src/audit"
	"github.com/openecglab/ECGAnnotator/src/config"
	"github.com/openecglab/ECGAnnotator/src/logging"
	"github.com/openecglab/ECGAnnotator/src/tasks"
	"github.com/openecglab/ECGAnnotator/src/wfdb"
)

type uiState struct {
	app    fyne.App
	window fyne.Window
	cfg    *config.Config

	store    *annotations.Store
	auditLog *audit.Writer

	user     string
	dataRoot string
	recheck  bool
	tasks    []tasks.Task
	cur      int

	// current record, nil after a failed read
	rec           *wfdb.Record
	views         []leadView
	windowSeconds float64

	// widgets
	statusCard *widget.Label
	statusBar  *widget.Label
	waveCanvas *canvas.Image
	overlay    *crosshairOverlay

	crosshairEnabled bool

	watcher    *tasks.Watcher
	newFolders int32

	// drops stale async record loads after fast prev/next presses
	loadSeq uint64
}

// dark theme wrapper
type darkTheme struct{}

func (d *darkTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}
func (d *darkTheme) Font(style fyne.TextStyle) fyne.Resource { return theme.DefaultTheme().Font(style) }
func (d *darkTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}
func (d *darkTheme) Size(name fyne.ThemeSizeName) float32 { return theme.DefaultTheme().Size(name) }

func runGUI(cfg *config.Config) error {
	a := app.NewWithID("org.openecglab.ecgannotator")
	a.Settings().SetTheme(&darkTheme{})
	w := a.NewWindow("ECG Annotation Tool")

	store, err := annotations.Open(cfg.Paths.AnnotationsFile)
	if err != nil {
		if errors.Is(err, annotations.ErrLocked) {
			w.Resize(fyne.NewSize(520, 160))
			w.SetContent(widget.NewLabel("ECG Annotation Tool"))
			d := dialog.NewError(err, w)
			d.SetOnClosed(func() { a.Quit() })
			d.Show()
			w.ShowAndRun()
		}
		return err
	}
	defer store.Close()

	auditLog, err := audit.NewWriter(cfg.Paths.AuditFile)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	state := &uiState{
		app:      a,
		window:   w,
		cfg:      cfg,
		store:    store,
		auditLog: auditLog,
		cur:      -1,
	}
	prefs := a.Preferences()
	state.crosshairEnabled = prefs.BoolWithFallback("crosshair", false)
	state.windowSeconds = prefs.FloatWithFallback("displaySeconds", cfg.Display.Seconds)
	if state.windowSeconds <= 0 {
		state.windowSeconds = cfg.Display.Seconds
	}
	winW := prefs.FloatWithFallback("windowWidth", 1280)
	winH := prefs.FloatWithFallback("windowHeight", 800)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	// widgets first, callbacks once the canvas exists
	state.statusCard = widget.NewLabel("No data loaded")
	state.statusCard.Alignment = fyne.TextAlignCenter
	state.statusBar = widget.NewLabel("")

	state.waveCanvas = canvas.NewImageFromImage(blank(1100, 600))
	state.waveCanvas.FillMode = canvas.ImageFillContain
	state.waveCanvas.SetMinSize(fyne.NewSize(800, 500))
	state.overlay = newCrosshairOverlay(state)

	loadBtn := widget.NewButton("Load Data", func() { openDataDialog(state) })
	recheckBtn := widget.NewButton("Recheck Pass", func() { startRecheck(state) })
	prevBtn := widget.NewButton("← Previous", func() { prevTask(state) })
	nextBtn := widget.NewButton("Next →", func() { nextTask(state) })
	malignantBtn := widget.NewButton("Malignant (1)", func() { saveAndNext(state, annotations.Malignant) })
	benignBtn := widget.NewButton("Benign (0)", func() { saveAndNext(state, annotations.Benign) })
	uncertainBtn := widget.NewButton("Uncertain (999)", func() { saveAndNext(state, annotations.Unknown) })
	crosshairChk := widget.NewCheck("Crosshair", nil)
	crosshairChk.SetChecked(state.crosshairEnabled)
	crosshairChk.OnChanged = func(b bool) {
		state.crosshairEnabled = b
		savePrefs(state)
		state.overlay.enabled = b
		state.overlay.Refresh()
	}

	side := container.NewVBox(
		state.statusCard,
		widget.NewSeparator(),
		loadBtn,
		recheckBtn,
		widget.NewSeparator(),
		prevBtn,
		nextBtn,
		layout.NewSpacer(),
		crosshairChk,
		malignantBtn,
		benignBtn,
		uncertainBtn,
	)

	waveStack := container.NewStack(state.waveCanvas, state.overlay)
	scroll := container.NewVScroll(waveStack)
	content := container.NewBorder(nil, state.statusBar, side, nil, scroll)
	w.SetContent(content)

	buildMenus(state)
	bindKeys(state)

	// redraw on window resize so strips track the width
	if w.Canvas() != nil {
		prevW := int(w.Canvas().Size().Width)
		done := make(chan struct{})
		w.SetOnClosed(func() {
			savePrefs(state)
			close(done)
		})
		go func() {
			t := time.NewTicker(300 * time.Millisecond)
			defer t.Stop()
			for {
				select {
				case <-done:
					return
				case <-t.C:
					c := w.Canvas()
					if c == nil {
						continue
					}
					curW := int(c.Size().Width)
					if curW != prevW {
						prevW = curW
						fyne.Do(func() { redrawWaveform(state) })
					}
				}
			}
		}()
	}

	showLogin(state)
	w.ShowAndRun()

	if state.watcher != nil {
		state.watcher.Stop()
	}
	return nil
}

// showLogin asks for the annotator id before anything can be labeled. A
// cancelled or blank login quits the app.
func showLogin(state *uiState) {
	entry := widget.NewEntry()
	entry.SetText(state.app.Preferences().StringWithFallback("annotatorID", ""))
	entry.SetPlaceHolder("e.g. reader_01")
	form := widget.NewForm(widget.NewFormItem("Annotator ID", entry))
	d := dialog.NewCustomConfirm("Login", "Start", "Quit", form, func(ok bool) {
		id := strings.TrimSpace(entry.Text)
		if !ok || id == "" {
			state.app.Quit()
			return
		}
		state.user = id
		state.app.Preferences().SetString("annotatorID", id)
		state.statusBar.SetText(fmt.Sprintf("Current user: %s", id))
		logging.Infof("gui: session started by %s", id)
		// a configured data dir loads without the folder picker
		if state.cfg.Paths.DataDir != "" {
			importFolder(state, state.cfg.Paths.DataDir)
		}
	}, state.window)
	d.Resize(fyne.NewSize(380, 150))
	d.Show()
	state.window.Canvas().Focus(entry)
}

func buildMenus(state *uiState) {
	var items []*fyne.MenuItem
	for _, f := range recentFolders(state) {
		f := f
		items = append(items, fyne.NewMenuItem(truncatePath(f, 60), func() {
			importFolder(state, f)
		}))
	}
	clearRecent := fyne.NewMenuItem("Clear Recent", func() {
		state.app.Preferences().SetString("recentFolders", "")
		buildMenus(state)
	})
	recentMenu := fyne.NewMenu("Recent", append(items, clearRecent)...)

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Load Data…", func() { openDataDialog(state) }),
		fyne.NewMenuItem("Recheck Pass", func() { startRecheck(state) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export PNG…", func() { exportWaveformPNG(state) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { state.window.Close() }),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("Shortcuts", func() { showShortcuts(state) }),
		fyne.NewMenuItem("About", func() {
			dialog.ShowInformation("About",
				"ECG Annotation Tool\n\nLabel multi-lead waveform records as malignant,\nbenign, or uncertain, with a recheck pass over\nthe uncertain ones.", state.window)
		}),
	)
	state.window.SetMainMenu(fyne.NewMainMenu(fileMenu, recentMenu, helpMenu))
}

func bindKeys(state *uiState) {
	canv := state.window.Canvas()
	if canv == nil {
		return
	}
	canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierSuper}, func(fyne.Shortcut) { openDataDialog(state) })
	canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) { openDataDialog(state) })
	canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyR, Modifier: fyne.KeyModifierSuper}, func(fyne.Shortcut) { startRecheck(state) })
	canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyR, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) { startRecheck(state) })
	canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyW, Modifier: fyne.KeyModifierSuper}, func(fyne.Shortcut) { state.window.Close() })
	canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyW, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) { state.window.Close() })

	canv.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.Key1:
			saveAndNext(state, annotations.Malignant)
		case fyne.Key0:
			saveAndNext(state, annotations.Benign)
		case fyne.Key9:
			saveAndNext(state, annotations.Unknown)
		case fyne.KeyLeft:
			prevTask(state)
		case fyne.KeyRight:
			nextTask(state)
		}
	})
}

func showShortcuts(state *uiState) {
	dialog.ShowInformation("Shortcuts",
		"1\tMalignant\n0\tBenign\n9\tUncertain (999)\n←\tPrevious record\n→\tNext record\nCtrl+O\tLoad data folder\nCtrl+R\tRecheck pass\nCtrl+W\tQuit",
		state.window)
}

// openDataDialog picks the data directory for a first-pass session.
func openDataDialog(state *uiState) {
	d := dialog.NewFolderOpen(func(lu fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		if lu == nil {
			return
		}
		importFolder(state, lu.Path())
	}, state.window)
	if start := startLocation(state); start != nil {
		d.SetLocation(start)
	}
	d.Show()
}

func startLocation(state *uiState) fyne.ListableURI {
	dir := state.app.Preferences().StringWithFallback("lastDataDir", state.cfg.Paths.DataDir)
	if dir == "" {
		return nil
	}
	lu, err := storage.ListerForURI(storage.NewFileURI(dir))
	if err != nil {
		return nil
	}
	return lu
}

// importFolder builds the first-pass queue from root: sorted subfolders minus
// the filenames already in the store.
func importFolder(state *uiState, root string) {
	state.dataRoot = root
	state.recheck = false
	addRecentFolder(state, root)
	savePrefs(state)
	restartWatcher(state)

	list, err := tasks.Discover(root, state.store.LabeledSet())
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if len(list) == 0 {
		dialog.ShowInformation("Done", "All files labeled", state.window)
		return
	}
	state.tasks = list
	state.cur = 0
	showCurrent(state)
}

// startRecheck queues the rows whose first pass was 999 and which have no
// second label yet, in store order.
func startRecheck(state *uiState) {
	if state.store.Len() == 0 {
		dialog.ShowInformation("Recheck", "No history yet", state.window)
		return
	}
	targets := state.store.RecheckTargets()
	if len(targets) == 0 {
		dialog.ShowInformation("Done", "Nothing needs a second review", state.window)
		return
	}
	if state.dataRoot == "" {
		d := dialog.NewFolderOpen(func(lu fyne.ListableURI, err error) {
			if err != nil || lu == nil {
				return
			}
			state.dataRoot = lu.Path()
			addRecentFolder(state, state.dataRoot)
			savePrefs(state)
			restartWatcher(state)
			beginRecheck(state, targets)
		}, state.window)
		if start := startLocation(state); start != nil {
			d.SetLocation(start)
		}
		d.Show()
		return
	}
	beginRecheck(state, targets)
}

func beginRecheck(state *uiState, targets []string) {
	state.tasks = tasks.RecheckQueue(state.dataRoot, targets)
	state.recheck = true
	state.cur = 0
	showCurrent(state)
}

// showCurrent reads the current task's record off the UI goroutine and draws
// it. A failed read keeps the position and swaps in the blank dark canvas.
func showCurrent(state *uiState) {
	if state.cur < 0 || state.cur >= len(state.tasks) {
		return
	}
	task := state.tasks[state.cur]
	pos, total := state.cur+1, len(state.tasks)
	recheck := state.recheck
	seq := atomic.AddUint64(&state.loadSeq, 1)

	go func() {
		start := time.Now()
		rec, err := wfdb.ReadRecord(task.RecordPrefix())
		logging.TimeTrack(start, "read "+task.Name)
		fyne.Do(func() {
			if atomic.LoadUint64(&state.loadSeq) != seq {
				return
			}
			if err != nil {
				logging.Warnf("gui: read %s: %v", task.Name, err)
				state.rec = nil
				state.views = nil
				state.statusCard.SetText(fmt.Sprintf("Data error\n%s", task.Name))
				state.statusBar.SetText(fmt.Sprintf("Read failed: %v", err))
				redrawWaveform(state)
				return
			}
			state.rec = rec
			state.views = buildLeadViews(rec, state.windowSeconds, state.cfg.Display.MaxPointsPerLead)
			state.statusCard.SetText(uihelpers.FormatStatus(recheck, task.Name, pos, total))
			state.statusBar.SetText("Ready")
			redrawWaveform(state)
		})
	}()
}

// redrawWaveform re-renders the composite image at the current window size.
// Runs on the UI goroutine.
func redrawWaveform(state *uiState) {
	w, h := waveformSize(state, len(state.views))
	var img image.Image
	if len(state.views) == 0 {
		img = blank(w, h)
	} else {
		img = renderWaveform(state.views, w, h, state.windowSeconds)
	}
	state.waveCanvas.Image = img
	b := img.Bounds()
	state.waveCanvas.SetMinSize(fyne.NewSize(float32(b.Dx()), float32(b.Dy())))
	state.waveCanvas.Refresh()
	state.overlay.Refresh()
}

// waveformSize derives the composite image size from the window, leaving room
// for the side panel and status bar.
func waveformSize(state *uiState, leads int) (int, int) {
	if state.window == nil || state.window.Canvas() == nil {
		return uihelpers.ComputeWaveformSize(1100, 700, leads)
	}
	sz := state.window.Canvas().Size()
	return uihelpers.ComputeWaveformSize(int(sz.Width)-260, int(sz.Height), leads)
}

// saveAndNext applies a label to the current task through the store, records
// the audit event, and advances.
func saveAndNext(state *uiState, label annotations.Label) {
	if state.cur < 0 || state.cur >= len(state.tasks) {
		return
	}
	task := state.tasks[state.cur]
	folder := filepath.Base(state.dataRoot)

	var err error
	pass := 1
	if state.recheck {
		pass = 2
		err = state.store.ApplySecond(task.Name, label, state.user)
	} else {
		err = state.store.ApplyFirst(task.Name, folder, label, state.user)
	}
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if err := state.auditLog.Record(state.user, task.Name, folder, int(label), pass); err != nil {
		logging.Warnf("gui: audit: %v", err)
	}
	logging.Debugf("gui: %s labeled %s (%s, pass %d)", state.user, task.Name, label, pass)
	nextTask(state)
}

func nextTask(state *uiState) {
	if state.cur >= len(state.tasks)-1 {
		state.statusBar.SetText("All done")
		return
	}
	state.cur++
	showCurrent(state)
}

func prevTask(state *uiState) {
	if state.cur <= 0 {
		return
	}
	state.cur--
	showCurrent(state)
}

// restartWatcher points the folder watcher at the current data root. Arrivals
// only surface in the status bar; the queue changes on explicit reload.
func restartWatcher(state *uiState) {
	if state.watcher != nil {
		state.watcher.Stop()
		state.watcher = nil
	}
	atomic.StoreInt32(&state.newFolders, 0)
	if !state.cfg.Watch.Enabled || state.dataRoot == "" {
		return
	}
	w := tasks.NewWatcher(state.dataRoot, func() {
		n := atomic.AddInt32(&state.newFolders, 1)
		fyne.Do(func() {
			state.statusBar.SetText(fmt.Sprintf("%d new task folder(s) arrived, reload to pick them up", n))
		})
	})
	w.SetDebounce(state.cfg.WatchDebounce())
	if err := w.Start(context.Background()); err != nil {
		logging.Warnf("gui: watcher: %v", err)
		return
	}
	state.watcher = w
}

// exportWaveformPNG writes the currently drawn composite image.
func exportWaveformPNG(state *uiState) {
	if state.waveCanvas == nil || state.waveCanvas.Image == nil || len(state.views) == 0 {
		dialog.ShowInformation("Export", "No waveform to export.", state.window)
		return
	}
	fs := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		defer wc.Close()
		if err := png.Encode(wc, state.waveCanvas.Image); err != nil {
			logging.Errorf("gui: export: %v", err)
		}
	}, state.window)
	name := "waveform.png"
	if state.cur >= 0 && state.cur < len(state.tasks) {
		name = state.tasks[state.cur].Name + ".png"
	}
	fs.SetFileName(name)
	fs.Show()
}

// recent folders, newline-joined in preferences, most recent first
func recentFolders(state *uiState) []string {
	raw := state.app.Preferences().StringWithFallback("recentFolders", "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}

func addRecentFolder(state *uiState, path string) {
	list := recentFolders(state)
	filtered := []string{path}
	for _, f := range list {
		if f != path && len(filtered) < 10 {
			filtered = append(filtered, f)
		}
	}
	state.app.Preferences().SetString("recentFolders", strings.Join(filtered, "\n"))
	buildMenus(state)
}

func savePrefs(state *uiState) {
	prefs := state.app.Preferences()
	prefs.SetString("lastDataDir", state.dataRoot)
	prefs.SetBool("crosshair", state.crosshairEnabled)
	prefs.SetFloat("displaySeconds", state.windowSeconds)
	if c := state.window.Canvas(); c != nil {
		sz := c.Size()
		if sz.Width > 0 && sz.Height > 0 {
			prefs.SetFloat("windowWidth", float64(sz.Width))
			prefs.SetFloat("windowHeight", float64(sz.Height))
		}
	}
}

// utils
func truncatePath(p string, n int) string {
	if len(p) <= n {
		return p
	}
	base := filepath.Base(p)
	if len(base)+4 >= n {
		return "..." + base
	}
	dir := filepath.Dir(p)
	left := n - len(base) - 4
	if left <= 0 {
		return "..." + base
	}
	if len(dir) > left {
		dir = dir[:left]
	}
	return dir + "/..." + base
}
