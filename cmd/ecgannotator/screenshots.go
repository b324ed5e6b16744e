package main

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openecglab/ECGAnnotator/src/annotations"
	"github.com/openecglab/ECGAnnotator/src/config"
	"github.com/openecglab/ECGAnnotator/src/logging"
	"github.com/openecglab/ECGAnnotator/src/tasks"
	"github.com/openecglab/ECGAnnotator/src/wfdb"
)

// screenshotStripHeight is the per-lead strip height used headlessly, where
// no window size exists to derive one from.
const screenshotStripHeight = 150

// RunScreenshotsMode renders records to PNGs under outDir without creating a
// UI window. With names it renders exactly those records; otherwise it walks
// the pending first-pass queue, up to limit.
func RunScreenshotsMode(cfg *config.Config, names []string, outDir string, width, limit int) error {
	root := cfg.Paths.DataDir
	if root == "" {
		return errors.New("no data directory configured; set paths.data_dir or pass --data-dir")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}
	if width < 320 {
		width = 1280
	}

	var list []tasks.Task
	if len(names) > 0 {
		list = tasks.RecheckQueue(root, names)
		if len(list) == 0 {
			return fmt.Errorf("none of the requested records exist under %s", root)
		}
	} else {
		rows, err := annotations.ReadFile(cfg.Paths.AnnotationsFile)
		if err != nil {
			return err
		}
		done := make(map[string]struct{}, len(rows))
		for _, r := range rows {
			done[r.Filename] = struct{}{}
		}
		list, err = tasks.Discover(root, done)
		if err != nil {
			return err
		}
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	failed := 0
	for _, task := range list {
		rec, err := wfdb.ReadRecord(task.RecordPrefix())
		if err != nil {
			logging.Warnf("screenshots: %s: %v", task.Name, err)
			failed++
			continue
		}
		views := buildLeadViews(rec, cfg.Display.Seconds, cfg.Display.MaxPointsPerLead)
		img := renderWaveform(views, width, screenshotStripHeight*len(views), cfg.Display.Seconds)

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("png encode %s: %w", task.Name, err)
		}
		outPath := filepath.Join(outDir, task.Name+".png")
		if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		logging.Debugf("screenshots: wrote %s", outPath)
	}
	if failed == len(list) && len(list) > 0 {
		return fmt.Errorf("all %d records failed to render", len(list))
	}
	return nil
}

func newScreenshotsCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var width int
	var limit int

	cmd := &cobra.Command{
		Use:   "screenshots [record ...]",
		Short: "Render waveform PNGs without opening a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return RunScreenshotsMode(cfg, args, outDir, width, limit)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "screenshots", "Output directory for the PNGs")
	cmd.Flags().IntVar(&width, "width", 1280, "Image width in pixels")
	cmd.Flags().IntVar(&limit, "limit", 10, "Render at most this many pending records (0 = all)")
	return cmd
}
