package cli

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"iogtransforms/pkg/config"
	"iogtransforms/pkg/sample"
	"iogtransforms/pkg/visualization"
)

// overlayOpacity is the heatmap opacity of written overlays.
const overlayOpacity = 0.6

// writeSample stores a transformed sample in dir according to the output
// configuration and returns the number of files written.
func writeSample(logger *log.Logger, cfg *config.Config, s sample.Sample, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	viewer := visualization.NewViewer(s)
	written := 0

	if cfg.Output.Overlay {
		img, err := viewer.Overlay(sample.CropName(sample.FieldImage), sample.FieldGuidance, overlayOpacity)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, "overlay.png")
		if err := viewer.SaveImage(img, path); err != nil {
			return written, err
		}
		logger.Debug("wrote overlay", "path", path)
		written++
	}

	if cfg.Output.SaveFields {
		paths, err := viewer.SaveFields(dir)
		written += len(paths)
		if err != nil {
			return written, err
		}
		logger.Debug("wrote fields", "dir", dir, "files", len(paths))
	}
	return written, nil
}
