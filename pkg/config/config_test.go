package config

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/raster"
	"iogtransforms/pkg/sample"
)

// TestDefaultConfig verifies the defaults used by the training recipe
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Guidance.Sigma != 10 || cfg.Guidance.PadPixel != 10 {
		t.Errorf("Expected sigma 10 and pad 10, got %g and %d", cfg.Guidance.Sigma, cfg.Guidance.PadPixel)
	}
	if cfg.Crop.Relax != 30 || !cfg.Crop.ZeroPad {
		t.Errorf("Expected relax 30 with zero padding, got %d/%v", cfg.Crop.Relax, cfg.Crop.ZeroPad)
	}
	if cfg.Resize.Resolution != (geometry.Size{Width: 512, Height: 512}) {
		t.Errorf("Expected 512x512, got %+v", cfg.Resize.Resolution)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

// TestLoadConfigMissingFile returns defaults when there is nothing to load
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Crop.Relax != DefaultConfig().Crop.Relax {
		t.Errorf("Expected default relax, got %d", cfg.Crop.Relax)
	}
}

// TestLoadConfigFormats reads partial YAML and TOML over the defaults
func TestLoadConfigFormats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"config.yaml": "seed: 7\nguidance:\n  sigma: 5\n  mode: inside-outside\nresize:\n  resolution:\n    width: 64\n    height: 32\n",
		"config.toml": "seed = 7\n[guidance]\nsigma = 5.0\nmode = \"inside-outside\"\n[resize.resolution]\nwidth = 64\nheight = 32\n",
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if cfg.Seed != 7 || cfg.Guidance.Sigma != 5 || cfg.Guidance.Mode != "inside-outside" {
				t.Errorf("Loaded values not applied: %+v", cfg)
			}
			if cfg.Resize.Resolution.Width != 64 || cfg.Resize.Resolution.Height != 32 {
				t.Errorf("Expected 64x32, got %+v", cfg.Resize.Resolution)
			}
			if cfg.Guidance.PadPixel != 10 || cfg.Crop.Relax != 30 {
				t.Errorf("Unset values should keep their defaults")
			}
		})
	}
}

// TestSaveConfigRoundTrip writes and reads back both formats
func TestSaveConfigRoundTrip(t *testing.T) {
	for _, name := range []string{"out/config.yaml", "out/config.toml"} {
		path := filepath.Join(t.TempDir(), name)
		cfg := DefaultConfig()
		cfg.Augmentation.Rotations = []float64{-15, 0, 15}
		cfg.Augmentation.Scales = []float64{0.9, 1.1}
		cfg.Resize.Interpolation = "linear"

		if err := SaveConfig(cfg, path); err != nil {
			t.Fatalf("SaveConfig(%s) failed: %v", name, err)
		}
		got, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig(%s) failed: %v", name, err)
		}
		if len(got.Augmentation.Rotations) != 3 || got.Augmentation.Scales[1] != 1.1 {
			t.Errorf("%s: candidate lists not preserved: %+v", name, got.Augmentation)
		}
		if got.Resize.Interpolation != "linear" || got.Crop.ZeroPad != cfg.Crop.ZeroPad {
			t.Errorf("%s: values not preserved", name)
		}
	}

	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Default config file was not written: %v", err)
	}
}

// TestValidate rejects configurations that cannot build a pipeline
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero sigma", func(c *Config) { c.Guidance.Sigma = 0 }},
		{"negative relax", func(c *Config) { c.Crop.Relax = -1 }},
		{"empty resolution", func(c *Config) { c.Resize.Resolution = geometry.Size{} }},
		{"reversed scale", func(c *Config) { c.Augmentation.ScaleMin = 2 }},
		{"rotations without scales", func(c *Config) { c.Augmentation.Rotations = []float64{1} }},
		{"unknown mode", func(c *Config) { c.Guidance.Mode = "extreme" }},
		{"unknown interpolation", func(c *Config) { c.Resize.Interpolation = "lanczos" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if _, err := cfg.TrainingPipeline(); err == nil {
				t.Errorf("TrainingPipeline should refuse an invalid config")
			}
		})
	}
}

// TestPipelines runs both configured pipelines on a small sample
func TestPipelines(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resize.Resolution = geometry.Size{Width: 48, Height: 40}

	img := raster.New(80, 90, 3)
	for i := range img.Data {
		img.Data[i] = float64(i % 256)
	}
	mask := raster.New(80, 90, 1)
	for y := 30; y < 45; y++ {
		for x := 35; x < 55; x++ {
			mask.Set(y, x, 0, 1)
		}
	}

	train, err := cfg.TrainingPipeline()
	if err != nil {
		t.Fatalf("TrainingPipeline failed: %v", err)
	}
	if n := len(train.Stages()); n != 7 {
		t.Errorf("Expected 7 training stages, got %d", n)
	}
	out, err := train.Apply(sample.New(map[string]sample.Field{
		sample.FieldImage: sample.Image(img),
		sample.FieldMask:  sample.Mask(mask),
	}), rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)))
	if err != nil {
		t.Fatalf("Training pipeline failed: %v", err)
	}
	concat, _ := out.Get(sample.FieldConcat)
	if concat.Array == nil || concat.Array.Height != 40 || concat.Array.Width != 48 || concat.Array.Channels != 5 {
		t.Errorf("Expected a 40x48x5 training input, got %+v", concat)
	}

	infer, err := cfg.InferencePipeline()
	if err != nil {
		t.Fatalf("InferencePipeline failed: %v", err)
	}
	out, err = infer.Apply(sample.New(map[string]sample.Field{
		sample.FieldImage:       sample.Image(img),
		sample.FieldPointCenter: sample.Points(geometry.ImagePoint(45, 37)),
		sample.FieldROI:         sample.BoundingBox(geometry.BBox{XMin: 35, YMin: 30, XMax: 54, YMax: 44}),
	}), nil)
	if err != nil {
		t.Fatalf("Inference pipeline failed: %v", err)
	}
	concat, _ = out.Get(sample.FieldConcat)
	if concat.Array == nil || concat.Array.Height != 40 || concat.Array.Width != 48 || concat.Array.Channels != 5 {
		t.Errorf("Expected a 40x48x5 inference input, got %+v", concat)
	}
	if out.Has(sample.FieldROI) {
		t.Errorf("The ROI should be consumed by the guidance stage")
	}
}
