package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"iogtransforms/internal/imageio"
	"iogtransforms/pkg/raster"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2026-01-01")

	if version != "1.0.0" {
		t.Errorf("version = %q, want %q", version, "1.0.0")
	}
	if commit != "abc123" {
		t.Errorf("commit = %q, want %q", commit, "abc123")
	}
	if date != "2026-01-01" {
		t.Errorf("date = %q, want %q", date, "2026-01-01")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug message logged at info level: %q", buf.String())
	}
	logger.Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("info message missing: %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("expected the default logger for an empty context")
	}
	l := newLogger(&bytes.Buffer{}, log.DebugLevel)
	if loggerFromContext(withLogger(context.Background(), l)) != l {
		t.Error("expected the attached logger")
	}
}

func TestParsePoint(t *testing.T) {
	p, err := parsePoint("12.5, 7")
	if err != nil {
		t.Fatalf("parsePoint failed: %v", err)
	}
	if p.X != 12.5 || p.Y != 7 {
		t.Errorf("got %s, want (12.5,7)", p)
	}

	for _, bad := range []string{"", "1", "1,2,3", "a,b"} {
		if _, err := parsePoint(bad); err == nil {
			t.Errorf("parsePoint(%q) should fail", bad)
		}
	}
}

func TestParseROI(t *testing.T) {
	r, err := parseROI("10,20,30,40")
	if err != nil {
		t.Fatalf("parseROI failed: %v", err)
	}
	if r.X != 10 || r.Y != 20 || r.Width != 30 || r.Height != 40 {
		t.Errorf("got %+v", r)
	}
	if _, err := parseROI("10,20,0,40"); err == nil {
		t.Error("parseROI should reject an empty box")
	}
}

// writeInputs creates a small image, its mask and a config selecting a
// small resolution with every output enabled.
func writeInputs(t *testing.T) (dir, image, mask, cfg string) {
	t.Helper()
	dir = t.TempDir()

	img := raster.New(60, 80, 3)
	for i := range img.Data {
		img.Data[i] = float64(i % 200)
	}
	m := raster.New(60, 80, 1)
	for y := 20; y < 35; y++ {
		for x := 30; x < 50; x++ {
			m.Set(y, x, 0, 1)
		}
	}

	image = filepath.Join(dir, "image.png")
	mask = filepath.Join(dir, "mask.png")
	cfg = filepath.Join(dir, "iog.toml")
	if err := imageio.SaveImage(img, image); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	if err := imageio.SaveMask(m, mask); err != nil {
		t.Fatalf("SaveMask failed: %v", err)
	}
	content := "[resize.resolution]\nwidth = 32\nheight = 32\n[output]\nsave_fields = true\noverlay = true\n"
	if err := os.WriteFile(cfg, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return dir, image, mask, cfg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var logs bytes.Buffer
	cmd := newRootCmd(&logs)
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return logs.String(), err
}

func TestTrainCommand(t *testing.T) {
	dir, image, mask, cfg := writeInputs(t)
	out := filepath.Join(dir, "train")

	logs, err := run(t, "train", "--config", cfg, "--image", image, "--mask", mask,
		"--count", "2", "--output", out, "--seed", "3", "-v")
	if err != nil {
		t.Fatalf("train failed: %v\n%s", err, logs)
	}
	for _, name := range []string{"sample_000/overlay.png", "sample_001/IOG_points_c01.png", "sample_001/concat_c04.png"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected output %s: %v", name, err)
		}
	}
	if !strings.Contains(logs, "stage applied") {
		t.Errorf("verbose run should log pipeline stages: %s", logs)
	}
	if !strings.Contains(logs, "Transformed 2 samples") {
		t.Errorf("missing summary line: %s", logs)
	}
}

func TestInferCommand(t *testing.T) {
	dir, image, _, cfg := writeInputs(t)
	out := filepath.Join(dir, "infer")

	logs, err := run(t, "infer", "--config", cfg, "--image", image, "--roi", "30,20,20,15",
		"--fg", "40,27", "--bg", "5,5", "--output", out)
	if err != nil {
		t.Fatalf("infer failed: %v\n%s", err, logs)
	}
	if _, err := os.Stat(filepath.Join(out, "overlay.png")); err != nil {
		t.Errorf("expected overlay: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "crop_image_c00.png")); err != nil {
		t.Errorf("expected cropped image channel: %v", err)
	}

	if _, err := run(t, "infer", "--config", cfg, "--image", image, "--roi", "1,2,3"); err == nil {
		t.Error("infer should reject a malformed ROI")
	}
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iog.toml")

	if _, err := run(t, "config", "init", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "[guidance]") {
		t.Errorf("expected TOML output, got:\n%s", data)
	}

	if _, err := run(t, "config", "init", path); err == nil {
		t.Error("config init should not overwrite without --force")
	}
	if _, err := run(t, "config", "init", "--force", path); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}
}
