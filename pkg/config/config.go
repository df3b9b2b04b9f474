// Package config provides configuration loading and management for iogtransforms.
// It handles loading configuration from YAML or TOML files, provides default
// values and builds the training and inference pipelines a configuration describes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/guidance"
	"iogtransforms/pkg/raster"
	"iogtransforms/pkg/sample"
	"iogtransforms/pkg/transforms"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the pipeline configuration loaded from YAML or TOML
type Config struct {
	// Seed initialises the random generator shared by the randomised stages
	Seed uint64 `yaml:"seed" toml:"seed"`

	// Guidance map parameters
	Guidance struct {
		// Sigma is the Gaussian width in pixels
		Sigma float64 `yaml:"sigma" toml:"sigma"`

		// PadPixel is the jitter margin around the object's bounding box
		PadPixel int `yaml:"padPixel" toml:"pad_pixel"`

		// Mode selects how training points are seeded: "corners" or "inside-outside"
		Mode string `yaml:"mode" toml:"mode"`
	} `yaml:"guidance" toml:"guidance"`

	// Augmentation parameters
	Augmentation struct {
		// Flip enables random horizontal flips
		Flip bool `yaml:"flip" toml:"flip"`

		// RotationMin and RotationMax bound the rotation in degrees
		RotationMin float64 `yaml:"rotationMin" toml:"rotation_min"`
		RotationMax float64 `yaml:"rotationMax" toml:"rotation_max"`

		// ScaleMin and ScaleMax bound the zoom factor
		ScaleMin float64 `yaml:"scaleMin" toml:"scale_min"`
		ScaleMax float64 `yaml:"scaleMax" toml:"scale_max"`

		// Rotations and Scales, when both set, replace the ranges with candidate lists
		Rotations []float64 `yaml:"rotations,omitempty" toml:"rotations,omitempty"`
		Scales    []float64 `yaml:"scales,omitempty" toml:"scales,omitempty"`
	} `yaml:"augmentation" toml:"augmentation"`

	// Crop parameters, shared by training and inference
	Crop struct {
		// Relax is the context margin around the object or ROI in pixels
		Relax int `yaml:"relax" toml:"relax"`

		// ZeroPad lets crops extend past the image with zeros
		ZeroPad bool `yaml:"zeroPad" toml:"zero_pad"`
	} `yaml:"crop" toml:"crop"`

	// Resize parameters
	Resize struct {
		// Resolution is the network input size
		Resolution geometry.Size `yaml:"resolution" toml:"resolution"`

		// Interpolation overrides the image interpolation: nearest, linear or cubic
		Interpolation string `yaml:"interpolation,omitempty" toml:"interpolation,omitempty"`
	} `yaml:"resize" toml:"resize"`

	// Output parameters
	Output struct {
		// Dir is where rendered fields are written
		Dir string `yaml:"dir" toml:"dir"`

		// SaveFields writes every channel of the transformed sample
		SaveFields bool `yaml:"saveFields" toml:"save_fields"`

		// Overlay writes the guidance heatmap over the cropped image
		Overlay bool `yaml:"overlay" toml:"overlay"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Seed = 1

	cfg.Guidance.Sigma = 10
	cfg.Guidance.PadPixel = 10
	cfg.Guidance.Mode = guidance.SeedCorners.String()

	cfg.Augmentation.Flip = true
	cfg.Augmentation.RotationMin = -20
	cfg.Augmentation.RotationMax = 20
	cfg.Augmentation.ScaleMin = 0.75
	cfg.Augmentation.ScaleMax = 1.25

	cfg.Crop.Relax = 30
	cfg.Crop.ZeroPad = true

	cfg.Resize.Resolution = geometry.Size{Width: 512, Height: 512}

	cfg.Output.Dir = "iog_output"
	cfg.Output.SaveFields = false
	cfg.Output.Overlay = true

	return cfg
}

// Validate checks that the configuration can build a pipeline.
func (c *Config) Validate() error {
	switch {
	case c.Guidance.Sigma <= 0:
		return fmt.Errorf("%w: guidance sigma must be positive, got %g", ErrInvalidConfig, c.Guidance.Sigma)
	case c.Guidance.PadPixel < 0:
		return fmt.Errorf("%w: guidance pad must be non-negative, got %d", ErrInvalidConfig, c.Guidance.PadPixel)
	case c.Crop.Relax < 0:
		return fmt.Errorf("%w: crop relax must be non-negative, got %d", ErrInvalidConfig, c.Crop.Relax)
	case c.Resize.Resolution.Width < 1 || c.Resize.Resolution.Height < 1:
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalidConfig,
			c.Resize.Resolution.Width, c.Resize.Resolution.Height)
	case c.Augmentation.RotationMin > c.Augmentation.RotationMax:
		return fmt.Errorf("%w: rotation range is reversed", ErrInvalidConfig)
	case c.Augmentation.ScaleMin > c.Augmentation.ScaleMax:
		return fmt.Errorf("%w: scale range is reversed", ErrInvalidConfig)
	case (len(c.Augmentation.Rotations) == 0) != (len(c.Augmentation.Scales) == 0):
		return fmt.Errorf("%w: discrete augmentation needs both rotations and scales", ErrInvalidConfig)
	}
	if _, err := guidance.ParseSeedMode(c.Guidance.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Resize.Interpolation != "" {
		if _, err := raster.ParseInterpolation(c.Resize.Interpolation); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// InferenceOptions returns the guidance options used at inference time.
func (c *Config) InferenceOptions() guidance.InferenceOptions {
	return guidance.InferenceOptions{
		Sigma:      c.Guidance.Sigma,
		PadPixel:   c.Guidance.PadPixel,
		RelaxPixel: c.Crop.Relax,
		Resolution: c.Resize.Resolution,
		ZeroPad:    c.Crop.ZeroPad,
	}
}

func (c *Config) interpolations() map[string]raster.Interpolation {
	if c.Resize.Interpolation == "" {
		return nil
	}
	interp, _ := raster.ParseInterpolation(c.Resize.Interpolation)
	return map[string]raster.Interpolation{sample.CropName(sample.FieldImage): interp}
}

// TrainingPipeline builds flip, scale-and-rotate, crop, resize, guidance
// synthesis, guidance normalisation and input concatenation.
func (c *Config) TrainingPipeline() (*transforms.Pipeline, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var stages []transforms.Stage
	if c.Augmentation.Flip {
		stages = append(stages, transforms.NewRandomHorizontalFlip())
	}

	aug := c.Augmentation
	if len(aug.Rotations) > 0 {
		snr, err := transforms.NewDiscreteScaleNRotate(aug.Rotations, aug.Scales)
		if err != nil {
			return nil, err
		}
		stages = append(stages, snr)
	} else {
		stages = append(stages, transforms.NewScaleNRotate(aug.RotationMin, aug.RotationMax, aug.ScaleMin, aug.ScaleMax))
	}

	res := transforms.Fixed(c.Resize.Resolution.Width, c.Resize.Resolution.Height)
	cropImage, cropMask := sample.CropName(sample.FieldImage), sample.CropName(sample.FieldMask)

	points := transforms.NewIOGPoints(c.Guidance.Sigma, c.Guidance.PadPixel)
	points.Options.Mode, _ = guidance.ParseSeedMode(c.Guidance.Mode)

	stages = append(stages,
		transforms.NewCropFromMask(c.Crop.Relax, c.Crop.ZeroPad, sample.FieldImage, sample.FieldMask),
		transforms.NewFixedResize(map[string]transforms.Resolution{cropImage: res, cropMask: res}, c.interpolations()),
		points,
		transforms.NewToImage(sample.FieldGuidance),
		transforms.NewConcatInputs(cropImage, sample.FieldGuidance),
	)
	return transforms.NewPipeline(stages...), nil
}

// InferencePipeline builds ROI cropping, guidance synthesis from user
// input, guidance normalisation and input concatenation.
func (c *Config) InferencePipeline() (*transforms.Pipeline, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	crop := transforms.NewCropFromROI(c.Resize.Resolution, c.Crop.Relax, c.Crop.ZeroPad, sample.FieldImage)
	return transforms.NewPipeline(
		crop,
		transforms.NewIOGPointsInference(c.InferenceOptions()),
		transforms.NewToImage(sample.FieldGuidance),
		transforms.NewConcatInputs(sample.CropName(sample.FieldImage), sample.FieldGuidance),
	), nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by extension.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML or TOML file, chosen by extension
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
