// Package config loads go-proctor settings from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-proctor/pkg/proctor"
)

// Defaults.
const (
	DefaultPort     = "8080"
	DefaultSource   = "0"
	DefaultLogLevel = "info"
	DefaultTick     = 50 * time.Millisecond
)

// Environment variables that override the file.
const (
	EnvModel    = "PROCTOR_MODEL"
	EnvModelURL = "PROCTOR_MODEL_URL"
	EnvPort     = "PROCTOR_PORT"
	EnvSource   = "PROCTOR_SOURCE"
	EnvLogLevel = "PROCTOR_LOG_LEVEL"
	EnvBackends = "PROCTOR_BACKENDS"
)

// Model describes the detector model and where it may run.
type Model struct {
	Path          string   `yaml:"path"`
	URL           string   `yaml:"url"`
	Confidence    float32  `yaml:"confidence"`     // Network-side confidence floor
	NMS           float32  `yaml:"nms"`            // Network-side per-class NMS IoU
	MaxDetections int      `yaml:"max_detections"` // Boxes returned per frame
	InputSize     int      `yaml:"input_size"`     // Square model input edge
	Backends      []string `yaml:"backends"`       // Tried in order; empty means every backend
}

// Config is the full application configuration.
type Config struct {
	Source   string        `yaml:"source"` // Camera index or video file
	Port     string        `yaml:"port"`
	LogLevel string        `yaml:"log_level"`
	Tick     time.Duration `yaml:"tick"` // Frame submission period

	Model    Model          `yaml:"model"`
	Pipeline proctor.Config `yaml:"pipeline"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Source:   DefaultSource,
		Port:     DefaultPort,
		LogLevel: DefaultLogLevel,
		Tick:     DefaultTick,
		Model: Model{
			Path:          "models/yolov8n.onnx",
			Confidence:    0.2,
			NMS:           0.7,
			MaxDetections: 20,
			InputSize:     640,
		},
		Pipeline: proctor.DefaultConfig(),
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.Pipeline = cfg.Pipeline.WithDeviceClasses()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvModel); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv(EnvModelURL); v != "" {
		cfg.Model.URL = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv(EnvSource); v != "" {
		cfg.Source = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvBackends); v != "" {
		cfg.Model.Backends = SplitList(v)
	}
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Model.Path == "" {
		errs = append(errs, errors.New("model path is empty"))
	}
	if c.Model.InputSize <= 0 {
		errs = append(errs, fmt.Errorf("model input size %d must be positive", c.Model.InputSize))
	}
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick %v must be positive", c.Tick))
	}
	if c.Pipeline.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("min interval %v must not be negative", c.Pipeline.MinInterval))
	}
	if c.Pipeline.Preprocess.MaxDimension <= 0 {
		errs = append(errs, fmt.Errorf("max dimension %d must be positive", c.Pipeline.Preprocess.MaxDimension))
	}
	if len(c.Pipeline.DeviceClasses) == 0 {
		errs = append(errs, errors.New("pipeline device classes are empty"))
	}
	if c.Pipeline.Smoothing.Window <= 0 {
		errs = append(errs, fmt.Errorf("smoothing window %v must be positive", c.Pipeline.Smoothing.Window))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}
