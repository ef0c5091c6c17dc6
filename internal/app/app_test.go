package app

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-proctor/internal/config"
	"github.com/teslashibe/go-proctor/pkg/detection"
)

func TestBackends(t *testing.T) {
	all, err := Backends(nil)
	if err != nil || len(all) != 3 {
		t.Fatalf("default backends: %v, %v", all, err)
	}

	picked, err := Backends([]string{"cpu", "cuda"})
	if err != nil {
		t.Fatal(err)
	}
	if picked[0].Name != "cpu" || picked[1].Name != "cuda" {
		t.Errorf("order should follow the list: %v", picked)
	}

	if _, err := Backends([]string{"tpu"}); !errors.Is(err, detection.ErrNoBackends) {
		t.Errorf("expected ErrNoBackends, got %v", err)
	}
}

func TestModelConfig(t *testing.T) {
	m := config.Default().Model
	m.Path = "/models/custom.onnx"
	m.URL = "https://example.com/custom.onnx"
	m.InputSize = 320
	m.Confidence = 0

	cfg := ModelConfig(m)

	if cfg.ModelPath != m.Path || cfg.ModelURL != m.URL {
		t.Errorf("paths: %+v", cfg)
	}
	if cfg.InputWidth != 320 || cfg.InputHeight != 320 {
		t.Errorf("input size: %dx%d", cfg.InputWidth, cfg.InputHeight)
	}
	if cfg.ConfidenceThresh != 0.2 {
		t.Errorf("unset confidence should keep the detector default, got %v", cfg.ConfidenceThresh)
	}
}

func TestNewValidates(t *testing.T) {
	cfg := config.Default()
	cfg.Tick = 0
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected validation error")
	}

	if _, err := New(config.Default(), nil); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
