package yolo

import (
	"context"
	"log/slog"

	"github.com/teslashibe/go-proctor/pkg/detection"
	"gocv.io/x/gocv"
)

// Config holds detector configuration
type Config struct {
	ModelPath        string  `yaml:"model_path"`        // Path to ONNX model
	ModelURL         string  `yaml:"model_url"`         // Download location when ModelPath is missing
	ConfidenceThresh float32 `yaml:"confidence_thresh"` // Floor applied before class-specific filtering
	NMSThresh        float32 `yaml:"nms_thresh"`        // Per-class IoU used by the network-side NMS
	MaxDetections    int     `yaml:"max_detections"`    // Cap on boxes returned per frame
	InputWidth       int     `yaml:"input_width"`       // Model input width
	InputHeight      int     `yaml:"input_height"`      // Model input height
}

// DefaultConfig returns production defaults for YOLOv8n.
// The confidence floor sits below every class threshold so the class filter
// makes the real decision, and network NMS is loose so duplicates reach the
// suppressor.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.2,
		NMSThresh:        0.7,
		MaxDetections:    20,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// Backend describes a gocv compute backend/target pair.
type Backend struct {
	Name       string
	NetBackend gocv.NetBackendType
	NetTarget  gocv.NetTargetType
}

// DefaultBackends returns the compute backends to try, fastest first.
func DefaultBackends() []Backend {
	return []Backend{
		{Name: "cuda", NetBackend: gocv.NetBackendCUDA, NetTarget: gocv.NetTargetCUDA},
		{Name: "openvino", NetBackend: gocv.NetBackendOpenVINO, NetTarget: gocv.NetTargetCPU},
		{Name: "cpu", NetBackend: gocv.NetBackendDefault, NetTarget: gocv.NetTargetCPU},
	}
}

// BackendByName looks up one of the default backends.
func BackendByName(name string) (Backend, bool) {
	for _, b := range DefaultBackends() {
		if b.Name == name {
			return b, true
		}
	}
	return Backend{}, false
}

// Openers returns one detection.Opener per backend, in order.
// Each opener makes sure the model file is present before loading.
func Openers(cfg Config, backends []Backend, logger *slog.Logger) []detection.Opener {
	openers := make([]detection.Opener, 0, len(backends))
	for _, b := range backends {
		b := b
		openers = append(openers, detection.Opener{
			Name: b.Name,
			Open: func(ctx context.Context) (detection.Detector, error) {
				if err := EnsureModel(ctx, cfg); err != nil {
					return nil, err
				}
				return New(cfg, b, logger)
			},
		})
	}
	return openers
}
