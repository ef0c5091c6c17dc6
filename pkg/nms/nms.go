// Package nms removes duplicate detections of the same object.
package nms

import (
	"sort"

	"github.com/teslashibe/go-proctor/pkg/detection"
)

// Config holds suppression thresholds
type Config struct {
	DeviceClasses   []string `yaml:"-"`
	DeviceThreshold float64  `yaml:"device_threshold"` // IoU above which same-class devices are duplicates
	OtherThreshold  float64  `yaml:"other_threshold"`  // IoU above which other same-class boxes are duplicates
}

// DefaultConfig returns production defaults. Phones produce more overlapping
// near-duplicates than other classes, so they are suppressed more eagerly.
func DefaultConfig() Config {
	return Config{
		DeviceClasses:   []string{detection.ClassCellPhone},
		DeviceThreshold: 0.2,
		OtherThreshold:  0.3,
	}
}

// Suppressor runs greedy per-class non-maximum suppression.
type Suppressor struct {
	config  Config
	devices detection.ClassSet
}

// New creates a suppressor.
func New(cfg Config) *Suppressor {
	return &Suppressor{
		config:  cfg,
		devices: detection.NewClassSet(cfg.DeviceClasses...),
	}
}

// Apply splits predictions into device and other subsets, suppresses each
// independently, and returns the kept device predictions followed by the
// kept others. Output is deterministic for a given input order.
func (s *Suppressor) Apply(preds []detection.Prediction) []detection.Prediction {
	var devices, others []detection.Prediction
	for _, p := range preds {
		if s.devices.Has(p.Class) {
			devices = append(devices, p)
		} else {
			others = append(others, p)
		}
	}

	kept := Suppress(devices, s.config.DeviceThreshold)
	return append(kept, Suppress(others, s.config.OtherThreshold)...)
}

// Suppress keeps the highest-confidence prediction of each cluster and drops
// any same-class prediction whose IoU with a kept one exceeds threshold.
// Ties in confidence keep input order. The input slice is not modified.
func Suppress(preds []detection.Prediction, threshold float64) []detection.Prediction {
	if len(preds) == 0 {
		return []detection.Prediction{}
	}

	sorted := make([]detection.Prediction, len(preds))
	copy(sorted, preds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	keep := make([]bool, len(sorted))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(sorted); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if !keep[j] || sorted[j].Class != sorted[i].Class {
				continue
			}
			if detection.IoU(sorted[i].Box, sorted[j].Box) > threshold {
				keep[j] = false
			}
		}
	}

	result := make([]detection.Prediction, 0, len(sorted))
	for i, p := range sorted {
		if keep[i] {
			result = append(result, p)
		}
	}
	return result
}
