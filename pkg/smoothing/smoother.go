// Package smoothing fuses repeated sightings of the same object across a
// short sliding window. One-frame flicker passes through untouched while
// objects that stay in view get a stabilized box and a confidence boost.
package smoothing

import (
	"time"

	"github.com/teslashibe/go-proctor/pkg/detection"
)

// Config holds temporal smoothing parameters
type Config struct {
	Window        time.Duration `yaml:"window"`         // How long a sighting stays in history
	DeviceClasses []string      `yaml:"-"`              // Classes using the device match/boost values

	DeviceMatchIoU float64 `yaml:"device_match_iou"` // Same-object IoU for devices
	OtherMatchIoU  float64 `yaml:"other_match_iou"`  // Same-object IoU for everything else

	DeviceBoost float64 `yaml:"device_boost"` // Confidence multiplier for stable devices
	OtherBoost  float64 `yaml:"other_boost"`  // Confidence multiplier for other stable objects

	MinMatches int `yaml:"min_matches"` // Sightings required before fusing
	MinEntries int `yaml:"min_entries"` // History entries required before any fusing
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Window:         600 * time.Millisecond,
		DeviceClasses:  []string{detection.ClassCellPhone},
		DeviceMatchIoU: 0.4,
		OtherMatchIoU:  0.5,
		DeviceBoost:    1.15,
		OtherBoost:     1.10,
		MinMatches:     2,
		MinEntries:     2,
	}
}

// Smoother owns the rolling histories for one stream.
// It is not safe for concurrent use; the orchestrator serializes passes.
type Smoother struct {
	config  Config
	devices detection.ClassSet

	history       *History
	deviceHistory *History
}

// New creates a smoother with empty histories.
func New(cfg Config) *Smoother {
	return &Smoother{
		config:        cfg,
		devices:       detection.NewClassSet(cfg.DeviceClasses...),
		history:       NewHistory(cfg.Window),
		deviceHistory: NewHistory(cfg.Window),
	}
}

// Apply records the frame's predictions at now, prunes stale history and
// returns the smoothed predictions in input order.
func (s *Smoother) Apply(now time.Time, preds []detection.Prediction) []detection.Prediction {
	s.history.Append(now, preds)
	s.history.Prune(now)

	var devices []detection.Prediction
	for _, p := range preds {
		if s.devices.Has(p.Class) {
			devices = append(devices, p)
		}
	}
	s.deviceHistory.Append(now, devices)
	s.deviceHistory.Prune(now)

	out := make([]detection.Prediction, len(preds))
	copy(out, preds)

	if s.history.Len() < s.config.MinEntries {
		return out
	}

	for i, p := range out {
		out[i] = s.fuse(p)
	}
	return out
}

// fuse averages p with every same-class sighting in the window that
// overlaps it by more than the class match IoU.
func (s *Smoother) fuse(p detection.Prediction) detection.Prediction {
	isDevice := s.devices.Has(p.Class)
	matchIoU, boost := s.config.OtherMatchIoU, s.config.OtherBoost
	if isDevice {
		matchIoU, boost = s.config.DeviceMatchIoU, s.config.DeviceBoost
	}

	var (
		count                  int
		conf                   float64
		sumX, sumY, sumW, sumH float64
	)
	for _, e := range s.history.entries {
		for _, h := range e.Predictions {
			if h.Class != p.Class || detection.IoU(h.Box, p.Box) <= matchIoU {
				continue
			}
			count++
			conf += h.Confidence
			sumX += h.Box.X
			sumY += h.Box.Y
			sumW += h.Box.Width
			sumH += h.Box.Height
		}
	}

	if count < s.config.MinMatches {
		return p
	}

	n := float64(count)
	fused := conf / n * boost
	if fused > 1 {
		fused = 1
	}

	return detection.Prediction{
		Class:      p.Class,
		Confidence: fused,
		Box: detection.Box{
			X:      sumX / n,
			Y:      sumY / n,
			Width:  sumW / n,
			Height: sumH / n,
		},
		Stability: count,
	}
}

// HistoryLen returns the number of frames in the main history.
func (s *Smoother) HistoryLen() int {
	return s.history.Len()
}

// DeviceHistoryLen returns the number of frames in the device history.
func (s *Smoother) DeviceHistoryLen() int {
	return s.deviceHistory.Len()
}

// DeviceHistory returns a copy of the device-only history, oldest first.
func (s *Smoother) DeviceHistory() []Entry {
	return s.deviceHistory.Entries()
}

// Reset clears both histories.
func (s *Smoother) Reset() {
	s.history.Reset()
	s.deviceHistory.Reset()
}
