// Package filter applies per-class confidence thresholds and geometric
// plausibility checks for small-device classes.
package filter

import (
	"log/slog"

	"github.com/teslashibe/go-proctor/pkg/detection"
)

// Band is an inclusive aspect ratio (width/height) range.
type Band struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v falls inside the band.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Config holds class thresholds and device plausibility rules
type Config struct {
	// Thresholds maps a class label to its minimum confidence.
	Thresholds map[string]float64 `yaml:"thresholds"`

	// DefaultThreshold applies to classes missing from Thresholds.
	DefaultThreshold float64 `yaml:"default_threshold"`

	// DeviceClasses get the extra geometric check.
	DeviceClasses []string `yaml:"-"`

	// Device geometry
	DeviceAspectBands   []Band  `yaml:"device_aspect_bands"`   // Portrait and landscape phone shapes
	DeviceMinArea       float64 `yaml:"device_min_area"`       // px² in processed frame space
	DeviceMinConfidence float64 `yaml:"device_min_confidence"` // Floor independent of the class table
}

// DefaultThresholds returns the per-class confidence table.
// Phones sit low because the device validator does the heavy lifting;
// furniture and large electronics sit higher because they are rarely
// relevant and often hallucinated in cluttered rooms.
func DefaultThresholds() map[string]float64 {
	return map[string]float64{
		detection.ClassCellPhone: 0.25,
		detection.ClassPerson:    0.5,
		"laptop":                 0.4,
		"tablet":                 0.4,
		"keyboard":               0.45,
		"mouse":                  0.45,
		"monitor":                0.45,
		"tv":                     0.5,
		"remote":                 0.35,
		"book":                   0.4,
		"bottle":                 0.4,
		"cup":                    0.4,
		"chair":                  0.6,
		"couch":                  0.6,
		"bed":                    0.6,
		"dining table":           0.55,
		"clock":                  0.5,
		"backpack":               0.45,
		"handbag":                0.45,
		"scissors":               0.3,
	}
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Thresholds:       DefaultThresholds(),
		DefaultThreshold: 0.5,
		DeviceClasses:    []string{detection.ClassCellPhone},
		DeviceAspectBands: []Band{
			{Min: 0.35, Max: 0.75}, // portrait
			{Min: 1.4, Max: 2.8},   // landscape
		},
		DeviceMinArea:       1200,
		DeviceMinConfidence: 0.25,
	}
}

// Filter drops predictions below their class threshold and device
// predictions with implausible geometry.
type Filter struct {
	config  Config
	devices detection.ClassSet
	logger  *slog.Logger
}

// New creates a filter.
func New(cfg Config, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		config:  cfg,
		devices: detection.NewClassSet(cfg.DeviceClasses...),
		logger:  logger.With("component", "filter"),
	}
}

// Threshold returns the minimum confidence for a class.
func (f *Filter) Threshold(class string) float64 {
	if t, ok := f.config.Thresholds[class]; ok {
		return t
	}
	return f.config.DefaultThreshold
}

// IsDevice reports whether the class gets the device check.
func (f *Filter) IsDevice(class string) bool {
	return f.devices.Has(class)
}

// Accept reports whether a single prediction survives filtering.
func (f *Filter) Accept(p detection.Prediction) bool {
	if p.Confidence < f.Threshold(p.Class) {
		return false
	}
	if f.IsDevice(p.Class) {
		return f.ValidateDevice(p)
	}
	return true
}

// ValidateDevice applies the device geometry rules: aspect ratio inside one
// of the bands, a minimum area, and a minimum confidence.
func (f *Filter) ValidateDevice(p detection.Prediction) bool {
	aspect := p.Box.AspectRatio()
	inBand := false
	for _, b := range f.config.DeviceAspectBands {
		if b.Contains(aspect) {
			inBand = true
			break
		}
	}
	if !inBand {
		return false
	}
	if p.Box.Area() < f.config.DeviceMinArea {
		return false
	}
	return p.Confidence >= f.config.DeviceMinConfidence
}

// Apply returns the predictions that pass, in input order.
func (f *Filter) Apply(preds []detection.Prediction) []detection.Prediction {
	out := make([]detection.Prediction, 0, len(preds))
	for _, p := range preds {
		if f.Accept(p) {
			out = append(out, p)
			continue
		}
		f.logger.Debug("prediction filtered",
			"class", p.Class,
			"confidence", p.Confidence,
			"aspect", p.Box.AspectRatio(),
			"area", p.Box.Area(),
		)
	}
	return out
}
