package proctor

import (
	"slices"
	"time"

	"github.com/teslashibe/go-proctor/pkg/attention"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/events"
	"github.com/teslashibe/go-proctor/pkg/filter"
	"github.com/teslashibe/go-proctor/pkg/nms"
	"github.com/teslashibe/go-proctor/pkg/preprocess"
	"github.com/teslashibe/go-proctor/pkg/smoothing"
)

// Config aggregates every stage's configuration.
type Config struct {
	// DeviceClasses is the single source for what counts as a mobile device.
	// WithDeviceClasses copies it into every stage.
	DeviceClasses []string `yaml:"device_classes"`

	Preprocess preprocess.Config `yaml:"preprocess"`
	Filter     filter.Config     `yaml:"filter"`
	NMS        nms.Config        `yaml:"nms"`
	Smoothing  smoothing.Config  `yaml:"smoothing"`
	Attention  attention.Config  `yaml:"attention"`

	MinInterval      time.Duration `yaml:"min_interval"`       // Minimum time between invocation starts
	EventLogCapacity int           `yaml:"event_log_capacity"` // Retained events, oldest evicted first
	AnomalyEvents    bool          `yaml:"anomaly_events"`     // Emit focus_lost / multiple_people
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DeviceClasses:    []string{detection.ClassCellPhone},
		Preprocess:       preprocess.DefaultConfig(),
		Filter:           filter.DefaultConfig(),
		NMS:              nms.DefaultConfig(),
		Smoothing:        smoothing.DefaultConfig(),
		Attention:        attention.DefaultConfig(),
		MinInterval:      100 * time.Millisecond,
		EventLogCapacity: events.DefaultCapacity,
		AnomalyEvents:    true,
	}
}

// WithDeviceClasses returns a copy of c whose stages all use c.DeviceClasses.
// An empty list leaves the stage defaults in place.
func (c Config) WithDeviceClasses() Config {
	if len(c.DeviceClasses) == 0 {
		return c
	}
	c.Filter.DeviceClasses = slices.Clone(c.DeviceClasses)
	c.NMS.DeviceClasses = slices.Clone(c.DeviceClasses)
	c.Smoothing.DeviceClasses = slices.Clone(c.DeviceClasses)
	c.Attention.DeviceClasses = slices.Clone(c.DeviceClasses)
	return c
}
