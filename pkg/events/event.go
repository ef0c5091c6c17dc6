// Package events maps stabilized detections to discrete proctoring events
// and keeps the bounded event log.
package events

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-proctor/pkg/detection"
)

// Type classifies an event.
type Type string

const (
	TypeMobile         Type = "mobile"
	TypePerson         Type = "person"
	TypeFocusLost      Type = "focus_lost"
	TypeMultiplePeople Type = "multiple_people"
	TypeUnknownObject  Type = "unknown_object"
)

// Event is one entry of the detection log. Events are never modified after
// they are created.
type Event struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        Type           `json:"type"`
	Confidence  float64        `json:"confidence"`
	Box         *detection.Box `json:"box,omitempty"`
	Description string         `json:"description"`
}

// Mapper turns predictions into events.
type Mapper struct {
	devices detection.ClassSet
}

// NewMapper creates a mapper. Predictions of a device class map to
// TypeMobile.
func NewMapper(deviceClasses ...string) *Mapper {
	return &Mapper{devices: detection.NewClassSet(deviceClasses...)}
}

// TypeOf returns the event type for a class. Secondary computers, screens
// and any unrecognized class all collapse to TypeUnknownObject.
func (m *Mapper) TypeOf(class string) Type {
	switch {
	case m.devices.Has(class):
		return TypeMobile
	case detection.IsPerson(class):
		return TypePerson
	default:
		return TypeUnknownObject
	}
}

// FromPrediction builds the event for the index-th prediction of a pass.
func (m *Mapper) FromPrediction(pass uint64, index int, ts time.Time, p detection.Prediction) Event {
	box := p.Box
	typ := m.TypeOf(p.Class)

	return Event{
		ID:          EventID(pass, index),
		Timestamp:   ts,
		Type:        typ,
		Confidence:  p.Confidence,
		Box:         &box,
		Description: describe(typ, p),
	}
}

// Anomaly builds a frame-level event with no box.
func Anomaly(pass uint64, index int, ts time.Time, typ Type, confidence float64, description string) Event {
	return Event{
		ID:          EventID(pass, index),
		Timestamp:   ts,
		Type:        typ,
		Confidence:  confidence,
		Description: description,
	}
}

// EventID is unique per pass and index within the pass.
func EventID(pass uint64, index int) string {
	return fmt.Sprintf("%d-%d", pass, index)
}

func describe(typ Type, p detection.Prediction) string {
	pct := p.Confidence * 100
	switch typ {
	case TypeMobile:
		if p.Stability > 0 {
			return fmt.Sprintf("Mobile device detected (%.0f%%, seen %d times)", pct, p.Stability)
		}
		return fmt.Sprintf("Mobile device detected (%.0f%%)", pct)
	case TypePerson:
		return fmt.Sprintf("Person detected (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Object detected: %s (%.0f%%)", p.Class, pct)
	}
}
