package proctor

import (
	"time"

	"github.com/teslashibe/go-proctor/pkg/attention"
	"github.com/teslashibe/go-proctor/pkg/events"
)

// Status is a point-in-time view of the orchestrator for dashboards.
type Status struct {
	SessionID string    `json:"session_id"`
	State     State     `json:"state"`
	Backend   string    `json:"backend,omitempty"`
	Loading   bool      `json:"loading"`
	LoadError string    `json:"load_error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	LastPass  time.Time `json:"last_pass"`

	Passes             uint64 `json:"passes"`
	DroppedNotReady    uint64 `json:"dropped_not_ready"`
	DroppedBusy        uint64 `json:"dropped_busy"`
	DroppedRateLimited uint64 `json:"dropped_rate_limited"`
	DroppedFrames      uint64 `json:"dropped_frames"`
	Failures           uint64 `json:"failures"`
	RejectedPreds      uint64 `json:"rejected_predictions"`

	EventsRetained int    `json:"events_retained"`
	EventsLogged   uint64 `json:"events_logged"`
	EventsEvicted  uint64 `json:"events_evicted"`
}

// Snapshot bundles what export collaborators consume.
type Snapshot struct {
	Status  Status            `json:"status"`
	Metrics attention.Metrics `json:"metrics"`
	Events  []events.Event    `json:"events"`
}

// Status returns the current status.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	backend := o.backend
	var loadErr string
	if o.loadErr != nil {
		loadErr = o.loadErr.Error()
	}
	o.mu.RUnlock()

	o.snapMu.RLock()
	lastPass := o.lastPass
	o.snapMu.RUnlock()

	appended, evicted := o.log.Stats()

	return Status{
		SessionID:          o.sessionID,
		State:              o.State(),
		Backend:            backend,
		Loading:            o.loading.Load(),
		LoadError:          loadErr,
		StartedAt:          o.startedAt,
		LastPass:           lastPass,
		Passes:             o.passes.Load(),
		DroppedNotReady:    o.droppedNotReady.Load(),
		DroppedBusy:        o.droppedBusy.Load(),
		DroppedRateLimited: o.droppedRateLimited.Load(),
		DroppedFrames:      o.droppedFrames.Load(),
		Failures:           o.failures.Load(),
		RejectedPreds:      o.rejected.Load(),
		EventsRetained:     o.log.Len(),
		EventsLogged:       appended,
		EventsEvicted:      evicted,
	}
}

// Snapshot returns status, metrics and events together.
func (o *Orchestrator) Snapshot() Snapshot {
	return Snapshot{
		Status:  o.Status(),
		Metrics: o.Metrics(),
		Events:  o.Events(),
	}
}
