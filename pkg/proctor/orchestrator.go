// Package proctor wires the detection stages into a rate-limited pipeline
// for one video stream.
//
// The orchestrator is passive: a caller submits frames on its own schedule
// and the orchestrator decides whether to run a pass. At most one pass is in
// flight; overlapping submissions are dropped, never queued.
package proctor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/teslashibe/go-proctor/pkg/attention"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/events"
	"github.com/teslashibe/go-proctor/pkg/filter"
	"github.com/teslashibe/go-proctor/pkg/nms"
	"github.com/teslashibe/go-proctor/pkg/preprocess"
	"github.com/teslashibe/go-proctor/pkg/smoothing"
)

// Result is the outcome of one pipeline pass.
type Result struct {
	Pass      uint64    `json:"pass"`
	Timestamp time.Time `json:"timestamp"`

	FrameWidth  int `json:"frame_width"`
	FrameHeight int `json:"frame_height"`

	Predictions   []detection.Prediction `json:"predictions"`
	NewDetections []events.Event         `json:"new_detections"`

	PersonCount      int `json:"person_count"`
	MobileCount      int `json:"mobile_count"`
	TotalDeviceCount int `json:"total_device_count"` // Phones plus secondary computers

	Metrics attention.Metrics `json:"metrics"`
}

// Orchestrator owns the detector and all per-stream state: smoothing
// histories, the event log and the metrics snapshot.
type Orchestrator struct {
	config  Config
	openers []detection.Opener
	clock   clock.Clock
	logger  *slog.Logger

	sessionID string
	startedAt time.Time

	state   atomic.Int32
	loading atomic.Bool

	// Guards detector, backend and generation.
	mu       sync.RWMutex
	detector detection.Detector
	backend  string
	loadErr  error

	// Bumped by Close so a Load that raced it discards its detector.
	generation uint64

	// Held for the duration of a pass so Close can wait for it.
	passMu sync.Mutex

	pre      *preprocess.Preprocessor
	filter   *filter.Filter
	nms      *nms.Suppressor
	smoother *smoothing.Smoother
	scorer   *attention.Scorer
	mapper   *events.Mapper
	log      *events.Log

	// Start of the last pass that reached the detector, in clock UnixNano.
	// Written under passMu; read without it for the early rate check.
	lastStart atomic.Int64
	started   atomic.Bool

	// Only touched while holding passMu.
	lastAnomaly events.Type

	snapMu   sync.RWMutex
	metrics  attention.Metrics
	lastPass time.Time

	passes             atomic.Uint64
	droppedNotReady    atomic.Uint64
	droppedBusy        atomic.Uint64
	droppedRateLimited atomic.Uint64
	droppedFrames      atomic.Uint64
	failures           atomic.Uint64
	rejected           atomic.Uint64
}

// New creates an orchestrator in StateNotReady. openers are tried in order
// by Load. A nil clk uses the wall clock; a nil logger uses slog.Default.
func New(cfg Config, openers []detection.Opener, clk clock.Clock, logger *slog.Logger) *Orchestrator {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.WithDeviceClasses()

	o := &Orchestrator{
		config:    cfg,
		openers:   openers,
		clock:     clk,
		sessionID: uuid.NewString(),
		startedAt: clk.Now(),
		pre:       preprocess.New(cfg.Preprocess, logger),
		filter:    filter.New(cfg.Filter, logger),
		nms:       nms.New(cfg.NMS),
		smoother:  smoothing.New(cfg.Smoothing),
		scorer:    attention.New(cfg.Attention),
		mapper:    events.NewMapper(cfg.DeviceClasses...),
		log:       events.NewLog(cfg.EventLogCapacity),
	}
	o.logger = logger.With("component", "proctor", "session", o.sessionID)
	return o
}

// Load opens the first working backend. On failure the orchestrator stays
// in StateNotReady and the error aggregates every backend's failure.
// Loading an already loaded orchestrator is a no-op. If Close runs while
// the backends are opening, the new detector is closed and ErrNotReady
// returned.
func (o *Orchestrator) Load(ctx context.Context) error {
	if !o.loading.CompareAndSwap(false, true) {
		return ErrLoadInProgress
	}
	defer o.loading.Store(false)

	if o.State() != StateNotReady {
		return nil
	}

	o.mu.RLock()
	gen := o.generation
	o.mu.RUnlock()

	start := o.clock.Now()
	d, backend, err := detection.Load(ctx, o.logger, o.openers...)
	if err != nil {
		o.mu.Lock()
		o.loadErr = err
		o.mu.Unlock()
		o.logger.Error("detector unavailable", "error", err)
		return err
	}

	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		if cerr := d.Close(); cerr != nil && !errors.Is(cerr, detection.ErrClosed) {
			o.logger.Warn("close discarded detector", "error", cerr)
		}
		o.logger.Info("load finished after close, detector discarded", "backend", backend)
		return ErrNotReady
	}
	o.detector = d
	o.backend = backend
	o.loadErr = nil
	o.state.Store(int32(StateReady))
	o.mu.Unlock()

	o.logger.Info("detector ready", "backend", backend, "elapsed", o.clock.Now().Sub(start))
	return nil
}

// LoadAsync runs Load on a goroutine. The channel receives exactly one
// value and is then closed.
func (o *Orchestrator) LoadAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- o.Load(ctx)
	}()
	return done
}

// Submit runs one pipeline pass on frame. The result is nil whenever the
// frame is dropped; the error says why.
func (o *Orchestrator) Submit(ctx context.Context, frame preprocess.Frame) (*Result, error) {
	// Early rate check so a rate-limited call never holds the Detecting
	// state. The check under passMu below stays authoritative.
	if o.State() != StateNotReady && o.rateLimited(o.clock.Now()) {
		o.droppedRateLimited.Add(1)
		return nil, ErrRateLimited
	}

	if !o.state.CompareAndSwap(int32(StateReady), int32(StateDetecting)) {
		if o.State() == StateNotReady {
			o.droppedNotReady.Add(1)
			return nil, ErrNotReady
		}
		o.droppedBusy.Add(1)
		return nil, ErrBusy
	}
	defer o.state.CompareAndSwap(int32(StateDetecting), int32(StateReady))

	o.passMu.Lock()
	defer o.passMu.Unlock()

	o.mu.RLock()
	d := o.detector
	o.mu.RUnlock()
	if d == nil {
		// Closed between the state check and the pass lock.
		o.droppedNotReady.Add(1)
		return nil, ErrNotReady
	}

	now := o.clock.Now()
	if o.rateLimited(now) {
		o.droppedRateLimited.Add(1)
		return nil, ErrRateLimited
	}

	bmp, err := o.pre.Process(frame)
	if err != nil {
		o.droppedFrames.Add(1)
		return nil, fmt.Errorf("%w: %w", ErrFrameNotReady, err)
	}
	defer bmp.Release()

	o.lastStart.Store(now.UnixNano())
	o.started.Store(true)

	raw, err := o.detect(ctx, d, bmp)
	if err != nil {
		o.failures.Add(1)
		o.logger.Warn("inference failed", "error", err)
		return nil, err
	}

	return o.process(now, raw, bmp.Width(), bmp.Height()), nil
}

// rateLimited reports whether now is within MinInterval of the last start.
func (o *Orchestrator) rateLimited(now time.Time) bool {
	if !o.started.Load() {
		return false
	}
	return now.Sub(time.Unix(0, o.lastStart.Load())) < o.config.MinInterval
}

// detect calls the detector, turning errors and panics into ErrInference.
func (o *Orchestrator) detect(ctx context.Context, d detection.Detector, bmp *preprocess.Bitmap) (preds []detection.Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			preds = nil
			err = fmt.Errorf("%w: panic: %v", ErrInference, r)
		}
	}()

	preds, err = d.Detect(ctx, bmp.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	return preds, nil
}

// process runs the post-detection stages and publishes the snapshots.
func (o *Orchestrator) process(now time.Time, raw []detection.Prediction, width, height int) *Result {
	clean, rejected := detection.Sanitize(raw)
	if rejected > 0 {
		o.rejected.Add(uint64(rejected))
		o.logger.Debug("dropped malformed predictions", "count", rejected)
	}

	filtered := o.filter.Apply(clean)
	kept := o.nms.Apply(filtered)
	smoothed := o.smoother.Apply(now, kept)

	roles := o.scorer.Partition(smoothed)
	metrics := o.scorer.ScoreRoles(roles, width, height)

	pass := o.passes.Add(1)
	evs := o.eventsFor(pass, now, smoothed, roles)
	o.log.Append(evs...)

	o.snapMu.Lock()
	o.metrics = metrics
	o.lastPass = now
	o.snapMu.Unlock()

	o.logger.Debug("pass complete",
		"pass", pass,
		"raw", len(raw),
		"filtered", len(filtered),
		"kept", len(kept),
		"events", len(evs),
		"overall", metrics.OverallAttention,
	)

	return &Result{
		Pass:             pass,
		Timestamp:        now,
		FrameWidth:       width,
		FrameHeight:      height,
		Predictions:      smoothed,
		NewDetections:    evs,
		PersonCount:      len(roles.Persons),
		MobileCount:      len(roles.Devices),
		TotalDeviceCount: len(roles.Devices) + len(roles.Secondary),
		Metrics:          metrics,
	}
}

// eventsFor maps every smoothed prediction to an event. Anomalies are
// edge-triggered: they are emitted on the pass where the condition begins.
func (o *Orchestrator) eventsFor(pass uint64, now time.Time, smoothed []detection.Prediction, roles attention.Roles) []events.Event {
	evs := make([]events.Event, 0, len(smoothed)+1)
	for i, p := range smoothed {
		evs = append(evs, o.mapper.FromPrediction(pass, i, now, p))
	}

	if !o.config.AnomalyEvents {
		return evs
	}

	var anomaly events.Type
	switch n := len(roles.Persons); {
	case n == 0:
		anomaly = events.TypeFocusLost
	case n > 1:
		anomaly = events.TypeMultiplePeople
	}

	if anomaly != "" && anomaly != o.lastAnomaly {
		idx := len(evs)
		switch anomaly {
		case events.TypeFocusLost:
			evs = append(evs, events.Anomaly(pass, idx, now, anomaly, 1, "No person in view"))
		case events.TypeMultiplePeople:
			evs = append(evs, events.Anomaly(pass, idx, now, anomaly, maxConfidence(roles.Persons),
				fmt.Sprintf("%d people in view", len(roles.Persons))))
		}
	}
	o.lastAnomaly = anomaly
	return evs
}

func maxConfidence(preds []detection.Prediction) float64 {
	best := 0.0
	for _, p := range preds {
		if p.Confidence > best {
			best = p.Confidence
		}
	}
	return best
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Metrics returns the latest focus snapshot. It is the zero value until the
// first successful pass.
func (o *Orchestrator) Metrics() attention.Metrics {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return o.metrics
}

// Events returns the retained events, most recent last.
func (o *Orchestrator) Events() []events.Event {
	return o.log.Snapshot()
}

// SessionID identifies this orchestrator instance.
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}

// Config returns the active configuration.
func (o *Orchestrator) Config() Config {
	return o.config
}

// LiveBitmaps reports preprocessed frames not yet released.
func (o *Orchestrator) LiveBitmaps() int64 {
	return o.pre.Live()
}

// DeviceHistoryLen reports the frames held in the device-only history.
func (o *Orchestrator) DeviceHistoryLen() int {
	o.passMu.Lock()
	defer o.passMu.Unlock()
	return o.smoother.DeviceHistoryLen()
}

// Close releases the detector and returns to StateNotReady. It waits for
// an in-flight pass to finish. A Load still running when Close is called
// discards its detector. Histories and the event log are kept.
func (o *Orchestrator) Close() error {
	o.passMu.Lock()

	o.mu.Lock()
	o.state.Store(int32(StateNotReady))
	o.generation++
	d := o.detector
	o.detector = nil
	o.backend = ""
	o.mu.Unlock()

	o.started.Store(false)
	o.passMu.Unlock()

	if d == nil {
		return nil
	}
	if err := d.Close(); err != nil && !errors.Is(err, detection.ErrClosed) {
		return fmt.Errorf("proctor: close detector: %w", err)
	}
	o.logger.Info("detector closed")
	return nil
}
