// Package app assembles the capture loop, the detection orchestrator and
// the dashboard into the proctor service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-proctor/internal/config"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/detection/yolo"
	"github.com/teslashibe/go-proctor/pkg/events"
	"github.com/teslashibe/go-proctor/pkg/proctor"
	"github.com/teslashibe/go-proctor/pkg/video"
	"github.com/teslashibe/go-proctor/pkg/web"
)

// How often a metrics summary is logged at info level.
const summaryInterval = 5 * time.Second

// App is the proctor service.
type App struct {
	config config.Config
	logger *slog.Logger

	capture *video.Capture
	orch    *proctor.Orchestrator
	web     *web.Server
}

// New creates the application. Call Init before Run.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{config: cfg, logger: logger}, nil
}

// Init opens the frame source and builds the pipeline. The detector itself
// is loaded asynchronously by Run.
func (a *App) Init() error {
	backends, err := Backends(a.config.Model.Backends)
	if err != nil {
		return err
	}

	capture, err := video.Open(a.config.Source, a.logger)
	if err != nil {
		return err
	}
	a.capture = capture

	openers := yolo.Openers(ModelConfig(a.config.Model), backends, a.logger)
	a.orch = proctor.New(a.config.Pipeline, openers, nil, a.logger)
	a.web = web.NewServer(a.config.Port, a.orch, a.logger)

	a.logger.Info("proctor initialized",
		"session", a.orch.SessionID(),
		"source", a.config.Source,
		"model", a.config.Model.Path,
		"backends", len(backends),
	)
	return nil
}

// Run serves until ctx is cancelled, the detector fails to load or a video
// file ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	var (
		wg         sync.WaitGroup
		captureErr = make(chan error, 1)
	)
	defer func() {
		cancel()
		wg.Wait()
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		captureErr <- a.capture.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := a.web.Run(ctx); err != nil {
			a.logger.Error("dashboard stopped", "error", err)
		}
	}()

	loaded := a.orch.LoadAsync(ctx)

	ticker := time.NewTicker(a.config.Tick)
	defer ticker.Stop()
	lastSummary := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-captureErr:
			if errors.Is(err, video.ErrEndOfStream) || errors.Is(err, context.Canceled) {
				a.logger.Info("capture finished", "frames", a.capture.Frames())
				return nil
			}
			return fmt.Errorf("capture: %w", err)

		case err, ok := <-loaded:
			if !ok {
				continue
			}
			loaded = nil
			if err != nil {
				return fmt.Errorf("detector: %w", err)
			}
			a.logger.Info("detection running", "backend", a.orch.Status().Backend)

		case <-ticker.C:
			res, err := a.orch.Submit(ctx, a.capture.Frame())
			if err != nil {
				a.logDrop(err)
				continue
			}
			a.web.Publish(res)

			for _, e := range res.NewDetections {
				if e.Type != events.TypePerson {
					a.logger.Debug("event", "id", e.ID, "type", e.Type, "confidence", e.Confidence)
				}
			}

			if time.Since(lastSummary) >= summaryInterval {
				lastSummary = time.Now()
				m := res.Metrics
				a.logger.Info("attention",
					"overall", m.OverallAttention,
					"focus", m.FocusScore,
					"eye_contact", m.EyeContactScore,
					"head_pose", m.HeadPoseScore,
					"persons", res.PersonCount,
					"mobiles", res.MobileCount,
				)
			}
		}
	}
}

// Routine drops are expected at tick rates above the pipeline cap.
func (a *App) logDrop(err error) {
	switch {
	case errors.Is(err, proctor.ErrNotReady),
		errors.Is(err, proctor.ErrBusy),
		errors.Is(err, proctor.ErrRateLimited),
		errors.Is(err, proctor.ErrFrameNotReady):
		a.logger.Debug("frame dropped", "reason", err)
	default:
		a.logger.Warn("frame failed", "error", err)
	}
}

// Shutdown releases the detector and the frame source.
func (a *App) Shutdown() {
	if a.orch != nil {
		if err := a.orch.Close(); err != nil {
			a.logger.Warn("close detector", "error", err)
		}
		st := a.orch.Status()
		a.logger.Info("session summary",
			"passes", st.Passes,
			"events", st.EventsLogged,
			"failures", st.Failures,
			"dropped_busy", st.DroppedBusy,
			"dropped_rate_limited", st.DroppedRateLimited,
		)
	}
	if a.capture != nil {
		if err := a.capture.Close(); err != nil {
			a.logger.Warn("close capture", "error", err)
		}
	}
}

// Orchestrator returns the pipeline, nil before Init.
func (a *App) Orchestrator() *proctor.Orchestrator {
	return a.orch
}

// Backends resolves backend names. An empty list means every backend,
// fastest first.
func Backends(names []string) ([]yolo.Backend, error) {
	if len(names) == 0 {
		return yolo.DefaultBackends(), nil
	}
	out := make([]yolo.Backend, 0, len(names))
	for _, n := range names {
		b, ok := yolo.BackendByName(n)
		if !ok {
			return nil, fmt.Errorf("%w: unknown backend %q", detection.ErrNoBackends, n)
		}
		out = append(out, b)
	}
	return out, nil
}

// ModelConfig maps the file configuration onto the YOLO detector's.
func ModelConfig(m config.Model) yolo.Config {
	cfg := yolo.DefaultConfig()
	cfg.ModelPath = m.Path
	cfg.ModelURL = m.URL
	if m.Confidence > 0 {
		cfg.ConfidenceThresh = m.Confidence
	}
	if m.NMS > 0 {
		cfg.NMSThresh = m.NMS
	}
	if m.MaxDetections > 0 {
		cfg.MaxDetections = m.MaxDetections
	}
	if m.InputSize > 0 {
		cfg.InputWidth, cfg.InputHeight = m.InputSize, m.InputSize
	}
	return cfg
}
