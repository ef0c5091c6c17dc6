// Package web serves the read-only proctoring dashboard API and the live
// event and metrics websockets.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-proctor/pkg/attention"
	"github.com/teslashibe/go-proctor/pkg/events"
	"github.com/teslashibe/go-proctor/pkg/hub"
	"github.com/teslashibe/go-proctor/pkg/proctor"
)

// Source is the orchestrator surface the dashboard reads.
type Source interface {
	Status() proctor.Status
	Metrics() attention.Metrics
	Events() []events.Event
	Snapshot() proctor.Snapshot
	Config() proctor.Config
}

// MetricsUpdate is pushed on /ws/metrics after every pass.
type MetricsUpdate struct {
	Pass             uint64            `json:"pass"`
	Timestamp        time.Time         `json:"timestamp"`
	PersonCount      int               `json:"person_count"`
	MobileCount      int               `json:"mobile_count"`
	TotalDeviceCount int               `json:"total_device_count"`
	Metrics          attention.Metrics `json:"metrics"`
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	port   string
	source Source
	logger *slog.Logger

	// Hubs for websocket broadcast
	eventsHub  *hub.Hub
	metricsHub *hub.Hub
}

// NewServer creates a dashboard server reading from source.
func NewServer(port string, source Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:       port,
		source:     source,
		logger:     logger.With("component", "web"),
		eventsHub:  hub.New("events", logger),
		metricsHub: hub.New("metrics", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Proctor Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/metrics", s.handleMetrics)
	api.Get("/events", s.handleEvents)
	api.Get("/config", s.handleConfig)
	api.Get("/report", s.handleReport)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/metrics", websocket.New(s.handleMetricsWS))

	s.app = app
	return s
}

// Run listens on the configured port and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	s.logger.Info("dashboard listening", "url", "http://localhost:"+s.port)
	return s.Serve(ctx, ln)
}

// Serve starts the hubs and serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.eventsHub.Run(ctx)
	go s.metricsHub.Run(ctx)

	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("shutdown", "error", err)
		}
	}()

	return s.app.Listener(ln)
}

// Publish pushes a pass result to websocket subscribers.
func (s *Server) Publish(res *proctor.Result) {
	if res == nil {
		return
	}

	if len(res.NewDetections) > 0 {
		if err := s.eventsHub.BroadcastJSON(res.NewDetections); err != nil {
			s.logger.Warn("encode events", "error", err)
		}
	}

	update := MetricsUpdate{
		Pass:             res.Pass,
		Timestamp:        res.Timestamp,
		PersonCount:      res.PersonCount,
		MobileCount:      res.MobileCount,
		TotalDeviceCount: res.TotalDeviceCount,
		Metrics:          res.Metrics,
	}
	if err := s.metricsHub.BroadcastJSON(update); err != nil {
		s.logger.Warn("encode metrics", "error", err)
	}
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
