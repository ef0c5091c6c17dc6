package web

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-proctor/pkg/events"
	"github.com/teslashibe/go-proctor/pkg/hub"
	"github.com/teslashibe/go-proctor/pkg/report"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.source.Status())
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	return c.JSON(s.source.Metrics())
}

// handleEvents returns the event log, most recent last.
// Optional query: type=<event type>, limit=<n most recent>.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	evs := s.source.Events()

	if typ := c.Query("type"); typ != "" {
		filtered := make([]events.Event, 0, len(evs))
		for _, e := range evs {
			if string(e.Type) == typ {
				filtered = append(filtered, e)
			}
		}
		evs = filtered
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a non-negative integer",
			})
		}
		if limit < len(evs) {
			evs = evs[len(evs)-limit:]
		}
	}

	return c.JSON(evs)
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(s.source.Config())
}

func (s *Server) handleReport(c *fiber.Ctx) error {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, s.source.Snapshot()); err != nil {
		if errors.Is(err, report.ErrUnknownFormat) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return err
	}

	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(buf.Bytes())
}

// handleEventsWS sends the retained log, then streams new events.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	s.subscribe(s.eventsHub, c, func() any { return s.source.Events() })
}

// handleMetricsWS sends the current snapshot, then streams updates.
func (s *Server) handleMetricsWS(c *websocket.Conn) {
	s.subscribe(s.metricsHub, c, func() any { return s.source.Metrics() })
}

// subscribe registers c before reading the snapshot, so anything published
// in between is queued for it. Delivery is at-least-once: an event can show
// up both in the snapshot and on the stream.
func (s *Server) subscribe(h *hub.Hub, c *websocket.Conn, snapshot func() any) {
	client := hub.NewClient(h, c)
	if err := c.WriteJSON(snapshot()); err != nil {
		s.logger.Debug("initial snapshot failed", "error", err)
		client.Leave()
		return
	}
	client.Run()
}
