package web

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v2"
	gws "github.com/gorilla/websocket"

	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/events"
	"github.com/teslashibe/go-proctor/pkg/preprocess"
	"github.com/teslashibe/go-proctor/pkg/proctor"
)

var phone = detection.Prediction{
	Class:      detection.ClassCellPhone,
	Confidence: 0.8,
	Box:        detection.Box{X: 300, Y: 200, Width: 40, Height: 80},
}

func newServer(t *testing.T, passes int) (*Server, *proctor.Orchestrator) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewMock()

	o := proctor.New(proctor.DefaultConfig(),
		[]detection.Opener{detection.MockOpener("mock", detection.NewMock(phone), nil)},
		clk, logger)
	if err := o.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	frame := preprocess.NewImageFrame(image.NewNRGBA(image.Rect(0, 0, 640, 480)))
	for i := 0; i < passes; i++ {
		if _, err := o.Submit(context.Background(), frame); err != nil {
			t.Fatal(err)
		}
		clk.Add(100 * time.Millisecond)
	}

	return NewServer("0", o, logger), o
}

func get(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestStatus(t *testing.T) {
	s, o := newServer(t, 2)

	resp := get(t, s.App(), "/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code: %d", resp.StatusCode)
	}

	var body map[string]any
	decode(t, resp, &body)

	if body["state"] != "ready" || body["backend"] != "mock" {
		t.Errorf("unexpected status: %v", body)
	}
	if body["session_id"] != o.SessionID() {
		t.Errorf("session: got %v", body["session_id"])
	}
	if body["passes"] != float64(2) {
		t.Errorf("passes: got %v", body["passes"])
	}
}

func TestMetrics(t *testing.T) {
	s, o := newServer(t, 1)

	var body map[string]int
	decode(t, get(t, s.App(), "/api/metrics"), &body)

	if body["overall_attention"] != o.Metrics().OverallAttention {
		t.Errorf("overall: got %d, want %d", body["overall_attention"], o.Metrics().OverallAttention)
	}
	if _, ok := body["focus_score"]; !ok {
		t.Errorf("missing focus_score: %v", body)
	}
}

func TestEvents(t *testing.T) {
	s, _ := newServer(t, 3)

	var all []events.Event
	decode(t, get(t, s.App(), "/api/events"), &all)
	// three mobile events plus one focus_lost
	if len(all) != 4 {
		t.Fatalf("events: got %d, want 4", len(all))
	}

	var mobile []events.Event
	decode(t, get(t, s.App(), "/api/events?type=mobile&limit=2"), &mobile)
	if len(mobile) != 2 {
		t.Fatalf("filtered events: got %d, want 2", len(mobile))
	}
	if mobile[0].ID != "2-0" || mobile[1].ID != "3-0" {
		t.Errorf("limit should keep the most recent: %s, %s", mobile[0].ID, mobile[1].ID)
	}
	if mobile[1].Box == nil || mobile[1].Box.Width != 40 {
		t.Errorf("box: %+v", mobile[1].Box)
	}

	resp := get(t, s.App(), "/api/events?limit=-1")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative limit: got %d", resp.StatusCode)
	}
}

func TestConfig(t *testing.T) {
	s, _ := newServer(t, 0)

	var body map[string]any
	decode(t, get(t, s.App(), "/api/config"), &body)

	if body["EventLogCapacity"] != float64(50) {
		t.Errorf("event log capacity: %v", body["EventLogCapacity"])
	}
}

func TestReport(t *testing.T) {
	s, o := newServer(t, 1)

	resp := get(t, s.App(), "/api/report?format=csv")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type: %s", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), o.SessionID()) || !strings.Contains(string(body), "mobile") {
		t.Errorf("report body:\n%s", body)
	}

	if resp := get(t, s.App(), "/api/report?format=pdf"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format: got %d", resp.StatusCode)
	}
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	s, _ := newServer(t, 0)

	for _, path := range []string{"/ws/events", "/ws/metrics"} {
		if resp := get(t, s.App(), path); resp.StatusCode != fiber.StatusUpgradeRequired {
			t.Errorf("%s: got %d, want 426", path, resp.StatusCode)
		}
	}
}

func TestPublishQueuesBroadcasts(t *testing.T) {
	s, _ := newServer(t, 0)

	s.Publish(nil)
	s.Publish(&proctor.Result{
		Pass:          1,
		NewDetections: []events.Event{{ID: "1-0", Type: events.TypeMobile}},
	})

	if s.eventsHub.Dropped() != 0 || s.metricsHub.Dropped() != 0 {
		t.Error("broadcasts should be queued, not dropped")
	}
}

func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String()
}

func TestEventsStreamContinuesFromSnapshot(t *testing.T) {
	s, _ := newServer(t, 1)
	addr := serve(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := gws.DefaultDialer.DialContext(ctx, "ws://"+addr+"/ws/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot []events.Event
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(snapshot) == 0 || snapshot[0].ID != "1-0" {
		t.Fatalf("snapshot: %+v", snapshot)
	}

	// Published right after the snapshot arrives; must not fall in a gap.
	s.Publish(&proctor.Result{
		Pass:          2,
		NewDetections: []events.Event{{ID: "2-0", Type: events.TypeMobile}},
	})

	var update []events.Event
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(update) != 1 || update[0].ID != "2-0" {
		t.Errorf("update: %+v", update)
	}
}

func TestMetricsStreamContinuesFromSnapshot(t *testing.T) {
	s, o := newServer(t, 1)
	addr := serve(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := gws.DefaultDialer.DialContext(ctx, "ws://"+addr+"/ws/metrics", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial map[string]any
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if initial["focus_score"] != float64(o.Metrics().FocusScore) {
		t.Errorf("snapshot: %+v", initial)
	}

	s.Publish(&proctor.Result{Pass: 7, PersonCount: 1})

	var update MetricsUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if update.Pass != 7 || update.PersonCount != 1 {
		t.Errorf("update: %+v", update)
	}
}
