// proctor-tail prints the live event or metrics stream of a running
// proctor dashboard.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-proctor/pkg/attention"
	"github.com/teslashibe/go-proctor/pkg/events"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Dashboard host:port")
	stream := flag.String("stream", "events", "Stream to follow: events or metrics")
	flag.Parse()

	if *stream != "events" && *stream != "metrics" {
		log.Fatalf("❌ Unknown stream %q", *stream)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/" + *stream}
	if err := tail(ctx, u.String(), *stream); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func tail(ctx context.Context, target, stream string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	fmt.Fprintf(os.Stderr, "📡 Following %s\n", target)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		if err := printMessage(stream, data); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
		}
	}
}

// printMessage renders one websocket payload. Event payloads are arrays;
// metrics payloads are either a bare snapshot or an update wrapping one.
func printMessage(stream string, data []byte) error {
	if stream == "events" {
		var evs []events.Event
		if err := json.Unmarshal(data, &evs); err != nil {
			return fmt.Errorf("decode events: %w", err)
		}
		for _, e := range evs {
			fmt.Println(formatEvent(e))
		}
		return nil
	}

	var update struct {
		Pass    uint64             `json:"pass"`
		Metrics *attention.Metrics `json:"metrics"`
	}
	if err := json.Unmarshal(data, &update); err != nil {
		return fmt.Errorf("decode metrics: %w", err)
	}

	var m attention.Metrics
	if update.Metrics != nil {
		m = *update.Metrics
	} else if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode metrics: %w", err)
	}
	fmt.Println(formatMetrics(update.Pass, m))
	return nil
}

func formatEvent(e events.Event) string {
	return fmt.Sprintf("%s  %-16s %5.1f%%  %s",
		e.Timestamp.Local().Format("15:04:05.000"), e.Type, e.Confidence*100, e.Description)
}

func formatMetrics(pass uint64, m attention.Metrics) string {
	return fmt.Sprintf("pass %-6d overall %3d  focus %3d  eye %3d  head %3d",
		pass, m.OverallAttention, m.FocusScore, m.EyeContactScore, m.HeadPoseScore)
}
