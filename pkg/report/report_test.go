package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-proctor/pkg/attention"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/events"
	"github.com/teslashibe/go-proctor/pkg/proctor"
)

func fixture() proctor.Snapshot {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return proctor.Snapshot{
		Status: proctor.Status{
			SessionID: "session-1",
			State:     proctor.StateReady,
			Backend:   "cpu",
			Passes:    3,
		},
		Metrics: attention.Metrics{FocusScore: 38, EyeContactScore: 20, HeadPoseScore: 60, OverallAttention: 39},
		Events: []events.Event{
			{ID: "3-0", Timestamp: ts, Type: events.TypeMobile, Confidence: 0.92, Box: &detection.Box{X: 300, Y: 200, Width: 40, Height: 80}, Description: "Mobile device detected"},
			{ID: "3-1", Timestamp: ts, Type: events.TypeFocusLost, Confidence: 1, Description: "No person in view"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"CSV", FormatCSV, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"pdf", "", true},
	}

	for _, tc := range tests {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("ParseFormat(%q): expected ErrUnknownFormat, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestWriteFormats(t *testing.T) {
	for _, f := range []Format{FormatText, FormatCSV, FormatMarkdown} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, f, fixture()); err != nil {
				t.Fatal(err)
			}

			out := buf.String()
			for _, want := range []string{"session-1", "3-0", "mobile", "focus_lost", "0.92", "300.0", "No person in view", "39"} {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestWriteCSVRows(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, fixture()); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), "3-1,2024-01-01T12:00:00Z,focus_lost,1.00,,,,,No person in view") {
		t.Errorf("anomaly row should leave the box columns empty:\n%s", buf.String())
	}
}

func TestWriteMarkdownIsTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatMarkdown, fixture()); err != nil {
		t.Fatal(err)
	}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "|") {
			t.Errorf("markdown line should start with a pipe: %q", line)
		}
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, Format("pdf"), fixture()); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestContentType(t *testing.T) {
	if FormatCSV.ContentType() != "text/csv; charset=utf-8" {
		t.Error(FormatCSV.ContentType())
	}
	if !strings.HasPrefix(FormatText.ContentType(), "text/plain") {
		t.Error(FormatText.ContentType())
	}
}
