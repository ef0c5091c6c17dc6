// Package report renders a proctoring session snapshot for export.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/teslashibe/go-proctor/pkg/events"
	"github.com/teslashibe/go-proctor/pkg/proctor"
)

// Format selects the output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned for unsupported formats.
var ErrUnknownFormat = errors.New("report: unknown format")

// ParseFormat accepts text, csv, markdown (or md). Empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the HTTP content type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Write renders the metrics table followed by the event table.
func Write(w io.Writer, f Format, snap proctor.Snapshot) error {
	tables := []table.Writer{metricsTable(snap), eventsTable(snap.Events)}

	var parts []string
	for _, t := range tables {
		switch f {
		case FormatText:
			parts = append(parts, t.Render())
		case FormatCSV:
			parts = append(parts, t.RenderCSV())
		case FormatMarkdown:
			parts = append(parts, t.RenderMarkdown())
		default:
			return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}

	_, err := io.WriteString(w, strings.Join(parts, "\n\n")+"\n")
	return err
}

func metricsTable(snap proctor.Snapshot) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"session", snap.Status.SessionID},
		{"state", snap.Status.State.String()},
		{"backend", snap.Status.Backend},
		{"passes", snap.Status.Passes},
		{"focus_score", snap.Metrics.FocusScore},
		{"eye_contact_score", snap.Metrics.EyeContactScore},
		{"head_pose_score", snap.Metrics.HeadPoseScore},
		{"overall_attention", snap.Metrics.OverallAttention},
		{"events_logged", snap.Status.EventsLogged},
		{"events_evicted", snap.Status.EventsEvicted},
	})
	return t
}

func eventsTable(evs []events.Event) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"ID", "Timestamp", "Type", "Confidence", "X", "Y", "Width", "Height", "Description"})
	for _, e := range evs {
		row := table.Row{
			e.ID,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			string(e.Type),
			fmt.Sprintf("%.2f", e.Confidence),
		}
		if e.Box != nil {
			row = append(row,
				fmt.Sprintf("%.1f", e.Box.X),
				fmt.Sprintf("%.1f", e.Box.Y),
				fmt.Sprintf("%.1f", e.Box.Width),
				fmt.Sprintf("%.1f", e.Box.Height),
			)
		} else {
			row = append(row, "", "", "", "")
		}
		t.AppendRow(append(row, e.Description))
	}
	return t
}
