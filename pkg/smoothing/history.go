package smoothing

import (
	"time"

	"github.com/teslashibe/go-proctor/pkg/detection"
)

// Entry is one frame's predictions tagged with when they were seen.
type Entry struct {
	Timestamp   time.Time
	Predictions []detection.Prediction
}

// History is a time-bounded, oldest-first sequence of entries.
type History struct {
	window  time.Duration
	entries []Entry
}

// NewHistory creates a history that keeps entries for window.
func NewHistory(window time.Duration) *History {
	return &History{window: window}
}

// Append adds an entry. Entries are expected in timestamp order.
func (h *History) Append(ts time.Time, preds []detection.Prediction) {
	stored := make([]detection.Prediction, len(preds))
	copy(stored, preds)
	h.entries = append(h.entries, Entry{Timestamp: ts, Predictions: stored})
}

// Prune drops entries older than the window relative to now.
func (h *History) Prune(now time.Time) {
	cut := 0
	for cut < len(h.entries) && now.Sub(h.entries[cut].Timestamp) > h.window {
		cut++
	}
	if cut == 0 {
		return
	}
	// Shift down so the backing array does not grow without bound
	n := copy(h.entries, h.entries[cut:])
	for i := n; i < len(h.entries); i++ {
		h.entries[i] = Entry{}
	}
	h.entries = h.entries[:n]
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the retained entries, oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Span returns the time between the oldest and newest entry.
func (h *History) Span() time.Duration {
	if len(h.entries) < 2 {
		return 0
	}
	return h.entries[len(h.entries)-1].Timestamp.Sub(h.entries[0].Timestamp)
}

// Reset empties the history.
func (h *History) Reset() {
	h.entries = nil
}
