package events

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-proctor/pkg/detection"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestTypeOf(t *testing.T) {
	m := NewMapper(detection.ClassCellPhone)

	tests := []struct {
		class string
		want  Type
	}{
		{detection.ClassCellPhone, TypeMobile},
		{detection.ClassPerson, TypePerson},
		{"laptop", TypeUnknownObject},
		{"tv", TypeUnknownObject},
		{"monitor", TypeUnknownObject},
		{"book", TypeUnknownObject},
		{"giraffe", TypeUnknownObject},
	}

	for _, tc := range tests {
		t.Run(tc.class, func(t *testing.T) {
			if got := m.TypeOf(tc.class); got != tc.want {
				t.Errorf("TypeOf(%q) = %q, want %q", tc.class, got, tc.want)
			}
		})
	}
}

func TestFromPrediction(t *testing.T) {
	m := NewMapper(detection.ClassCellPhone)
	p := detection.Prediction{
		Class:      detection.ClassCellPhone,
		Confidence: 0.92,
		Box:        detection.Box{X: 1, Y: 2, Width: 40, Height: 80},
		Stability:  3,
	}

	e := m.FromPrediction(7, 2, t0, p)

	if e.ID != "7-2" {
		t.Errorf("id: got %q, want 7-2", e.ID)
	}
	if e.Type != TypeMobile || e.Confidence != 0.92 || !e.Timestamp.Equal(t0) {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.Box == nil || *e.Box != p.Box {
		t.Errorf("box: got %v, want %v", e.Box, p.Box)
	}
	if !strings.Contains(e.Description, "92%") || !strings.Contains(e.Description, "3 times") {
		t.Errorf("description: %q", e.Description)
	}
}

func TestAnomalyHasNoBox(t *testing.T) {
	e := Anomaly(1, 0, t0, TypeFocusLost, 1, "No person in view")
	if e.Box != nil {
		t.Errorf("anomaly should not carry a box: %+v", e)
	}
	if e.Type != TypeFocusLost {
		t.Errorf("type: got %q", e.Type)
	}
}

func TestLogEvictsOldestFirst(t *testing.T) {
	l := NewLog(50)

	for i := 0; i < 60; i++ {
		l.Append(Event{ID: strconv.Itoa(i)})
	}

	snap := l.Snapshot()
	if len(snap) != 50 {
		t.Fatalf("len: got %d, want 50", len(snap))
	}
	for i, e := range snap {
		if want := strconv.Itoa(i + 10); e.ID != want {
			t.Fatalf("snap[%d]: got %s, want %s", i, e.ID, want)
		}
	}

	appended, evicted := l.Stats()
	if appended != 60 || evicted != 10 {
		t.Errorf("stats: got %d/%d, want 60/10", appended, evicted)
	}
}

func TestLogBatchAppend(t *testing.T) {
	l := NewLog(3)
	l.Append(Event{ID: "a"}, Event{ID: "b"})
	l.Append(Event{ID: "c"}, Event{ID: "d"})

	var ids []string
	for _, e := range l.Snapshot() {
		ids = append(ids, e.ID)
	}
	if got := strings.Join(ids, ","); got != "b,c,d" {
		t.Errorf("got %s, want b,c,d", got)
	}
}

func TestLogSnapshotIsCopy(t *testing.T) {
	l := NewLog(5)
	l.Append(Event{ID: "a"})

	snap := l.Snapshot()
	snap[0].ID = "mutated"

	if l.Snapshot()[0].ID != "a" {
		t.Error("snapshot should not alias the log")
	}
}

func TestLogDefaultCapacity(t *testing.T) {
	if got := NewLog(0).Cap(); got != DefaultCapacity {
		t.Errorf("cap: got %d, want %d", got, DefaultCapacity)
	}
}

func TestLogReset(t *testing.T) {
	l := NewLog(5)
	l.Append(Event{ID: "a"}, Event{ID: "b"})
	l.Reset()

	if l.Len() != 0 {
		t.Errorf("len after reset: %d", l.Len())
	}
	l.Append(Event{ID: "c"})
	if snap := l.Snapshot(); len(snap) != 1 || snap[0].ID != "c" {
		t.Errorf("unexpected snapshot after reset: %+v", snap)
	}
}

func TestLogConcurrentReaders(t *testing.T) {
	l := NewLog(DefaultCapacity)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if n := len(l.Snapshot()); n > DefaultCapacity {
					t.Errorf("snapshot exceeds capacity: %d", n)
					return
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		l.Append(Event{ID: strconv.Itoa(i)})
	}
	wg.Wait()

	if l.Len() != DefaultCapacity {
		t.Errorf("len: got %d", l.Len())
	}
}
