package events

import "sync"

// DefaultCapacity is the number of events the log retains.
const DefaultCapacity = 50

// Log is a bounded FIFO of events. When full, the oldest event is evicted.
// It is safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	buf      []Event
	start    int
	size     int
	evicted  uint64
	appended uint64
}

// NewLog creates a log holding at most capacity events. A capacity below 1
// uses DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]Event, capacity)}
}

// Append adds events in order, evicting the oldest entries as needed.
func (l *Log) Append(evs ...Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range evs {
		idx := (l.start + l.size) % len(l.buf)
		l.buf[idx] = e
		if l.size == len(l.buf) {
			l.start = (l.start + 1) % len(l.buf)
			l.evicted++
		} else {
			l.size++
		}
		l.appended++
	}
}

// Snapshot returns a copy of the retained events, oldest first.
func (l *Log) Snapshot() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.start+i)%len(l.buf)]
	}
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Cap returns the capacity.
func (l *Log) Cap() int {
	return len(l.buf)
}

// Stats returns how many events were ever appended and how many were evicted.
func (l *Log) Stats() (appended, evicted uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.appended, l.evicted
}

// Reset drops every event.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	clear(l.buf)
	l.start, l.size = 0, 0
}
