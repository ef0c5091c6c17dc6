package detection

import (
	"context"
	"image"
	"sync"
)

// Mock implements Detector for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(ctx context.Context, img image.Image) ([]Prediction, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMock creates a mock detector that returns preds on every call.
func NewMock(preds ...Prediction) *Mock {
	return &Mock{
		DetectFunc: func(ctx context.Context, img image.Image) ([]Prediction, error) {
			out := make([]Prediction, len(preds))
			copy(out, preds)
			return out, nil
		},
	}
}

// WithError returns a mock whose Detect always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		DetectFunc: func(ctx context.Context, img image.Image) ([]Prediction, error) {
			return nil, err
		},
	}
}

// Detect calls DetectFunc and records the call.
func (m *Mock) Detect(ctx context.Context, img image.Image) ([]Prediction, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, img)
	}
	return nil, nil
}

// Close calls CloseFunc.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns how many times Detect was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockOpener returns an Opener that hands out d, or fails with err when err is non-nil.
func MockOpener(name string, d Detector, err error) Opener {
	return Opener{
		Name: name,
		Open: func(ctx context.Context) (Detector, error) {
			if err != nil {
				return nil, err
			}
			return d, nil
		},
	}
}

// Verify Mock implements Detector at compile time.
var _ Detector = (*Mock)(nil)
