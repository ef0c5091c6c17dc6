// Package video grabs frames from a camera or video file with gocv and
// keeps the latest one for the detection loop.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-proctor/pkg/preprocess"
)

var (
	// ErrEndOfStream is returned by Run when a video file is exhausted.
	ErrEndOfStream = errors.New("video: end of stream")
	// ErrNoFrame is returned by WaitForFrame when no frame arrived in time.
	ErrNoFrame = errors.New("video: no frame available")
)

// Cameras occasionally fail a read; retry after this long.
const cameraRetry = 20 * time.Millisecond

// Capture reads frames on its own goroutine and exposes the latest one.
type Capture struct {
	source Source
	vc     *gocv.VideoCapture
	fps    float64
	logger *slog.Logger

	// Frame buffer
	latest  image.Image
	frameMu sync.RWMutex

	frames  atomic.Uint64
	closeMu sync.Mutex
	closed  bool
}

// Open opens a camera index ("0") or a video file path.
func Open(source string, logger *slog.Logger) (*Capture, error) {
	if logger == nil {
		logger = slog.Default()
	}
	src := ParseSource(source)

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if src.IsDevice() {
		vc, err = gocv.OpenVideoCapture(src.Device)
	} else {
		vc, err = gocv.OpenVideoCapture(src.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("video: open %s: %w", src, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video: open %s: not opened", src)
	}

	c := &Capture{
		source: src,
		vc:     vc,
		fps:    vc.Get(gocv.VideoCaptureFPS),
		logger: logger.With("component", "video", "source", src.String()),
	}
	c.logger.Info("capture opened", "fps", c.fps)
	return c, nil
}

// Run grabs frames until ctx is cancelled or a file ends. Files are paced
// at their native frame rate; cameras are read as fast as they deliver.
func (c *Capture) Run(ctx context.Context) error {
	mat := gocv.NewMat()
	defer mat.Close()

	pace := FrameInterval(c.fps)
	if c.source.IsDevice() {
		pace = 0
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		if ok := c.vc.Read(&mat); !ok || mat.Empty() {
			if !c.source.IsDevice() {
				c.logger.Info("end of stream", "frames", c.frames.Load())
				return ErrEndOfStream
			}
			if !sleep(ctx, cameraRetry) {
				return ctx.Err()
			}
			continue
		}

		img, err := mat.ToImage()
		if err != nil {
			c.logger.Warn("frame conversion failed", "error", err)
			continue
		}

		c.frameMu.Lock()
		c.latest = img
		c.frameMu.Unlock()
		c.frames.Add(1)

		if pace > 0 {
			if !sleep(ctx, pace-time.Since(start)) {
				return ctx.Err()
			}
		}
	}
}

// Frame returns the latest frame. Before the first grab it reports zero
// size, which the preprocessor treats as not ready.
func (c *Capture) Frame() preprocess.Frame {
	c.frameMu.RLock()
	defer c.frameMu.RUnlock()
	return preprocess.NewImageFrame(c.latest)
}

// WaitForFrame blocks until a first frame is available.
func (c *Capture) WaitForFrame(ctx context.Context, timeout time.Duration) (preprocess.Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		if f := c.Frame(); frameReady(f) {
			return f, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNoFrame
		}
		if !sleep(ctx, 10*time.Millisecond) {
			return nil, ctx.Err()
		}
	}
}

// Frames returns how many frames were grabbed.
func (c *Capture) Frames() uint64 {
	return c.frames.Load()
}

// Close releases the device or file.
func (c *Capture) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.vc.Close()
}

func frameReady(f preprocess.Frame) bool {
	w, h := f.Size()
	return w > 0 && h > 0
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
