// Package preprocess prepares decoded video frames for the detector.
//
// Frames are bounded to a maximum dimension (aspect preserved, never
// upscaled) and every colour channel gets a linear contrast/brightness lift
// that sharpens the edges of small rectangular objects such as phones.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

// ErrNotReady is returned when a frame has no dimensions yet or cannot be decoded.
var ErrNotReady = errors.New("preprocess: frame not ready")

// Frame is a decoded video frame handed in by the frame source.
type Frame interface {
	// Size returns the pixel dimensions, or zero before the first frame decodes.
	Size() (width, height int)

	// Image returns the frame pixels.
	Image() (image.Image, error)
}

// Config holds preprocessing parameters
type Config struct {
	MaxDimension int     `yaml:"max_dimension"` // Larger side is bounded to this many pixels
	Contrast     float64 `yaml:"contrast"`      // Channel gain
	Brightness   float64 `yaml:"brightness"`    // Channel offset added after gain
}

// DefaultConfig returns the tuning used for phone detection.
func DefaultConfig() Config {
	return Config{
		MaxDimension: 640,
		Contrast:     1.15,
		Brightness:   8,
	}
}

// Bitmap is a preprocessed frame owned by a single pipeline pass.
// Release must be called once the pass is done with it.
type Bitmap struct {
	Image *image.NRGBA

	// Source dimensions before resampling
	SourceWidth  int
	SourceHeight int

	owner    *Preprocessor
	released atomic.Bool
}

// Width returns the processed width in pixels.
func (b *Bitmap) Width() int {
	if b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dx()
}

// Height returns the processed height in pixels.
func (b *Bitmap) Height() int {
	if b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dy()
}

// Release drops the pixel buffer. Safe to call more than once.
func (b *Bitmap) Release() {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return
	}
	b.Image = nil
	if b.owner != nil {
		b.owner.live.Add(-1)
	}
}

// Preprocessor resizes and enhances frames.
type Preprocessor struct {
	config Config
	lut    [256]uint8
	live   atomic.Int64
	logger *slog.Logger
}

// New creates a preprocessor.
func New(cfg Config, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Preprocessor{
		config: cfg,
		logger: logger.With("component", "preprocess"),
	}
	for i := range p.lut {
		p.lut[i] = Adjust(uint8(i), cfg.Contrast, cfg.Brightness)
	}
	return p
}

// Adjust applies clamp(0, 255, contrast*in + brightness) to one channel value.
func Adjust(in uint8, contrast, brightness float64) uint8 {
	v := math.Round(contrast*float64(in) + brightness)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Process returns a bounded, enhanced copy of the frame.
// ErrNotReady is returned (wrapped) when the frame cannot be used yet.
func (p *Preprocessor) Process(frame Frame) (*Bitmap, error) {
	if frame == nil {
		return nil, ErrNotReady
	}

	w, h := frame.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrNotReady, w, h)
	}

	src, err := frame.Image()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrNotReady)
	}

	var resized *image.NRGBA
	if limit := p.config.MaxDimension; limit > 0 && (src.Bounds().Dx() > limit || src.Bounds().Dy() > limit) {
		resized = imaging.Fit(src, limit, limit, imaging.Linear)
	} else {
		resized = imaging.Clone(src)
	}

	enhanced := imaging.AdjustFunc(resized, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: p.lut[c.R], G: p.lut[c.G], B: p.lut[c.B], A: c.A}
	})

	p.live.Add(1)
	bmp := &Bitmap{
		Image:        enhanced,
		SourceWidth:  w,
		SourceHeight: h,
		owner:        p,
	}

	p.logger.Debug("frame preprocessed",
		"source", fmt.Sprintf("%dx%d", w, h),
		"processed", fmt.Sprintf("%dx%d", bmp.Width(), bmp.Height()),
	)
	return bmp, nil
}

// Live returns how many bitmaps have been handed out and not yet released.
func (p *Preprocessor) Live() int64 {
	return p.live.Load()
}

// Config returns the active configuration.
func (p *Preprocessor) Config() Config {
	return p.config
}
