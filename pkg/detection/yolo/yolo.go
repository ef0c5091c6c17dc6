// Package yolo runs YOLOv8 ONNX models through gocv as a detection.Detector.
package yolo

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"sync"

	"github.com/teslashibe/go-proctor/pkg/detection"
	"gocv.io/x/gocv"
)

// Detector uses YOLOv8 for general object detection
type Detector struct {
	net       gocv.Net
	config    Config
	backend   string
	mu        sync.Mutex
	inputSize image.Point
	closed    bool
	logger    *slog.Logger
}

// New creates a new YOLO object detector on the given compute backend.
// The network runs a warmup pass so a backend that cannot execute is rejected
// here rather than on the first frame.
func New(cfg Config, b Backend, logger *slog.Logger) (*Detector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Load ONNX model
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", detection.ErrModelLoad, cfg.ModelPath)
	}

	// Set backend and target
	net.SetPreferableBackend(b.NetBackend)
	net.SetPreferableTarget(b.NetTarget)

	d := &Detector{
		net:       net,
		config:    cfg,
		backend:   b.Name,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		logger:    logger.With("component", "detection.yolo", "backend", b.Name),
	}

	if err := d.warmup(); err != nil {
		net.Close()
		return nil, err
	}
	return d, nil
}

func (d *Detector) warmup() error {
	blank := gocv.NewMatWithSize(d.inputSize.Y, d.inputSize.X, gocv.MatTypeCV8UC3)
	defer blank.Close()

	blob := gocv.BlobFromImage(blank, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return fmt.Errorf("%w: warmup produced no output", detection.ErrModelLoad)
	}
	return nil
}

// Backend returns the name of the compute backend in use.
func (d *Detector) Backend() string {
	return d.backend
}

// Detect finds objects in the image
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]detection.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, detection.ErrClosed
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, detection.ErrEmptyImage
	}

	imgW := float32(mat.Cols())
	imgH := float32(mat.Rows())

	// Create blob from image
	blob := gocv.BlobFromImage(mat, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	// Forward pass
	output := d.net.Forward("")
	defer output.Close()

	preds, err := d.parseYOLOv8Output(output, imgW, imgH)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("yolo pass", "objects", len(preds))
	return preds, nil
}

// parseYOLOv8Output parses the YOLOv8 output tensor.
// Output shape: [1, 84, N] where 84 = 4 bbox (cx, cy, w, h) + 80 class scores.
func (d *Detector) parseYOLOv8Output(output gocv.Mat, imgW, imgH float32) ([]detection.Prediction, error) {
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	cols := dims[1] // 84
	rows := dims[2] // candidate count

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	scaleX := imgW / float32(d.config.InputWidth)
	scaleY := imgH / float32(d.config.InputHeight)

	// Candidates grouped by class so network NMS never crosses classes
	type group struct {
		boxes  []image.Rectangle
		scores []float32
	}
	groups := make(map[int]*group)

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0
		for c := 4; c < cols; c++ {
			score := data[c*rows+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < d.config.ConfidenceThresh {
			continue
		}

		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		x1 := int((cx - w/2) * scaleX)
		y1 := int((cy - h/2) * scaleY)
		x2 := int((cx + w/2) * scaleX)
		y2 := int((cy + h/2) * scaleY)

		g, ok := groups[maxClassID]
		if !ok {
			g = &group{}
			groups[maxClassID] = g
		}
		g.boxes = append(g.boxes, image.Rect(x1, y1, x2, y2))
		g.scores = append(g.scores, maxScore)
	}

	classIDs := make([]int, 0, len(groups))
	for id := range groups {
		classIDs = append(classIDs, id)
	}
	sort.Ints(classIDs)

	var preds []detection.Prediction
	for _, classID := range classIDs {
		g := groups[classID]
		name := detection.ClassName(classID)
		if name == "" {
			continue
		}
		for _, idx := range gocv.NMSBoxes(g.boxes, g.scores, d.config.ConfidenceThresh, d.config.NMSThresh) {
			box := g.boxes[idx]
			preds = append(preds, detection.Prediction{
				Class:      name,
				Confidence: float64(g.scores[idx]),
				Box: detection.Box{
					X:      float64(box.Min.X),
					Y:      float64(box.Min.Y),
					Width:  float64(box.Dx()),
					Height: float64(box.Dy()),
				},
			})
		}
	}

	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Confidence > preds[j].Confidence
	})
	if d.config.MaxDetections > 0 && len(preds) > d.config.MaxDetections {
		preds = preds[:d.config.MaxDetections]
	}
	return preds, nil
}

// Close releases the detector resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}

// Verify Detector implements Detector at compile time.
var _ detection.Detector = (*Detector)(nil)
