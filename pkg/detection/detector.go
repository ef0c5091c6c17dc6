// Package detection provides object detection and the box geometry shared by
// the post-processing stages.
package detection

import (
	"context"
	"image"
)

// Detector is the interface for object detection backends.
// Predictions are returned in pixel space of the image that was passed in.
type Detector interface {
	// Detect finds objects in the image
	Detect(ctx context.Context, img image.Image) ([]Prediction, error)

	// Close releases resources
	Close() error
}
