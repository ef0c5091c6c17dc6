package detection

import "math"

// Box is an axis-aligned bounding box in pixel space of the processed frame.
// X, Y is the top-left corner.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the center point of the box
func (b Box) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Area returns the area of the box
func (b Box) Area() float64 {
	return b.Width * b.Height
}

// AspectRatio returns width/height, or 0 for a box with no height.
func (b Box) AspectRatio() float64 {
	if b.Height <= 0 {
		return 0
	}
	return b.Width / b.Height
}

// IoU returns the intersection-over-union of two boxes in [0, 1].
// Disjoint boxes and degenerate unions return 0.
func IoU(a, b Box) float64 {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.Width, b.X+b.Width)
	y2 := math.Min(a.Y+a.Height, b.Y+b.Height)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}

	iou := intersection / union
	if iou > 1 {
		return 1
	}
	return iou
}
