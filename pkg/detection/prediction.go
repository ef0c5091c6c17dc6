package detection

import (
	"fmt"
	"math"
)

// Prediction is a single detector output: a class label, a confidence and a box.
// The same shape flows through every post-processing stage; Stability is only
// set by the temporal smoother and counts how many recent sightings were fused.
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Stability  int     `json:"stability,omitempty"`
}

// Validate checks the prediction has a usable shape.
func (p Prediction) Validate() error {
	if p.Class == "" {
		return fmt.Errorf("%w: empty class label", ErrInvalidPrediction)
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidPrediction, p.Confidence)
	}
	b := p.Box
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite box %+v", ErrInvalidPrediction, b)
		}
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: empty box %+v", ErrInvalidPrediction, b)
	}
	return nil
}

// Sanitize drops predictions that fail Validate and returns the rest in order,
// along with how many were rejected.
func Sanitize(preds []Prediction) ([]Prediction, int) {
	out := make([]Prediction, 0, len(preds))
	rejected := 0
	for _, p := range preds {
		if p.Validate() != nil {
			rejected++
			continue
		}
		out = append(out, p)
	}
	return out, rejected
}
