package nms

import (
	"math"
	"reflect"
	"testing"

	"github.com/teslashibe/go-proctor/pkg/detection"
)

func pred(class string, conf, x, y, w, h float64) detection.Prediction {
	return detection.Prediction{
		Class:      class,
		Confidence: conf,
		Box:        detection.Box{X: x, Y: y, Width: w, Height: h},
	}
}

func TestOverlappingPhonesKeepStrongest(t *testing.T) {
	a := pred(detection.ClassCellPhone, 0.6, 0, 20, 30, 60)
	b := pred(detection.ClassCellPhone, 0.9, 0, 0, 30, 60)

	if iou := detection.IoU(a.Box, b.Box); math.Abs(iou-0.5) > 1e-9 {
		t.Fatalf("fixture IoU: got %v, want 0.5", iou)
	}

	out := New(DefaultConfig()).Apply([]detection.Prediction{a, b})
	if len(out) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(out))
	}
	if out[0].Confidence != 0.9 {
		t.Errorf("kept confidence: got %v, want 0.9", out[0].Confidence)
	}
}

func TestDeviceThresholdTighterThanOthers(t *testing.T) {
	// IoU ~0.25: above the device threshold, below the other threshold
	a := pred(detection.ClassCellPhone, 0.9, 0, 0, 100, 100)
	b := pred(detection.ClassCellPhone, 0.8, 60, 0, 100, 100)
	c := pred("book", 0.9, 0, 0, 100, 100)
	d := pred("book", 0.8, 60, 0, 100, 100)

	iou := detection.IoU(a.Box, b.Box)
	if iou <= 0.2 || iou > 0.3 {
		t.Fatalf("fixture IoU %v not between thresholds", iou)
	}

	out := New(DefaultConfig()).Apply([]detection.Prediction{a, b, c, d})

	phones, books := 0, 0
	for _, p := range out {
		switch p.Class {
		case detection.ClassCellPhone:
			phones++
		case "book":
			books++
		}
	}
	if phones != 1 {
		t.Errorf("phones: got %d, want 1", phones)
	}
	if books != 2 {
		t.Errorf("books: got %d, want 2", books)
	}
}

func TestDifferentClassesNeverSuppress(t *testing.T) {
	box := []float64{10, 10, 50, 80}
	preds := []detection.Prediction{
		pred(detection.ClassPerson, 0.9, box[0], box[1], box[2], box[3]),
		pred("laptop", 0.8, box[0], box[1], box[2], box[3]),
		pred(detection.ClassCellPhone, 0.7, box[0], box[1], box[2], box[3]),
	}

	out := New(DefaultConfig()).Apply(preds)
	if len(out) != 3 {
		t.Errorf("expected all 3 classes kept, got %d", len(out))
	}
	if out[0].Class != detection.ClassCellPhone {
		t.Errorf("device predictions come first, got %q", out[0].Class)
	}
}

func TestIdempotent(t *testing.T) {
	preds := []detection.Prediction{
		pred(detection.ClassPerson, 0.9, 0, 0, 100, 200),
		pred(detection.ClassPerson, 0.7, 5, 5, 100, 200),
		pred(detection.ClassPerson, 0.6, 300, 0, 100, 200),
		pred(detection.ClassCellPhone, 0.8, 50, 50, 30, 60),
		pred(detection.ClassCellPhone, 0.5, 52, 52, 30, 60),
		pred("cup", 0.4, 400, 400, 20, 30),
	}

	s := New(DefaultConfig())
	once := s.Apply(preds)
	twice := s.Apply(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("not idempotent:\n once=%+v\ntwice=%+v", once, twice)
	}
}

func TestRaisingThresholdKeepsMore(t *testing.T) {
	preds := []detection.Prediction{
		pred("book", 0.9, 0, 0, 100, 100),
		pred("book", 0.8, 20, 0, 100, 100), // IoU ~0.67 with first
		pred("book", 0.7, 50, 0, 100, 100), // IoU ~0.33 with first
		pred("book", 0.6, 90, 0, 100, 100), // IoU ~0.05 with first
	}

	prev := 0
	for _, th := range []float64{0.0, 0.1, 0.3, 0.5, 0.7, 0.9, 1.0} {
		n := len(Suppress(preds, th))
		if n < prev {
			t.Errorf("threshold %.1f kept %d, fewer than %d at a lower threshold", th, n, prev)
		}
		prev = n
	}
	if prev != 4 {
		t.Errorf("threshold 1.0 should keep everything, kept %d", prev)
	}
}

func TestTiesKeepInputOrder(t *testing.T) {
	first := pred("cup", 0.5, 0, 0, 20, 20)
	second := pred("cup", 0.5, 1, 1, 20, 20)

	out := Suppress([]detection.Prediction{first, second}, 0.3)
	if len(out) != 1 || out[0] != first {
		t.Errorf("tie should keep the earlier prediction, got %+v", out)
	}

	out = Suppress([]detection.Prediction{second, first}, 0.3)
	if len(out) != 1 || out[0] != second {
		t.Errorf("tie should keep the earlier prediction, got %+v", out)
	}
}

func TestSuppressDoesNotMutateInput(t *testing.T) {
	preds := []detection.Prediction{
		pred("cup", 0.2, 0, 0, 10, 10),
		pred("cup", 0.9, 100, 100, 10, 10),
	}
	Suppress(preds, 0.3)
	if preds[0].Confidence != 0.2 {
		t.Error("input slice was reordered")
	}
}

func TestEmpty(t *testing.T) {
	if out := New(DefaultConfig()).Apply(nil); len(out) != 0 {
		t.Errorf("expected empty output, got %+v", out)
	}
}
