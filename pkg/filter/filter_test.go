package filter

import (
	"testing"

	"github.com/teslashibe/go-proctor/pkg/detection"
)

func phone(conf, w, h float64) detection.Prediction {
	return detection.Prediction{
		Class:      detection.ClassCellPhone,
		Confidence: conf,
		Box:        detection.Box{X: 10, Y: 10, Width: w, Height: h},
	}
}

func TestThreshold(t *testing.T) {
	f := New(DefaultConfig(), nil)

	if got := f.Threshold(detection.ClassCellPhone); got != 0.25 {
		t.Errorf("cell phone threshold: got %v, want 0.25", got)
	}
	if got := f.Threshold(detection.ClassPerson); got != 0.5 {
		t.Errorf("person threshold: got %v, want 0.5", got)
	}
	if got := f.Threshold("giraffe"); got != 0.5 {
		t.Errorf("unknown class threshold: got %v, want 0.5", got)
	}
}

func TestValidateDevice(t *testing.T) {
	f := New(DefaultConfig(), nil)

	tests := []struct {
		name   string
		pred   detection.Prediction
		expect bool
	}{
		{"portrait phone", phone(0.6, 30, 60), true},
		{"landscape phone", phone(0.6, 80, 40), true},
		{"portrait band lower edge", phone(0.6, 35, 100), true},
		{"landscape band upper edge", phone(0.6, 140, 50), true},
		{"square rejected", phone(0.9, 100, 100), false},
		{"huge square rejected", phone(0.9, 400, 400), false},
		{"between bands", phone(0.9, 100, 100/1.1), false},
		{"too thin", phone(0.9, 20, 100), false},
		{"too wide", phone(0.9, 300, 100), false},
		{"too small", phone(0.9, 20, 40), false},
		{"low confidence", phone(0.2, 30, 60), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.ValidateDevice(tc.pred); got != tc.expect {
				t.Errorf("ValidateDevice: got %v, want %v (aspect %.2f area %.0f)",
					got, tc.expect, tc.pred.Box.AspectRatio(), tc.pred.Box.Area())
			}
		})
	}
}

func TestSquareDeviceAlwaysRejected(t *testing.T) {
	f := New(DefaultConfig(), nil)

	for _, side := range []float64{10, 35, 50, 100, 250, 640} {
		if f.Accept(phone(0.9, side, side)) {
			t.Errorf("square device %vx%v should be rejected", side, side)
		}
	}
}

func TestApply(t *testing.T) {
	f := New(DefaultConfig(), nil)

	preds := []detection.Prediction{
		{Class: detection.ClassPerson, Confidence: 0.9, Box: detection.Box{Width: 100, Height: 200}},
		{Class: detection.ClassPerson, Confidence: 0.4, Box: detection.Box{Width: 100, Height: 200}},
		phone(0.3, 30, 60),
		phone(0.9, 50, 50),
		{Class: "chair", Confidence: 0.55, Box: detection.Box{Width: 50, Height: 50}},
		{Class: "cup", Confidence: 0.45, Box: detection.Box{Width: 20, Height: 30}},
	}

	out := f.Apply(preds)

	want := []string{detection.ClassPerson, detection.ClassCellPhone, "cup"}
	if len(out) != len(want) {
		t.Fatalf("got %d predictions, want %d: %+v", len(out), len(want), out)
	}
	for i, class := range want {
		if out[i].Class != class {
			t.Errorf("out[%d]: got %q, want %q", i, out[i].Class, class)
		}
	}
}

func TestCustomThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds = map[string]float64{"book": 0.9}
	cfg.DefaultThreshold = 0.1
	f := New(cfg, nil)

	if f.Accept(detection.Prediction{Class: "book", Confidence: 0.8, Box: detection.Box{Width: 1, Height: 1}}) {
		t.Error("book below custom threshold should be dropped")
	}
	if !f.Accept(detection.Prediction{Class: "vase", Confidence: 0.2, Box: detection.Box{Width: 1, Height: 1}}) {
		t.Error("unlisted class should use the custom default")
	}
}
