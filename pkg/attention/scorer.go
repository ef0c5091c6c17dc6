// Package attention turns a frame's stabilized detections into heuristic
// focus scores for proctoring.
//
// The scores are linear combinations of detection counts, confidences and
// box geometry. They are a policy, not a measurement: see Config for the
// tunable table.
package attention

import (
	"math"

	"github.com/teslashibe/go-proctor/pkg/detection"
)

// Metrics is the published focus snapshot. Every score is an integer in [0, 100].
type Metrics struct {
	FocusScore       int `json:"focus_score"`
	EyeContactScore  int `json:"eye_contact_score"`
	HeadPoseScore    int `json:"head_pose_score"`
	OverallAttention int `json:"overall_attention"`
}

// Roles partitions predictions by what they mean for proctoring.
type Roles struct {
	Persons     []detection.Prediction
	Devices     []detection.Prediction
	Secondary   []detection.Prediction
	Distracting []detection.Prediction
}

// Scorer computes Metrics from predictions.
type Scorer struct {
	config      Config
	devices     detection.ClassSet
	secondary   detection.ClassSet
	distracting detection.ClassSet
}

// New creates a scorer.
func New(cfg Config) *Scorer {
	return &Scorer{
		config:      cfg,
		devices:     detection.NewClassSet(cfg.DeviceClasses...),
		secondary:   detection.NewClassSet(cfg.SecondaryClasses...),
		distracting: detection.NewClassSet(cfg.DistractingClasses...),
	}
}

// Partition splits predictions into roles. Classes with no role are ignored.
func (s *Scorer) Partition(preds []detection.Prediction) Roles {
	var r Roles
	for _, p := range preds {
		switch {
		case detection.IsPerson(p.Class):
			r.Persons = append(r.Persons, p)
		case s.devices.Has(p.Class):
			r.Devices = append(r.Devices, p)
		case s.secondary.Has(p.Class):
			r.Secondary = append(r.Secondary, p)
		case s.distracting.Has(p.Class):
			r.Distracting = append(r.Distracting, p)
		}
	}
	return r
}

// Score computes the metrics for one frame of frameW x frameH pixels.
func (s *Scorer) Score(preds []detection.Prediction, frameW, frameH int) Metrics {
	return s.ScoreRoles(s.Partition(preds), frameW, frameH)
}

// ScoreRoles computes the metrics from an already partitioned frame.
func (s *Scorer) ScoreRoles(r Roles, frameW, frameH int) Metrics {
	focus := clampScore(s.focus(r))
	eye := clampScore(s.eyeContact(r, frameW))
	head := clampScore(s.headPose(r, frameW, frameH))

	return Metrics{
		FocusScore:       focus,
		EyeContactScore:  eye,
		HeadPoseScore:    head,
		OverallAttention: clampScore(float64(focus+eye+head) / 3),
	}
}

func (s *Scorer) focus(r Roles) float64 {
	c := s.config
	score := c.FocusBase

	for _, d := range r.Devices {
		score -= c.DevicePenalty * math.Min(c.DeviceConfidenceCap, d.Confidence*c.DeviceConfidenceScale)
	}
	for _, d := range r.Secondary {
		score -= d.Confidence * c.SecondaryPenalty
	}
	for _, d := range r.Distracting {
		score -= d.Confidence * c.DistractingPenalty
	}

	if len(r.Persons) == 1 && r.Persons[0].Confidence > c.SinglePersonBonusMinConfidence {
		score += c.SinglePersonBonus
	}
	return score
}

func (s *Scorer) eyeContact(r Roles, frameW int) float64 {
	c := s.config

	switch n := len(r.Persons); {
	case n == 0:
		return c.EyeContactAbsent
	case n > 1:
		return math.Max(c.EyeContactCrowdFloor, 100-float64(n-1)*c.EyeContactCrowdPenalty)
	}

	p := r.Persons[0]
	centeredness := 0.0
	if frameW > 0 {
		cx, _ := p.Box.Center()
		centeredness = 1 - math.Abs(cx/float64(frameW)-0.5)
	}

	score := math.Min(100, c.EyeContactBase+p.Confidence*c.EyeContactConfidenceWeight+centeredness*c.EyeContactCenterWeight)
	if len(r.Devices) > 0 {
		score -= c.EyeContactDevicePenalty
	}
	return score
}

func (s *Scorer) headPose(r Roles, frameW, frameH int) float64 {
	c := s.config

	if len(r.Persons) != 1 {
		return c.HeadPoseDefault
	}

	p := r.Persons[0]
	relArea := 0.0
	if frameW > 0 && frameH > 0 {
		relArea = p.Box.Area() / float64(frameW*frameH)
	}

	score := math.Min(100, c.HeadPoseBase+p.Confidence*c.HeadPoseConfidenceWeight+math.Min(c.HeadPoseAreaCap, relArea*c.HeadPoseAreaScale))
	if len(r.Devices) > 0 {
		score -= c.HeadPoseDevicePenalty
	}
	return score
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return int(r)
}
