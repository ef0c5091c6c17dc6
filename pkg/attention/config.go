package attention

import "github.com/teslashibe/go-proctor/pkg/detection"

// Config is the scoring policy table. Every value is an empirical, tunable
// constant; none of them is physically derived.
type Config struct {
	// Roles
	DeviceClasses      []string `yaml:"-"`                   // Phones, set through the pipeline config
	SecondaryClasses   []string `yaml:"secondary_classes"`   // Other computers
	DistractingClasses []string `yaml:"distracting_classes"` // Objects that pull focus

	// Focus
	FocusBase                      float64 `yaml:"focus_base"`
	DevicePenalty                  float64 `yaml:"device_penalty"`                     // Per device, times the scaled confidence
	DeviceConfidenceScale          float64 `yaml:"device_confidence_scale"`            // Confidence multiplier before capping
	DeviceConfidenceCap            float64 `yaml:"device_confidence_cap"`              // Cap on the scaled confidence
	SecondaryPenalty               float64 `yaml:"secondary_penalty"`                  // Per secondary computer, times confidence
	DistractingPenalty             float64 `yaml:"distracting_penalty"`                // Per distracting object, times confidence
	SinglePersonBonus              float64 `yaml:"single_person_bonus"`                // Flat bonus for one confident person
	SinglePersonBonusMinConfidence float64 `yaml:"single_person_bonus_min_confidence"`

	// Eye contact
	EyeContactAbsent           float64 `yaml:"eye_contact_absent"`
	EyeContactBase             float64 `yaml:"eye_contact_base"`
	EyeContactConfidenceWeight float64 `yaml:"eye_contact_confidence_weight"`
	EyeContactCenterWeight     float64 `yaml:"eye_contact_center_weight"`
	EyeContactDevicePenalty    float64 `yaml:"eye_contact_device_penalty"`
	EyeContactCrowdPenalty     float64 `yaml:"eye_contact_crowd_penalty"`     // Per extra person
	EyeContactCrowdFloor       float64 `yaml:"eye_contact_crowd_floor"`

	// Head pose
	HeadPoseDefault          float64 `yaml:"head_pose_default"`           // Zero or several people
	HeadPoseBase             float64 `yaml:"head_pose_base"`
	HeadPoseConfidenceWeight float64 `yaml:"head_pose_confidence_weight"`
	HeadPoseAreaScale        float64 `yaml:"head_pose_area_scale"`        // Relative box area multiplier
	HeadPoseAreaCap          float64 `yaml:"head_pose_area_cap"`
	HeadPoseDevicePenalty    float64 `yaml:"head_pose_device_penalty"`
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		DeviceClasses:      []string{detection.ClassCellPhone},
		SecondaryClasses:   []string{"laptop", "tablet", "keyboard", "mouse", "monitor"},
		DistractingClasses: []string{"bottle", "cup", "book", "remote", "tv"},

		FocusBase:                      80,
		DevicePenalty:                  35,
		DeviceConfidenceScale:          1.5,
		DeviceConfidenceCap:            1.5,
		SecondaryPenalty:               15,
		DistractingPenalty:             8,
		SinglePersonBonus:              5,
		SinglePersonBonusMinConfidence: 0.7,

		EyeContactAbsent:           20,
		EyeContactBase:             60,
		EyeContactConfidenceWeight: 25,
		EyeContactCenterWeight:     15,
		EyeContactDevicePenalty:    20,
		EyeContactCrowdPenalty:     25,
		EyeContactCrowdFloor:       30,

		HeadPoseDefault:          60,
		HeadPoseBase:             50,
		HeadPoseConfidenceWeight: 30,
		HeadPoseAreaScale:        1000,
		HeadPoseAreaCap:          40,
		HeadPoseDevicePenalty:    15,
	}
}
