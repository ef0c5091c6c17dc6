package video

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Source is a camera index or a file path.
type Source struct {
	Device int
	Path   string
}

// ParseSource treats a non-negative integer as a camera index and anything
// else as a path.
func ParseSource(s string) Source {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return Source{Device: n}
	}
	return Source{Device: -1, Path: s}
}

// IsDevice reports whether the source is a camera.
func (s Source) IsDevice() bool {
	return s.Path == "" && s.Device >= 0
}

func (s Source) String() string {
	if s.IsDevice() {
		return "camera:" + strconv.Itoa(s.Device)
	}
	return s.Path
}

// FrameInterval converts a frame rate to a frame period. Unknown or
// implausible rates return 0.
func FrameInterval(fps float64) time.Duration {
	if fps <= 0 || fps > 240 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
