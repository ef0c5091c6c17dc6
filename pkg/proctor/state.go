package proctor

import "fmt"

// State is the orchestrator lifecycle state.
type State int32

const (
	StateNotReady State = iota
	StateReady
	StateDetecting
)

func (s State) String() string {
	switch s {
	case StateNotReady:
		return "not_ready"
	case StateReady:
		return "ready"
	case StateDetecting:
		return "detecting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MarshalText renders the state name in JSON and YAML.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
