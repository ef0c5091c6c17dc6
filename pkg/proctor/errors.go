package proctor

import "errors"

// Submit drops a frame with one of these. Callers that only care whether a
// result was produced can ignore the error; none of them are fatal.
var (
	ErrNotReady       = errors.New("proctor: detector not loaded")
	ErrBusy           = errors.New("proctor: detection in progress")
	ErrRateLimited    = errors.New("proctor: rate limited")
	ErrFrameNotReady  = errors.New("proctor: frame not ready")
	ErrInference      = errors.New("proctor: inference failed")
	ErrLoadInProgress = errors.New("proctor: load already in progress")
)
