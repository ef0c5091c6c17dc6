package detection

import (
	"context"
	"log/slog"
)

// Opener opens a detector on one backend.
type Opener struct {
	Name string
	Open func(ctx context.Context) (Detector, error)
}

// Load tries each opener in order until one succeeds.
// It returns the detector and the name of the backend that produced it.
// When every opener fails the error is a *LoadError.
func Load(ctx context.Context, logger *slog.Logger, openers ...Opener) (Detector, string, error) {
	if len(openers) == 0 {
		return nil, "", ErrNoBackends
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "detection.loader")

	var errs []error
	for i, o := range openers {
		d, err := o.Open(ctx)
		if err == nil {
			if i > 0 {
				logger.Info("fallback backend loaded", "backend", o.Name, "backend_index", i)
			}
			return d, o.Name, nil
		}

		errs = append(errs, &BackendError{Backend: o.Name, Err: err})
		logger.Warn("backend failed, trying next", "backend", o.Name, "error", err)

		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
	}
	return nil, "", &LoadError{Errors: errs}
}
