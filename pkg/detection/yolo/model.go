package yolo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/teslashibe/go-proctor/internal/httpc"
	"github.com/teslashibe/go-proctor/pkg/detection"
)

var downloadMu sync.Mutex

// EnsureModel makes sure cfg.ModelPath exists, downloading it from
// cfg.ModelURL when it is missing and a URL is configured.
func EnsureModel(ctx context.Context, cfg Config) error {
	if _, err := os.Stat(cfg.ModelPath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat model: %w", err)
	}

	if cfg.ModelURL == "" {
		return fmt.Errorf("%w: %s", detection.ErrModelNotFound, cfg.ModelPath)
	}

	// Several backends may race to fetch the same file
	downloadMu.Lock()
	defer downloadMu.Unlock()

	if _, err := os.Stat(cfg.ModelPath); err == nil {
		return nil
	}
	if err := httpc.DownloadFile(ctx, httpc.Client, cfg.ModelURL, cfg.ModelPath); err != nil {
		return fmt.Errorf("%w: %v", detection.ErrModelNotFound, err)
	}
	return nil
}
