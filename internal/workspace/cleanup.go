package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"splice/internal/logging"
)

const sweepLockName = ".sweep.lock"

// CleanStaleResult contains the outcome of a stale workspace sweep.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
	Skipped bool
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes workspace directories older than maxAge. Crashed
// invocations can leave directories behind; a sweep at startup reclaims
// them. The sweep is serialized across concurrent workers with a lock file
// in the root; when another worker holds it the sweep is skipped.
func (m *Manager) CleanStale(ctx context.Context, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	if logger == nil {
		logger = m.logger
	}

	lock := flock.New(filepath.Join(m.root, sweepLockName))
	locked, err := lock.TryLock()
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: m.root, Error: err})
		return result
	}
	if !locked {
		result.Skipped = true
		return result
	}
	defer func() { _ = lock.Unlock() }()

	entries, err := os.ReadDir(m.root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: m.root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(m.root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logger.Warn("failed to remove stale workspace",
				logging.String("path", dirPath),
				logging.Error(err),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed stale workspace",
			logging.String("path", dirPath),
			logging.Duration("age", time.Since(info.ModTime())),
		)
	}

	return result
}
