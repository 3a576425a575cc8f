package worker

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"splice/internal/deps"
)

// Health verifies the toolchain binaries resolve to executables and the
// work root is usable. It takes no arguments and runs no media work, so an
// external process-health collaborator can poll it cheaply.
func (w *Worker) Health(_ context.Context) []deps.Status {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "Transcoder",
			Command:     w.transcoderBin,
			Description: "Required for extraction and concatenation",
		},
		{
			Name:        "Prober",
			Command:     w.proberBin,
			Description: "Required for media inspection",
		},
	})
	statuses = append(statuses, checkWorkRoot(w.manager.Root()))
	return statuses
}

// Healthy reports whether every non-optional status is available.
func Healthy(statuses []deps.Status) bool {
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			return false
		}
	}
	return true
}

func checkWorkRoot(path string) deps.Status {
	status := deps.Status{
		Name:        "Work directory",
		Command:     path,
		Description: "Holds per-job workspaces",
	}
	info, err := os.Stat(path)
	if err != nil {
		status.Detail = fmt.Sprintf("%s: %v", path, err)
		return status
	}
	if !info.IsDir() {
		status.Detail = fmt.Sprintf("%s is not a directory", path)
		return status
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		status.Detail = fmt.Sprintf("%s: insufficient permissions: %v", path, err)
		return status
	}
	status.Available = true
	return status
}
