package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"splice/internal/logging"
)

// Manager allocates isolated per-job directories under a common root.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager constructs a Manager rooted at the given directory.
func NewManager(root string, logger *slog.Logger) (*Manager, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("workspace root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Manager{
		root:   root,
		logger: logging.NewComponentLogger(logger, "workspace"),
	}, nil
}

// Root returns the directory workspaces are created under.
func (m *Manager) Root() string { return m.root }

// Open creates a fresh directory for the job. The directory name embeds the
// job id plus a random suffix, so concurrent jobs can never collide.
func (m *Manager) Open(jobID string) (*Handle, error) {
	name := sanitizeName(jobID)
	if name == "" {
		name = "job"
	}
	dir := filepath.Join(m.root, name+"-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	m.logger.Debug("workspace opened", logging.String(logging.FieldJobID, jobID), logging.String("dir", dir))
	return &Handle{dir: dir, jobID: jobID, logger: m.logger}, nil
}

// Handle is the exclusively-owned workspace of one job. Release removes the
// directory and everything in it and is safe to call more than once.
type Handle struct {
	dir    string
	jobID  string
	logger *slog.Logger

	mu       sync.Mutex
	count    int
	paths    []string
	released bool
}

// Dir returns the workspace directory.
func (h *Handle) Dir() string { return h.dir }

// NewPath allocates and registers a path inside the workspace without
// creating the file. A suffix starting with "." yields a sequentially
// numbered name (part_001.mp3); anything else is used as the file name.
func (h *Handle) NewPath(suffix string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var name string
	if strings.HasPrefix(suffix, ".") {
		h.count++
		name = fmt.Sprintf("part_%03d%s", h.count, suffix)
	} else {
		name = sanitizeName(suffix)
		if name == "" {
			h.count++
			name = fmt.Sprintf("part_%03d", h.count)
		}
	}
	path := filepath.Join(h.dir, name)
	h.paths = append(h.paths, path)
	return path
}

// Paths returns every path registered so far, in allocation order.
func (h *Handle) Paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

// Release removes the workspace directory recursively. It is idempotent and
// never fails on a workspace that is already gone.
func (h *Handle) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	h.mu.Unlock()

	if err := os.RemoveAll(h.dir); err != nil {
		h.logger.Warn("workspace release failed",
			logging.String(logging.FieldJobID, h.jobID),
			logging.String("dir", h.dir),
			logging.Error(err),
		)
		return fmt.Errorf("release workspace: %w", err)
	}
	h.logger.Debug("workspace released", logging.String(logging.FieldJobID, h.jobID), logging.String("dir", h.dir))
	return nil
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "-", "?", "", "\"", "", "<", "", ">", "", "|", "", " ", "-", "..", "-")
	return strings.Trim(replacer.Replace(name), "-.")
}
