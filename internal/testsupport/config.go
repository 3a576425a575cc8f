package testsupport

import (
	"path/filepath"
	"testing"

	"splice/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMergeStrategy sets the merge strategy on the test config.
func WithMergeStrategy(strategy string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Merge.Strategy = strategy
	}
}

// WithSplitCodec sets the split codec on the test config.
func WithSplitCodec(codec string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Split.Codec = codec
	}
}
