package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration invariants that would otherwise surface as
// confusing toolchain failures mid-job.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return fmt.Errorf("config: paths.work_dir is required")
	}

	switch c.Split.Codec {
	case "mp3", "aac", "copy":
	default:
		return fmt.Errorf("config: split.codec must be mp3, aac, or copy (got %q)", c.Split.Codec)
	}
	if c.Split.MaxParallel < 1 {
		return fmt.Errorf("config: split.max_parallel must be >= 1 (got %d)", c.Split.MaxParallel)
	}
	if strings.TrimSpace(c.Split.Extension) == "" {
		return fmt.Errorf("config: split.extension is required")
	}

	switch c.Merge.Strategy {
	case "copy", "reencode":
	default:
		return fmt.Errorf("config: merge.strategy must be copy or reencode (got %q)", c.Merge.Strategy)
	}

	if c.Toolchain.ProbeTimeoutSeconds < 1 {
		return fmt.Errorf("config: toolchain.probe_timeout_seconds must be >= 1 (got %d)", c.Toolchain.ProbeTimeoutSeconds)
	}
	if c.Workspace.StaleAfterMinutes < 1 {
		return fmt.Errorf("config: workspace.stale_after_minutes must be >= 1 (got %d)", c.Workspace.StaleAfterMinutes)
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}
