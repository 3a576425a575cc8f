package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"splice/internal/deps"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Toolchain names the external binaries. FFMPEG_PATH and FFPROBE_PATH in
// the environment take precedence over these values.
type Toolchain struct {
	FFmpeg              string `toml:"ffmpeg"`
	FFprobe             string `toml:"ffprobe"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
}

// Split contains audio extraction settings.
type Split struct {
	Codec       string `toml:"codec"`   // mp3 | aac | copy
	Quality     string `toml:"quality"` // mp3: -q:a value; aac: bitrate such as "192k"
	Extension   string `toml:"extension"`
	MaxParallel int    `toml:"max_parallel"`
}

// Merge contains concatenation settings.
type Merge struct {
	Strategy     string `toml:"strategy"` // copy | reencode
	CRF          string `toml:"crf"`
	Preset       string `toml:"preset"`
	AudioBitrate string `toml:"audio_bitrate"`
}

// Workspace contains workspace lifecycle settings.
type Workspace struct {
	StaleAfterMinutes int `toml:"stale_after_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for splice.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Toolchain Toolchain `toml:"toolchain"`
	Split     Split     `toml:"split"`
	Merge     Merge     `toml:"merge"`
	Workspace Workspace `toml:"workspace"`
	Logging   Logging   `toml:"logging"`
}

// TranscoderBinary resolves the transcoder executable, honoring the
// environment override.
func (c *Config) TranscoderBinary() string {
	return deps.ResolveTranscoder(c.Toolchain.FFmpeg)
}

// ProberBinary resolves the prober executable, honoring the environment
// override.
func (c *Config) ProberBinary() string {
	return deps.ResolveProber(c.Toolchain.FFprobe)
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/splice/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("splice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories splice needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
			return err
		}
	}
	c.Split.Codec = strings.ToLower(strings.TrimSpace(c.Split.Codec))
	c.Split.Extension = strings.TrimPrefix(strings.TrimSpace(c.Split.Extension), ".")
	c.Merge.Strategy = strings.ToLower(strings.TrimSpace(c.Merge.Strategy))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// ExpandPath resolves ~ and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
