package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"splice/internal/media"
	"splice/internal/runner"
)

// DefaultTimeout bounds a single prober invocation.
const DefaultTimeout = 10 * time.Second

// Reason classifies a probe failure.
type Reason string

const (
	ReasonNotFound          Reason = "not-found"
	ReasonUnreadable        Reason = "unreadable"
	ReasonToolchainError    Reason = "toolchain-error"
	ReasonMalformedMetadata Reason = "malformed-metadata"
)

// Failure reports why a file could not be probed. Stderr carries the
// prober's own diagnostics verbatim when the toolchain failed.
type Failure struct {
	Reason Reason
	Path   string
	Stderr string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("probe %s: %s: %v", f.Path, f.Reason, f.Err)
	}
	if detail := strings.TrimSpace(f.Stderr); detail != "" {
		return fmt.Sprintf("probe %s: %s: %s", f.Path, f.Reason, detail)
	}
	return fmt.Sprintf("probe %s: %s", f.Path, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// Prober executes the external prober binary and decodes its JSON output.
type Prober struct {
	binary  string
	timeout time.Duration
	run     runner.Runner
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout overrides the default invocation timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(run runner.Runner) Option {
	return func(p *Prober) {
		if run != nil {
			p.run = run
		}
	}
}

// New constructs a Prober for the given binary.
func New(binary string, opts ...Option) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	p := &Prober{binary: binary, timeout: DefaultTimeout, run: runner.NewExec()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// payload mirrors the prober's JSON document.
type payload struct {
	Streams []struct {
		Index      int    `json:"index"`
		CodecName  string `json:"codec_name"`
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe inspects the file at path and returns its metadata. The only side
// effect is the subprocess invocation itself.
func (p *Prober) Probe(ctx context.Context, path string) (media.Info, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return media.Info{}, &Failure{Reason: ReasonNotFound, Path: path, Err: errors.New("empty path")}
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return media.Info{}, &Failure{Reason: ReasonNotFound, Path: path, Err: err}
		}
		return media.Info{}, &Failure{Reason: ReasonUnreadable, Path: path, Err: err}
	}

	result, err := p.run.Run(ctx, runner.Command{
		Binary:  p.binary,
		Args:    []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path},
		Timeout: p.timeout,
	})
	if err != nil {
		return media.Info{}, &Failure{Reason: ReasonToolchainError, Path: path, Err: err}
	}
	if result.ExitCode != 0 {
		return media.Info{}, &Failure{Reason: ReasonToolchainError, Path: path, Stderr: result.Stderr}
	}

	var doc payload
	if err := json.Unmarshal([]byte(result.Stdout), &doc); err != nil {
		return media.Info{}, &Failure{Reason: ReasonMalformedMetadata, Path: path, Err: err}
	}
	if len(doc.Streams) == 0 {
		return media.Info{}, &Failure{Reason: ReasonMalformedMetadata, Path: path, Err: errors.New("no streams reported")}
	}

	duration, err := parseDuration(doc.Format.Duration)
	if err != nil {
		return media.Info{}, &Failure{Reason: ReasonMalformedMetadata, Path: path, Err: err}
	}

	info := media.Info{
		Path:            path,
		ContainerFormat: strings.TrimSpace(doc.Format.FormatName),
		DurationSeconds: duration,
		Streams:         make([]media.Stream, 0, len(doc.Streams)),
	}
	for _, stream := range doc.Streams {
		info.Streams = append(info.Streams, media.Stream{
			Index:      stream.Index,
			Kind:       media.KindFromCodecType(stream.CodecType),
			Codec:      strings.TrimSpace(stream.CodecName),
			SampleRate: parseIntString(stream.SampleRate),
			Channels:   stream.Channels,
			Width:      stream.Width,
			Height:     stream.Height,
		})
	}
	return info, nil
}

func parseDuration(value string) (float64, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0, errors.New("container reports no duration")
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("container duration %q: %w", cleaned, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("container duration %q is negative", cleaned)
	}
	return parsed, nil
}

func parseIntString(value string) int {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.Atoi(cleaned); err == nil {
		return parsed
	}
	return 0
}
