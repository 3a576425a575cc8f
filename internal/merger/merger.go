package merger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"splice/internal/logging"
	"splice/internal/media"
	"splice/internal/runner"
	"splice/internal/workspace"
)

// Merge timeouts scale with the total input duration.
const (
	mergeFloor   = 60 * time.Second
	mergePerSec  = time.Second
	mergeCeiling = 30 * time.Minute
)

// Strategy selects how inputs are concatenated.
type Strategy string

const (
	// StrategyCopy concatenates without re-encoding. Every input must
	// carry an identical ordered list of (stream kind, codec) pairs.
	StrategyCopy Strategy = "copy"
	// StrategyReencode re-encodes to H.264/AAC. Inputs only need to probe
	// cleanly and contain at least one video stream.
	StrategyReencode Strategy = "reencode"
)

// MergeSpec describes one merge job. Segment order is the concatenation
// order and is significant.
type MergeSpec struct {
	Segments   []string
	OutputName string
}

// Options carries the deployment-level merge settings.
type Options struct {
	Strategy     Strategy
	CRF          string
	Preset       string
	AudioBitrate string
}

// Prober is the slice of the probe contract the merger needs.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Info, error)
}

// IncompatibleStreamsError reports inputs the chosen strategy cannot
// concatenate. It is raised before any subprocess runs.
type IncompatibleStreamsError struct {
	Detail string
}

func (e *IncompatibleStreamsError) Error() string {
	return "incompatible streams: " + e.Detail
}

// Plan is a validated, ready-to-execute concatenation.
type Plan struct {
	Inputs       []media.Info
	TotalSeconds float64

	manifestPath string
	outputPath   string
	timeout      time.Duration
}

// Output is the merged file with its probed metadata.
type Output struct {
	Path     string
	Info     media.Info
	Warnings []string
}

// Merger concatenates video segments into one output file.
type Merger struct {
	binary string
	run    runner.Runner
	probe  Prober
	opts   Options
	logger *slog.Logger
}

// New constructs a Merger. binary is the transcoder executable.
func New(binary string, run runner.Runner, probe Prober, opts Options, logger *slog.Logger) (*Merger, error) {
	if binary == "" {
		return nil, errors.New("transcoder binary required")
	}
	if run == nil || probe == nil {
		return nil, errors.New("runner and prober required")
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyCopy
	}
	return &Merger{
		binary: binary,
		run:    run,
		probe:  probe,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "merger"),
	}, nil
}

// Prepare probes every input, checks compatibility for the configured
// strategy, and writes the concat manifest into the workspace. No
// transcoder process runs here; any failure leaves no partial side effects.
func (m *Merger) Prepare(ctx context.Context, spec MergeSpec, ws *workspace.Handle) (*Plan, error) {
	if len(spec.Segments) == 0 {
		return nil, errors.New("merge: at least one segment required")
	}
	if ws == nil {
		return nil, errors.New("merge: workspace required")
	}

	infos := make([]media.Info, 0, len(spec.Segments))
	totalSeconds := 0.0
	for _, path := range spec.Segments {
		info, err := m.probe.Probe(ctx, path)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
		totalSeconds += info.DurationSeconds
	}

	if err := m.checkCompatibility(infos); err != nil {
		return nil, err
	}

	manifestPath := ws.NewPath("inputs.txt")
	if err := writeConcatManifest(manifestPath, spec.Segments); err != nil {
		return nil, err
	}

	outputName := strings.TrimSpace(spec.OutputName)
	if outputName == "" {
		outputName = "joined.mp4"
	}

	return &Plan{
		Inputs:       infos,
		TotalSeconds: totalSeconds,
		manifestPath: manifestPath,
		outputPath:   ws.NewPath(outputName),
		timeout:      mergeTimeout(totalSeconds),
	}, nil
}

// Execute issues the single concatenation process. Merging is
// all-or-nothing: a non-zero exit fails the whole job and no partial
// output survives the workspace.
func (m *Merger) Execute(ctx context.Context, plan *Plan) (*Output, error) {
	if plan == nil {
		return nil, errors.New("merge: plan required")
	}

	args := []string{"-hide_banner", "-y", "-f", "concat", "-safe", "0", "-i", plan.manifestPath}
	args = append(args, m.strategyArgs()...)
	args = append(args, "-movflags", "+faststart", plan.outputPath)

	result, err := m.run.Run(ctx, runner.Command{
		Binary:  m.binary,
		Args:    args,
		Timeout: plan.timeout,
	})
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, &runner.ProcessError{Binary: m.binary, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	info, err := m.probe.Probe(ctx, plan.outputPath)
	if err != nil {
		return nil, fmt.Errorf("merged output unusable: %w", err)
	}

	output := &Output{Path: plan.outputPath, Info: info}
	if plan.TotalSeconds > 0 && math.Abs(info.DurationSeconds-plan.TotalSeconds) > 1.0 {
		output.Warnings = append(output.Warnings, fmt.Sprintf(
			"merged duration %.3fs deviates from summed input duration %.3fs", info.DurationSeconds, plan.TotalSeconds))
	}

	m.logger.Debug("segments merged",
		logging.Int("inputs", len(plan.Inputs)),
		logging.String("path", plan.outputPath),
		logging.Float64("seconds", info.DurationSeconds),
	)
	return output, nil
}

// Merge runs Prepare and Execute back to back.
func (m *Merger) Merge(ctx context.Context, spec MergeSpec, ws *workspace.Handle) (*Output, error) {
	plan, err := m.Prepare(ctx, spec, ws)
	if err != nil {
		return nil, err
	}
	return m.Execute(ctx, plan)
}

func (m *Merger) checkCompatibility(infos []media.Info) error {
	switch m.opts.Strategy {
	case StrategyReencode:
		for _, info := range infos {
			if info.VideoStreamCount() == 0 {
				return &IncompatibleStreamsError{Detail: fmt.Sprintf("%s has no video stream", info.Path)}
			}
		}
		return nil
	default:
		reference := strings.Join(infos[0].StreamSignature(), ",")
		for _, info := range infos[1:] {
			signature := strings.Join(info.StreamSignature(), ",")
			if signature != reference {
				return &IncompatibleStreamsError{Detail: fmt.Sprintf(
					"stream copy requires matching codecs: %s has [%s], %s has [%s]",
					infos[0].Path, reference, info.Path, signature)}
			}
		}
		return nil
	}
}

func (m *Merger) strategyArgs() []string {
	if m.opts.Strategy == StrategyReencode {
		return []string{
			"-c:v", "libx264", "-preset", m.opts.Preset, "-crf", m.opts.CRF,
			"-c:a", "aac", "-b:a", m.opts.AudioBitrate,
		}
	}
	return []string{"-c", "copy"}
}

// writeConcatManifest writes the concat demuxer list file: one
// "file 'path'" line per input, in concatenation order.
func writeConcatManifest(path string, inputs []string) error {
	var b strings.Builder
	for _, input := range inputs {
		escaped := strings.ReplaceAll(input, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}

func mergeTimeout(totalSeconds float64) time.Duration {
	timeout := mergeFloor
	if totalSeconds > 0 {
		timeout += time.Duration(totalSeconds * float64(mergePerSec))
	}
	if timeout > mergeCeiling {
		timeout = mergeCeiling
	}
	return timeout
}
