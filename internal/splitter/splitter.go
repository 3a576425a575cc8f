package splitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"splice/internal/logging"
	"splice/internal/media"
	"splice/internal/runner"
	"splice/internal/workspace"
)

// Extraction timeouts scale with the expected output length so a stalled
// transcoder cannot hold a segment forever.
const (
	extractionFloor   = 30 * time.Second
	extractionPerSec  = time.Second
	extractionCeiling = 15 * time.Minute
)

// Segment is one contiguous time range of the source, in seconds. A nil End
// reads to the end of the stream.
type Segment struct {
	Start float64
	End   *float64
}

// SplitSpec describes one split job. Segments need not be contiguous or
// non-overlapping; that is the caller's call.
type SplitSpec struct {
	SourcePath string
	Segments   []Segment
}

// Options carries the deployment-level extraction settings.
type Options struct {
	Codec       string // mp3 | aac | copy
	Quality     string
	Extension   string
	MaxParallel int
}

// Prober is the slice of the probe contract the splitter needs.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Info, error)
}

// InvalidSegmentError reports a segment whose time range falls outside the
// probed source duration. It is raised before any subprocess runs.
type InvalidSegmentError struct {
	Index    int
	Start    float64
	End      *float64
	Duration float64
	Detail   string
}

func (e *InvalidSegmentError) Error() string {
	return fmt.Sprintf("segment %d: invalid range: %s", e.Index, e.Detail)
}

// ExtractionFailedError reports a segment whose extraction ran but produced
// no usable audio output.
type ExtractionFailedError struct {
	Index int
	Path  string
	Err   error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("segment %d: extraction failed: %v", e.Index, e.Err)
}

func (e *ExtractionFailedError) Unwrap() error { return e.Err }

// SegmentFailure pairs a failed segment index with its error.
type SegmentFailure struct {
	Index int
	Err   error
}

// Output is one produced segment file with its probed metadata.
type Output struct {
	Index int
	Path  string
	Info  media.Info
}

// Outcome aggregates per-segment results. Outputs preserve request order;
// Failures are ordered by segment index. Segments are independent units of
// work, so a mix of both is a valid outcome.
type Outcome struct {
	Outputs  []Output
	Failures []SegmentFailure
}

// Splitter extracts audio segments from a source file via the transcoder.
type Splitter struct {
	binary string
	run    runner.Runner
	probe  Prober
	opts   Options
	logger *slog.Logger
}

// New constructs a Splitter. binary is the transcoder executable.
func New(binary string, run runner.Runner, probe Prober, opts Options, logger *slog.Logger) (*Splitter, error) {
	if binary == "" {
		return nil, errors.New("transcoder binary required")
	}
	if run == nil || probe == nil {
		return nil, errors.New("runner and prober required")
	}
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	return &Splitter{
		binary: binary,
		run:    run,
		probe:  probe,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "splitter"),
	}, nil
}

// Split validates every segment against the probed source, then extracts
// the valid ones with bounded parallelism. One failing segment never aborts
// the others.
func (s *Splitter) Split(ctx context.Context, spec SplitSpec, source media.Info, ws *workspace.Handle) (*Outcome, error) {
	if len(spec.Segments) == 0 {
		return nil, errors.New("split: at least one segment required")
	}
	if ws == nil {
		return nil, errors.New("split: workspace required")
	}

	outcome := &Outcome{}
	type task struct {
		index   int
		segment Segment
		path    string
	}

	// All validation happens before any subprocess is launched.
	var tasks []task
	for i, segment := range spec.Segments {
		if err := validateSegment(i, segment, source.DurationSeconds); err != nil {
			outcome.Failures = append(outcome.Failures, SegmentFailure{Index: i, Err: err})
			continue
		}
		tasks = append(tasks, task{
			index:   i,
			segment: segment,
			path:    ws.NewPath("." + s.opts.Extension),
		})
	}

	outputs := make([]*Output, len(spec.Segments))
	failures := make([]error, len(spec.Segments))

	sem := make(chan struct{}, s.opts.MaxParallel)
	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			output, err := s.extract(ctx, spec.SourcePath, t.index, t.segment, source.DurationSeconds, t.path)
			if err != nil {
				failures[t.index] = err
				return
			}
			outputs[t.index] = output
		}(t)
	}
	wg.Wait()

	for i := range spec.Segments {
		if outputs[i] != nil {
			outcome.Outputs = append(outcome.Outputs, *outputs[i])
		}
		if failures[i] != nil {
			outcome.Failures = append(outcome.Failures, SegmentFailure{Index: i, Err: failures[i]})
		}
	}
	sort.SliceStable(outcome.Failures, func(a, b int) bool {
		return outcome.Failures[a].Index < outcome.Failures[b].Index
	})

	return outcome, nil
}

func validateSegment(index int, segment Segment, duration float64) error {
	switch {
	case segment.Start < 0:
		return &InvalidSegmentError{Index: index, Start: segment.Start, End: segment.End, Duration: duration,
			Detail: fmt.Sprintf("start %.3f is negative", segment.Start)}
	case segment.Start >= duration:
		return &InvalidSegmentError{Index: index, Start: segment.Start, End: segment.End, Duration: duration,
			Detail: fmt.Sprintf("start %.3f is at or beyond source duration %.3f", segment.Start, duration)}
	}
	if segment.End != nil {
		end := *segment.End
		switch {
		case end <= segment.Start:
			return &InvalidSegmentError{Index: index, Start: segment.Start, End: segment.End, Duration: duration,
				Detail: fmt.Sprintf("end %.3f is not after start %.3f", end, segment.Start)}
		case end > duration:
			return &InvalidSegmentError{Index: index, Start: segment.Start, End: segment.End, Duration: duration,
				Detail: fmt.Sprintf("end %.3f exceeds source duration %.3f", end, duration)}
		}
	}
	return nil
}

func (s *Splitter) extract(ctx context.Context, sourcePath string, index int, segment Segment, sourceDuration float64, outputPath string) (*Output, error) {
	outputSeconds := sourceDuration - segment.Start
	if segment.End != nil {
		outputSeconds = *segment.End - segment.Start
	}

	args := []string{"-hide_banner", "-y", "-ss", FormatTimestamp(segment.Start)}
	if segment.End != nil {
		args = append(args, "-t", FormatTimestamp(outputSeconds))
	}
	args = append(args, "-i", sourcePath, "-vn")
	args = append(args, s.codecArgs()...)
	args = append(args, "-map_metadata", "-1", outputPath)

	result, err := s.run.Run(ctx, runner.Command{
		Binary:  s.binary,
		Args:    args,
		Timeout: extractionTimeout(outputSeconds),
	})
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, &runner.ProcessError{Binary: s.binary, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	if err := s.validateOutput(ctx, index, outputPath); err != nil {
		return nil, err
	}

	info, err := s.probe.Probe(ctx, outputPath)
	if err != nil {
		return nil, &ExtractionFailedError{Index: index, Path: outputPath, Err: err}
	}
	if info.AudioStreamCount() == 0 {
		return nil, &ExtractionFailedError{Index: index, Path: outputPath, Err: errors.New("output has no audio streams")}
	}

	s.logger.Debug("segment extracted",
		logging.Int("segment", index),
		logging.String("path", outputPath),
		logging.Float64("seconds", outputSeconds),
	)
	return &Output{Index: index, Path: outputPath, Info: info}, nil
}

func (s *Splitter) validateOutput(_ context.Context, index int, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ExtractionFailedError{Index: index, Path: path, Err: fmt.Errorf("output missing: %w", err)}
	}
	if info.Size() == 0 {
		return &ExtractionFailedError{Index: index, Path: path, Err: errors.New("output is empty")}
	}
	return nil
}

func (s *Splitter) codecArgs() []string {
	switch s.opts.Codec {
	case "aac":
		return []string{"-acodec", "aac", "-b:a", s.opts.Quality}
	case "copy":
		return []string{"-c", "copy"}
	default:
		return []string{"-acodec", "libmp3lame", "-q:a", s.opts.Quality}
	}
}

func extractionTimeout(outputSeconds float64) time.Duration {
	timeout := extractionFloor
	if outputSeconds > 0 {
		timeout += time.Duration(outputSeconds * float64(extractionPerSec))
	}
	if timeout > extractionCeiling {
		timeout = extractionCeiling
	}
	return timeout
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm, the timestamp form the
// transcoder's -ss/-t flags accept.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	millis := int((seconds-float64(whole))*1000 + 0.5)
	if millis >= 1000 {
		whole++
		millis -= 1000
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", whole/3600, (whole/60)%60, whole%60, millis)
}
