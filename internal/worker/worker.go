package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"splice/internal/config"
	"splice/internal/logging"
	"splice/internal/media"
	"splice/internal/media/ffprobe"
	"splice/internal/merger"
	"splice/internal/runner"
	"splice/internal/splitter"
	"splice/internal/workspace"
)

// Kind selects the operation a job performs.
type Kind string

const (
	KindSplit Kind = "split"
	KindMerge Kind = "merge"
)

// Job is the unit of work. It owns its workspace exclusively from intake
// until a terminal state releases it.
type Job struct {
	ID     string
	Kind   Kind
	Status Status
}

// OutputFile is one produced file with its probed metadata. The path stays
// valid only until the owning job's workspace is released.
type OutputFile struct {
	Path string
	Info media.Info
}

// OperationResult is what the external request handler receives back.
type OperationResult struct {
	JobID          string
	Kind           Kind
	Status         Status
	Outputs        []OutputFile
	Failures       []splitter.SegmentFailure
	Warnings       []string
	DurationMillis int64
}

// Consumer receives the result while the workspace is still alive, so the
// external storage collaborator can move outputs out before teardown.
type Consumer func(ctx context.Context, result *OperationResult) error

// Prober is the probe contract the worker depends on.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Info, error)
}

// Worker wires the pipeline together and drives jobs through the state
// machine.
type Worker struct {
	manager  *workspace.Manager
	prober   Prober
	split    *splitter.Splitter
	merge    *merger.Merger
	consumer Consumer
	logger   *slog.Logger

	transcoderBin string
	proberBin     string
}

// Option configures a Worker.
type Option func(*builder)

type builder struct {
	run      runner.Runner
	prober   Prober
	consumer Consumer
}

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(run runner.Runner) Option {
	return func(b *builder) { b.run = run }
}

// WithProber injects a custom prober (primarily for tests).
func WithProber(prober Prober) Option {
	return func(b *builder) { b.prober = prober }
}

// WithConsumer registers the output consumer invoked before workspace
// release.
func WithConsumer(consumer Consumer) Option {
	return func(b *builder) { b.consumer = consumer }
}

// New constructs a Worker from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Worker, error) {
	if cfg == nil {
		return nil, errors.New("worker requires config")
	}
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.run == nil {
		b.run = runner.NewExec()
	}

	transcoderBin := cfg.TranscoderBinary()
	proberBin := cfg.ProberBinary()

	if b.prober == nil {
		b.prober = ffprobe.New(proberBin,
			ffprobe.WithTimeout(time.Duration(cfg.Toolchain.ProbeTimeoutSeconds)*time.Second),
			ffprobe.WithRunner(b.run),
		)
	}

	manager, err := workspace.NewManager(cfg.Paths.WorkDir, logger)
	if err != nil {
		return nil, err
	}

	split, err := splitter.New(transcoderBin, b.run, b.prober, splitter.Options{
		Codec:       cfg.Split.Codec,
		Quality:     cfg.Split.Quality,
		Extension:   cfg.Split.Extension,
		MaxParallel: cfg.Split.MaxParallel,
	}, logger)
	if err != nil {
		return nil, err
	}

	merge, err := merger.New(transcoderBin, b.run, b.prober, merger.Options{
		Strategy:     merger.Strategy(cfg.Merge.Strategy),
		CRF:          cfg.Merge.CRF,
		Preset:       cfg.Merge.Preset,
		AudioBitrate: cfg.Merge.AudioBitrate,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Worker{
		manager:       manager,
		prober:        b.prober,
		split:         split,
		merge:         merge,
		consumer:      b.consumer,
		logger:        logging.NewComponentLogger(logger, "worker"),
		transcoderBin: transcoderBin,
		proberBin:     proberBin,
	}, nil
}

// Workspaces exposes the workspace manager for startup sweeps.
func (w *Worker) Workspaces() *workspace.Manager { return w.manager }

// HandleSplit runs a split job under a generated id.
func (w *Worker) HandleSplit(ctx context.Context, spec splitter.SplitSpec) (*OperationResult, error) {
	return w.HandleSplitJob(ctx, "", spec)
}

// HandleSplitJob runs a split job under the caller-supplied id.
func (w *Worker) HandleSplitJob(ctx context.Context, jobID string, spec splitter.SplitSpec) (*OperationResult, error) {
	job := w.newJob(jobID, KindSplit)
	started := time.Now()

	w.transition(job, StatusValidating)
	if strings.TrimSpace(spec.SourcePath) == "" {
		return nil, w.fail(job, Wrap(ErrValidation, "split", errors.New("source path required")))
	}
	if len(spec.Segments) == 0 {
		return nil, w.fail(job, Wrap(ErrValidation, "split", errors.New("at least one segment required")))
	}

	ws, err := w.manager.Open(job.ID)
	if err != nil {
		return nil, w.fail(job, Wrap(ErrExecution, "open workspace", err))
	}
	defer w.release(job, ws)

	w.transition(job, StatusProbing)
	source, err := w.prober.Probe(ctx, spec.SourcePath)
	if err != nil {
		return nil, w.fail(job, Wrap(ErrProbe, "probe source", err))
	}

	w.transition(job, StatusExecuting)
	outcome, err := w.split.Split(ctx, spec, source, ws)
	if err != nil {
		return nil, w.fail(job, Wrap(ErrExecution, "split", err))
	}

	result := &OperationResult{
		JobID:          job.ID,
		Kind:           KindSplit,
		Failures:       outcome.Failures,
		DurationMillis: time.Since(started).Milliseconds(),
	}
	for _, output := range outcome.Outputs {
		result.Outputs = append(result.Outputs, OutputFile{Path: output.Path, Info: output.Info})
	}

	switch {
	case len(result.Outputs) == 0:
		result.Status = StatusFailed
	case len(result.Failures) > 0:
		result.Status = StatusPartiallySucceeded
	default:
		result.Status = StatusSucceeded
	}

	if err := w.consume(ctx, job, result); err != nil {
		return result, err
	}

	w.transition(job, result.Status)
	w.logCompletion(job, result)
	return result, nil
}

// HandleMerge runs a merge job under a generated id.
func (w *Worker) HandleMerge(ctx context.Context, spec merger.MergeSpec) (*OperationResult, error) {
	return w.HandleMergeJob(ctx, "", spec)
}

// HandleMergeJob runs a merge job under the caller-supplied id. Merging is
// all-or-nothing: any failure voids the job and nothing is retained.
func (w *Worker) HandleMergeJob(ctx context.Context, jobID string, spec merger.MergeSpec) (*OperationResult, error) {
	job := w.newJob(jobID, KindMerge)
	started := time.Now()

	w.transition(job, StatusValidating)
	if len(spec.Segments) == 0 {
		return nil, w.fail(job, Wrap(ErrValidation, "merge", errors.New("at least one segment required")))
	}
	for i, path := range spec.Segments {
		if strings.TrimSpace(path) == "" {
			return nil, w.fail(job, Wrap(ErrValidation, "merge", fmt.Errorf("segment %d has an empty path", i)))
		}
	}

	ws, err := w.manager.Open(job.ID)
	if err != nil {
		return nil, w.fail(job, Wrap(ErrExecution, "open workspace", err))
	}
	defer w.release(job, ws)

	w.transition(job, StatusProbing)
	plan, err := w.merge.Prepare(ctx, spec, ws)
	if err != nil {
		var incompatible *merger.IncompatibleStreamsError
		if errors.As(err, &incompatible) {
			return nil, w.fail(job, Wrap(ErrValidation, "merge", err))
		}
		return nil, w.fail(job, Wrap(ErrProbe, "probe segments", err))
	}

	w.transition(job, StatusExecuting)
	output, err := w.merge.Execute(ctx, plan)
	if err != nil {
		return nil, w.fail(job, Wrap(ErrExecution, "merge", err))
	}

	result := &OperationResult{
		JobID:          job.ID,
		Kind:           KindMerge,
		Status:         StatusSucceeded,
		Outputs:        []OutputFile{{Path: output.Path, Info: output.Info}},
		Warnings:       output.Warnings,
		DurationMillis: time.Since(started).Milliseconds(),
	}

	if err := w.consume(ctx, job, result); err != nil {
		return result, err
	}

	w.transition(job, result.Status)
	w.logCompletion(job, result)
	return result, nil
}

func (w *Worker) newJob(jobID string, kind Kind) *Job {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		jobID = uuid.NewString()
	}
	job := &Job{ID: jobID, Kind: kind, Status: StatusReceived}
	w.logger.Info("job received",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("kind", string(kind)),
	)
	return job
}

func (w *Worker) transition(job *Job, status Status) {
	job.Status = status
	w.logger.Debug("state transition",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEventType, "state_transition"),
		logging.String("status", string(status)),
	)
}

func (w *Worker) fail(job *Job, err error) error {
	job.Status = StatusFailed
	w.logger.Error("job failed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("kind", string(job.Kind)),
		logging.Error(err),
	)
	return err
}

// consume hands outputs to the external collaborator while the workspace
// is still alive. A consumer error fails the job; teardown still happens.
func (w *Worker) consume(ctx context.Context, job *Job, result *OperationResult) error {
	if w.consumer == nil || len(result.Outputs) == 0 {
		return nil
	}
	if err := w.consumer(ctx, result); err != nil {
		result.Status = StatusFailed
		return w.fail(job, Wrap(ErrExecution, "consume outputs", err))
	}
	return nil
}

func (w *Worker) logCompletion(job *Job, result *OperationResult) {
	w.logger.Info("job completed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("kind", string(job.Kind)),
		logging.String("status", string(result.Status)),
		logging.Int("outputs", len(result.Outputs)),
		logging.Int("failures", len(result.Failures)),
		logging.Int64("duration_ms", result.DurationMillis),
	)
}

func (w *Worker) release(job *Job, ws *workspace.Handle) {
	if err := ws.Release(); err != nil {
		w.logger.Warn("workspace release failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
}
