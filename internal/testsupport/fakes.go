package testsupport

import (
	"context"
	"fmt"
	"sync"

	"splice/internal/media"
	"splice/internal/runner"
)

// FakeRunner is a deterministic runner.Runner. Every call is recorded; the
// optional Handler decides the outcome, defaulting to a clean exit. It is
// safe for the splitter's concurrent extractions.
type FakeRunner struct {
	Handler func(ctx context.Context, cmd runner.Command) (runner.Result, error)

	mu    sync.Mutex
	calls []runner.Command
}

func (f *FakeRunner) Run(ctx context.Context, cmd runner.Command) (runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.Handler != nil {
		return f.Handler(ctx, cmd)
	}
	return runner.Result{ExitCode: 0}, nil
}

// Calls returns a copy of every command run so far.
func (f *FakeRunner) Calls() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Command(nil), f.calls...)
}

// CallCount returns how many commands have run.
func (f *FakeRunner) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var _ runner.Runner = (*FakeRunner)(nil)

// FakeProber maps paths to canned metadata or errors. Unmapped paths fall
// back to Default, or fail when no Default is set.
type FakeProber struct {
	Infos   map[string]media.Info
	Errors  map[string]error
	Default *media.Info

	mu    sync.Mutex
	calls []string
}

func (f *FakeProber) Probe(_ context.Context, path string) (media.Info, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()

	if err, ok := f.Errors[path]; ok {
		return media.Info{}, err
	}
	if info, ok := f.Infos[path]; ok {
		return info, nil
	}
	if f.Default != nil {
		info := *f.Default
		info.Path = path
		return info, nil
	}
	return media.Info{}, fmt.Errorf("fake prober: no metadata for %s", path)
}

// ProbedPaths returns a copy of every probed path so far.
func (f *FakeProber) ProbedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// AudioInfo builds a minimal single-audio-stream Info for tests.
func AudioInfo(duration float64) media.Info {
	return media.Info{
		ContainerFormat: "mp3",
		DurationSeconds: duration,
		Streams: []media.Stream{
			{Index: 0, Kind: media.StreamAudio, Codec: "mp3", SampleRate: 44100, Channels: 2},
		},
	}
}

// VideoInfo builds a minimal video+audio Info for tests.
func VideoInfo(duration float64, videoCodec, audioCodec string) media.Info {
	return media.Info{
		ContainerFormat: "mov,mp4,m4a,3gp,3g2,mj2",
		DurationSeconds: duration,
		Streams: []media.Stream{
			{Index: 0, Kind: media.StreamVideo, Codec: videoCodec, Width: 1920, Height: 1080},
			{Index: 1, Kind: media.StreamAudio, Codec: audioCodec, SampleRate: 48000, Channels: 2},
		},
	}
}
