package splitter

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"splice/internal/logging"
	"splice/internal/media"
	"splice/internal/runner"
	"splice/internal/testsupport"
	"splice/internal/workspace"
)

func float(v float64) *float64 { return &v }

func newTestWorkspace(t *testing.T) *workspace.Handle {
	t.Helper()
	manager, err := workspace.NewManager(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ws, err := manager.Open("split-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ws.Release() })
	return ws
}

// writingHandler acts like a transcoder that produces its output file, which
// is always the final argument.
func writingHandler(t *testing.T) func(context.Context, runner.Command) (runner.Result, error) {
	t.Helper()
	return func(_ context.Context, cmd runner.Command) (runner.Result, error) {
		path := cmd.Args[len(cmd.Args)-1]
		if err := os.WriteFile(path, []byte("audio-bytes"), 0o644); err != nil {
			t.Errorf("write fake output: %v", err)
		}
		return runner.Result{ExitCode: 0}, nil
	}
}

func newTestSplitter(t *testing.T, run runner.Runner, probe Prober, opts Options) *Splitter {
	t.Helper()
	if opts.Codec == "" {
		opts = Options{Codec: "mp3", Quality: "2", Extension: "mp3", MaxParallel: 2}
	}
	s, err := New("ffmpeg", run, probe, opts, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func audioProber() *testsupport.FakeProber {
	info := testsupport.AudioInfo(30)
	return &testsupport.FakeProber{Default: &info}
}

func TestSplitPreservesSegmentOrder(t *testing.T) {
	fake := &testsupport.FakeRunner{Handler: writingHandler(t)}
	s := newTestSplitter(t, fake, audioProber(), Options{Codec: "mp3", Quality: "2", Extension: "mp3", MaxParallel: 4})

	spec := SplitSpec{
		SourcePath: "/media/source.mp4",
		Segments: []Segment{
			{Start: 0, End: float(10)},
			{Start: 10, End: float(20)},
			{Start: 20, End: float(30)},
			{Start: 30},
		},
	}
	source := media.Info{DurationSeconds: 100}

	outcome, err := s.Split(context.Background(), spec, source, newTestWorkspace(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", outcome.Failures)
	}
	if len(outcome.Outputs) != 4 {
		t.Fatalf("expected 4 outputs, got %d", len(outcome.Outputs))
	}
	for i, output := range outcome.Outputs {
		if output.Index != i {
			t.Fatalf("output %d carries index %d; order lost", i, output.Index)
		}
	}
	if fake.CallCount() != 4 {
		t.Fatalf("expected 4 extractions, got %d", fake.CallCount())
	}
}

func TestSplitRejectsInvalidSegmentsBeforeRunning(t *testing.T) {
	fake := &testsupport.FakeRunner{Handler: writingHandler(t)}
	s := newTestSplitter(t, fake, audioProber(), Options{})

	spec := SplitSpec{
		SourcePath: "/media/source.mp4",
		Segments: []Segment{
			{Start: -1},
			{Start: 100},
			{Start: 5, End: float(5)},
			{Start: 5, End: float(120)},
		},
	}
	source := media.Info{DurationSeconds: 100}

	outcome, err := s.Split(context.Background(), spec, source, newTestWorkspace(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Outputs) != 0 {
		t.Fatalf("no segment should extract, got %d outputs", len(outcome.Outputs))
	}
	if len(outcome.Failures) != 4 {
		t.Fatalf("expected 4 failures, got %d", len(outcome.Failures))
	}
	for i, failure := range outcome.Failures {
		if failure.Index != i {
			t.Fatalf("failures out of order: %v", outcome.Failures)
		}
		var invalid *InvalidSegmentError
		if !errors.As(failure.Err, &invalid) {
			t.Fatalf("failure %d is not an InvalidSegmentError: %v", i, failure.Err)
		}
	}
	if fake.CallCount() != 0 {
		t.Fatalf("invalid segments must never spawn a process, got %d calls", fake.CallCount())
	}
}

func TestSplitInvalidSegmentDoesNotAbortOthers(t *testing.T) {
	fake := &testsupport.FakeRunner{Handler: writingHandler(t)}
	s := newTestSplitter(t, fake, audioProber(), Options{})

	spec := SplitSpec{
		SourcePath: "/media/source.mp4",
		Segments: []Segment{
			{Start: 0, End: float(10)},
			{Start: 500},
			{Start: 20, End: float(30)},
		},
	}
	source := media.Info{DurationSeconds: 100}

	outcome, err := s.Split(context.Background(), spec, source, newTestWorkspace(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(outcome.Outputs))
	}
	if outcome.Outputs[0].Index != 0 || outcome.Outputs[1].Index != 2 {
		t.Fatalf("wrong surviving indices: %+v", outcome.Outputs)
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Index != 1 {
		t.Fatalf("expected only segment 1 to fail, got %v", outcome.Failures)
	}
}

func TestSplitProcessFailureIsIsolated(t *testing.T) {
	fake := &testsupport.FakeRunner{
		Handler: func(_ context.Context, cmd runner.Command) (runner.Result, error) {
			path := cmd.Args[len(cmd.Args)-1]
			if strings.Contains(path, "part_002") {
				return runner.Result{ExitCode: 1, Stderr: "Invalid data found"}, nil
			}
			if err := os.WriteFile(path, []byte("audio-bytes"), 0o644); err != nil {
				t.Errorf("write fake output: %v", err)
			}
			return runner.Result{ExitCode: 0}, nil
		},
	}
	s := newTestSplitter(t, fake, audioProber(), Options{})

	spec := SplitSpec{
		SourcePath: "/media/source.mp4",
		Segments: []Segment{
			{Start: 0, End: float(10)},
			{Start: 10, End: float(20)},
			{Start: 20, End: float(30)},
		},
	}
	source := media.Info{DurationSeconds: 100}

	outcome, err := s.Split(context.Background(), spec, source, newTestWorkspace(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(outcome.Outputs))
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Index != 1 {
		t.Fatalf("expected segment 1 failure, got %v", outcome.Failures)
	}
	var processErr *runner.ProcessError
	if !errors.As(outcome.Failures[0].Err, &processErr) {
		t.Fatalf("expected ProcessError, got %v", outcome.Failures[0].Err)
	}
	if !strings.Contains(processErr.Stderr, "Invalid data found") {
		t.Fatalf("stderr lost: %q", processErr.Stderr)
	}
}

func TestSplitCommandLine(t *testing.T) {
	fake := &testsupport.FakeRunner{Handler: writingHandler(t)}
	s := newTestSplitter(t, fake, audioProber(), Options{Codec: "mp3", Quality: "3", Extension: "mp3", MaxParallel: 1})

	spec := SplitSpec{
		SourcePath: "/media/source.mp4",
		Segments:   []Segment{{Start: 1.5, End: float(4)}},
	}
	source := media.Info{DurationSeconds: 100}

	if _, err := s.Split(context.Background(), spec, source, newTestWorkspace(t)); err != nil {
		t.Fatal(err)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %d", len(calls))
	}
	cmd := calls[0]
	if cmd.Binary != "ffmpeg" {
		t.Fatalf("binary = %q", cmd.Binary)
	}

	want := []string{
		"-hide_banner", "-y",
		"-ss", "00:00:01.500",
		"-t", "00:00:02.500",
		"-i", "/media/source.mp4",
		"-vn",
		"-acodec", "libmp3lame", "-q:a", "3",
		"-map_metadata", "-1",
	}
	got := cmd.Args[:len(cmd.Args)-1]
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	if !strings.HasSuffix(cmd.Args[len(cmd.Args)-1], ".mp3") {
		t.Fatalf("output path missing extension: %q", cmd.Args[len(cmd.Args)-1])
	}
	if cmd.Timeout != 30*time.Second+2500*time.Millisecond {
		t.Fatalf("timeout = %s", cmd.Timeout)
	}
}

func TestSplitOpenEndedSegmentOmitsDuration(t *testing.T) {
	fake := &testsupport.FakeRunner{Handler: writingHandler(t)}
	s := newTestSplitter(t, fake, audioProber(), Options{})

	spec := SplitSpec{
		SourcePath: "/media/source.mp4",
		Segments:   []Segment{{Start: 40}},
	}
	source := media.Info{DurationSeconds: 100}

	if _, err := s.Split(context.Background(), spec, source, newTestWorkspace(t)); err != nil {
		t.Fatal(err)
	}

	args := fake.Calls()[0].Args
	for _, arg := range args {
		if arg == "-t" {
			t.Fatalf("open-ended segment must not pass -t: %v", args)
		}
	}
	// Timeout still scales with the remaining source duration.
	if got := fake.Calls()[0].Timeout; got != 30*time.Second+60*time.Second {
		t.Fatalf("timeout = %s", got)
	}
}

func TestSplitCodecArgs(t *testing.T) {
	cases := []struct {
		codec string
		want  []string
	}{
		{"aac", []string{"-acodec", "aac", "-b:a", "160k"}},
		{"copy", []string{"-c", "copy"}},
		{"mp3", []string{"-acodec", "libmp3lame", "-q:a", "160k"}},
	}
	for _, tc := range cases {
		t.Run(tc.codec, func(t *testing.T) {
			fake := &testsupport.FakeRunner{Handler: writingHandler(t)}
			s := newTestSplitter(t, fake, audioProber(), Options{Codec: tc.codec, Quality: "160k", Extension: "m4a", MaxParallel: 1})

			spec := SplitSpec{SourcePath: "/media/in.mp4", Segments: []Segment{{Start: 0, End: float(5)}}}
			if _, err := s.Split(context.Background(), spec, media.Info{DurationSeconds: 10}, newTestWorkspace(t)); err != nil {
				t.Fatal(err)
			}

			joined := strings.Join(fake.Calls()[0].Args, " ")
			if !strings.Contains(joined, strings.Join(tc.want, " ")) {
				t.Fatalf("args %q missing %v", joined, tc.want)
			}
		})
	}
}

func TestSplitRejectsOutputWithoutAudio(t *testing.T) {
	fake := &testsupport.FakeRunner{Handler: writingHandler(t)}
	videoOnly := media.Info{
		DurationSeconds: 5,
		Streams:         []media.Stream{{Kind: media.StreamVideo, Codec: "h264"}},
	}
	s := newTestSplitter(t, fake, &testsupport.FakeProber{Default: &videoOnly}, Options{})

	spec := SplitSpec{SourcePath: "/media/in.mp4", Segments: []Segment{{Start: 0, End: float(5)}}}
	outcome, err := s.Split(context.Background(), spec, media.Info{DurationSeconds: 10}, newTestWorkspace(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Outputs) != 0 || len(outcome.Failures) != 1 {
		t.Fatalf("expected single failure, got %+v", outcome)
	}
	var extraction *ExtractionFailedError
	if !errors.As(outcome.Failures[0].Err, &extraction) {
		t.Fatalf("expected ExtractionFailedError, got %v", outcome.Failures[0].Err)
	}
}

func TestSplitMissingOutputFails(t *testing.T) {
	// Transcoder exits 0 but never writes the file.
	fake := &testsupport.FakeRunner{}
	s := newTestSplitter(t, fake, audioProber(), Options{})

	spec := SplitSpec{SourcePath: "/media/in.mp4", Segments: []Segment{{Start: 0, End: float(5)}}}
	outcome, err := s.Split(context.Background(), spec, media.Info{DurationSeconds: 10}, newTestWorkspace(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", outcome)
	}
	var extraction *ExtractionFailedError
	if !errors.As(outcome.Failures[0].Err, &extraction) {
		t.Fatalf("expected ExtractionFailedError, got %v", outcome.Failures[0].Err)
	}
}

func TestSplitRequiresSegments(t *testing.T) {
	s := newTestSplitter(t, &testsupport.FakeRunner{}, audioProber(), Options{})
	if _, err := s.Split(context.Background(), SplitSpec{SourcePath: "/x"}, media.Info{DurationSeconds: 10}, newTestWorkspace(t)); err == nil {
		t.Fatal("expected error for empty segment list")
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00.000"},
		{1.5, "00:00:01.500"},
		{59.9995, "00:01:00.000"},
		{3661.25, "01:01:01.250"},
		{-4, "00:00:00.000"},
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.seconds); got != tc.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
