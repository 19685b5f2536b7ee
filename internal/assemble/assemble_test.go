package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reelforge/reelforge/internal/compose"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/domain/timing"
	"github.com/reelforge/reelforge/internal/types"
)

type fakeEncoder struct {
	calls  [][]string
	failOn string // substring of args; matching call fails
	stderr string
}

func (f *fakeEncoder) Run(_ context.Context, args []string) (string, error) {
	f.calls = append(f.calls, args)
	if f.failOn != "" && strings.Contains(strings.Join(args, " "), f.failOn) {
		return f.stderr, fmt.Errorf("exit status 1")
	}
	return "", nil
}

type fakeProber struct {
	probes map[string]types.MediaProbe
	errs   map[string]error
}

func (f *fakeProber) Probe(_ context.Context, path string) (types.MediaProbe, error) {
	if err, ok := f.errs[path]; ok {
		return types.MediaProbe{}, err
	}
	return f.probes[path], nil
}

func goodOutputProbe() types.MediaProbe {
	return types.MediaProbe{
		Width: 1080, Height: 1920, DurationSeconds: 25,
		SizeBytes: 10 << 20, HasAudioStream: true, VideoCodec: "h264",
	}
}

func request(t *testing.T, bg types.BackgroundSource) types.AssemblyRequest {
	t.Helper()
	work := t.TempDir()
	return types.AssemblyRequest{
		AudioPath:         "voice.mp3",
		AudioDuration:     25,
		EstimatedDuration: 20,
		Background:        bg,
		Cues: []types.Cue{
			{Start: 0, End: 10, Text: "Hi"},
			{Start: 10, End: 20, Text: "There"},
		},
		Style:      config.Default().Style,
		OutputPath: filepath.Join(work, "final.mp4"),
		WorkDir:    work,
	}
}

func TestAssemble_VisualBackground(t *testing.T) {
	enc := &fakeEncoder{}
	prober := &fakeProber{probes: map[string]types.MediaProbe{
		"bg.mp4": {DurationSeconds: 10, Width: 1920, Height: 1080},
	}}
	req := request(t, types.VisualSource{Path: "bg.mp4"})
	prober.probes[req.OutputPath] = goodOutputProbe()

	var stages []Stage
	o := New(Deps{Encoder: enc, Prober: prober}, config.Default(), func(p Progress) {
		stages = append(stages, p.Stage)
	})

	res, err := o.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !res.Validation.Passed {
		t.Fatalf("validation failed: %v", res.Validation.Issues)
	}

	// Two encoder runs: background normalization, then composition.
	if len(enc.calls) != 2 {
		t.Fatalf("expected 2 encoder invocations, got %d", len(enc.calls))
	}
	norm := strings.Join(enc.calls[0], " ")
	if !strings.Contains(norm, "-stream_loop 2") {
		t.Fatalf("10s source for 25s target should loop 3 copies:\n%s", norm)
	}
	comp := strings.Join(enc.calls[1], " ")
	if !strings.Contains(comp, "voice.mp3") || !strings.Contains(comp, "-shortest") {
		t.Fatalf("composition args wrong:\n%s", comp)
	}

	// Cue bitmaps are written with reconciled timing (factor 25/20).
	if !strings.Contains(comp, "between(t,0.000,12.500)") || !strings.Contains(comp, "between(t,12.500,25.000)") {
		t.Fatalf("reconciled cue windows missing:\n%s", comp)
	}
	for _, name := range []string{"cue_001.png", "cue_002.png"} {
		if _, err := os.Stat(filepath.Join(req.WorkDir, name)); err != nil {
			t.Fatalf("missing cue bitmap %s: %v", name, err)
		}
	}

	want := []Stage{StageReconcilingTiming, StagePreparingBackground, StageRasterizingCues, StageCompositing, StageValidating, StageDone}
	if len(stages) != len(want) {
		t.Fatalf("stages: %v", stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("stage %d = %s, want %s", i, stages[i], want[i])
		}
	}
}

func TestAssemble_FallsBackToFlatColor(t *testing.T) {
	enc := &fakeEncoder{}
	prober := &fakeProber{
		probes: map[string]types.MediaProbe{},
		errs:   map[string]error{"missing.mp4": fmt.Errorf("no such file")},
	}
	req := request(t, types.VisualSource{Path: "missing.mp4"})
	prober.probes[req.OutputPath] = goodOutputProbe()

	o := New(Deps{Encoder: enc, Prober: prober}, config.Default(), nil)
	_, err := o.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("background failure must not fail the job: %v", err)
	}

	// First encoder run synthesizes the flat color instead.
	first := strings.Join(enc.calls[0], " ")
	if !strings.Contains(first, "lavfi") || !strings.Contains(first, "color=c=") {
		t.Fatalf("expected flat-color synthesis, got:\n%s", first)
	}
}

func TestAssemble_NoSourceUsesFlatColor(t *testing.T) {
	enc := &fakeEncoder{}
	prober := &fakeProber{probes: map[string]types.MediaProbe{}}
	req := request(t, nil)
	prober.probes[req.OutputPath] = goodOutputProbe()

	o := New(Deps{Encoder: enc, Prober: prober}, config.Default(), nil)
	if _, err := o.Assemble(context.Background(), req); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	first := strings.Join(enc.calls[0], " ")
	if !strings.Contains(first, "color=c=0x141428:s=1080x1920:r=30") {
		t.Fatalf("expected default flat color, got:\n%s", first)
	}
	if !strings.Contains(first, "-t 25.000") {
		t.Fatalf("flat color must cover the audio duration:\n%s", first)
	}
}

func TestAssemble_AvatarPassthrough(t *testing.T) {
	enc := &fakeEncoder{}
	prober := &fakeProber{probes: map[string]types.MediaProbe{
		"avatar.mp4": {DurationSeconds: 24, HasAudioStream: true},
	}}
	req := request(t, types.AvatarSource{Path: "avatar.mp4"})
	prober.probes[req.OutputPath] = goodOutputProbe()

	o := New(Deps{Encoder: enc, Prober: prober}, config.Default(), nil)
	if _, err := o.Assemble(context.Background(), req); err != nil {
		t.Fatalf("assemble: %v", err)
	}

	// Single encoder run: no background normalization, no re-attached audio.
	if len(enc.calls) != 1 {
		t.Fatalf("expected 1 encoder invocation, got %d", len(enc.calls))
	}
	comp := strings.Join(enc.calls[0], " ")
	if !strings.Contains(comp, "avatar.mp4") || !strings.Contains(comp, "-map 0:a?") {
		t.Fatalf("avatar must be the sole source:\n%s", comp)
	}
	if strings.Contains(comp, "voice.mp3") {
		t.Fatalf("audio must not be re-attached:\n%s", comp)
	}
}

func TestAssemble_DegenerateTimingIsFatal(t *testing.T) {
	req := request(t, nil)
	req.EstimatedDuration = 0

	var last Progress
	o := New(Deps{Encoder: &fakeEncoder{}, Prober: &fakeProber{}}, config.Default(), func(p Progress) { last = p })

	_, err := o.Assemble(context.Background(), req)
	var dte *timing.DegenerateTimingError
	if !errors.As(err, &dte) {
		t.Fatalf("expected DegenerateTimingError, got %v", err)
	}
	if last.Stage != StageFailed {
		t.Fatalf("expected failed stage, got %s", last.Stage)
	}
}

func TestAssemble_EncodingFailureIsFatal(t *testing.T) {
	enc := &fakeEncoder{failOn: "-shortest", stderr: "muxer exploded"}
	prober := &fakeProber{probes: map[string]types.MediaProbe{}}
	req := request(t, nil)

	o := New(Deps{Encoder: enc, Prober: prober}, config.Default(), nil)
	_, err := o.Assemble(context.Background(), req)

	var ef *compose.EncodingFailedError
	if !errors.As(err, &ef) {
		t.Fatalf("expected EncodingFailedError, got %v", err)
	}
	if !strings.Contains(ef.Stderr, "muxer exploded") {
		t.Fatalf("diagnostics lost: %q", ef.Stderr)
	}
}

func TestAssemble_ValidationFailureIsNotAnError(t *testing.T) {
	enc := &fakeEncoder{}
	prober := &fakeProber{probes: map[string]types.MediaProbe{}}
	req := request(t, nil)
	prober.probes[req.OutputPath] = types.MediaProbe{Width: 1280, Height: 720, DurationSeconds: 70}

	o := New(Deps{Encoder: enc, Prober: prober}, config.Default(), nil)
	res, err := o.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("validation issues must not fail the job: %v", err)
	}
	if res.Validation.Passed {
		t.Fatal("expected failed validation")
	}
	if len(res.Validation.Issues) != 3 {
		t.Fatalf("expected 3 issues, got %v", res.Validation.Issues)
	}
	if res.OutputPath != req.OutputPath {
		t.Fatalf("artifact path missing from result: %q", res.OutputPath)
	}
}
