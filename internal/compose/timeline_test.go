package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/reelforge/reelforge/internal/config"
)

func TestBuildComposeArgs_OverlayChain(t *testing.T) {
	p := config.Default().Platform
	e := config.Default().Encode
	in := Input{
		BackgroundPath: "bg.mp4",
		AudioPath:      "voice.mp3",
		Layers: []Layer{
			{PNGPath: "cue1.png", Start: 0, Duration: 4, MarginBottom: 300},
			{PNGPath: "cue2.png", Start: 4, Duration: 4, MarginBottom: 300},
		},
		OutputPath: "final.mp4",
	}

	args := BuildComposeArgs(in, p, e)
	joined := strings.Join(args, " ")

	var fc string
	for i, a := range args {
		if a == "-filter_complex" {
			fc = args[i+1]
		}
	}
	if fc == "" {
		t.Fatalf("no filter_complex in:\n%s", joined)
	}

	// Background is input 0, audio input 1, bitmaps 2 and 3; overlays
	// chain [0:v] -> [v1] -> [v2].
	want := "[0:v][2:v]overlay=x=(W-w)/2:y=1620:enable='between(t,0.000,4.000)'[v1];" +
		"[v1][3:v]overlay=x=(W-w)/2:y=1620:enable='between(t,4.000,8.000)'[v2]"
	if fc != want {
		t.Fatalf("filtergraph:\ngot  %s\nwant %s", fc, want)
	}

	if !strings.Contains(joined, "-map [v2] -map 1:a") {
		t.Fatalf("mapping wrong in:\n%s", joined)
	}
	if !strings.Contains(joined, "-shortest") {
		t.Fatalf("missing -shortest in:\n%s", joined)
	}
	if !strings.Contains(joined, "-c:v libx264") || !strings.Contains(joined, "-c:a aac -b:a 128k") {
		t.Fatalf("codec args wrong in:\n%s", joined)
	}
	if !strings.Contains(joined, "-movflags +faststart") {
		t.Fatalf("missing faststart in:\n%s", joined)
	}
}

func TestBuildComposeArgs_NoLayers(t *testing.T) {
	in := Input{BackgroundPath: "bg.mp4", AudioPath: "voice.mp3", OutputPath: "final.mp4"}
	args := BuildComposeArgs(in, config.Default().Platform, config.Default().Encode)
	joined := strings.Join(args, " ")

	if strings.Contains(joined, "-filter_complex") {
		t.Fatalf("no filtergraph expected without layers:\n%s", joined)
	}
	if !strings.Contains(joined, "-map 0:v -map 1:a") {
		t.Fatalf("mapping wrong in:\n%s", joined)
	}
}

func TestBuildComposeArgs_AvatarPassthrough(t *testing.T) {
	in := Input{
		BackgroundPath: "avatar.mp4",
		Layers:         []Layer{{PNGPath: "cue1.png", Start: 1, Duration: 2, MarginBottom: 300}},
		OutputPath:     "final.mp4",
	}
	args := BuildComposeArgs(in, config.Default().Platform, config.Default().Encode)
	joined := strings.Join(args, " ")

	// Without a separate audio input the first bitmap is input 1 and the
	// clip keeps its own audio.
	if !strings.Contains(joined, "[0:v][1:v]overlay") {
		t.Fatalf("overlay should read input 1:\n%s", joined)
	}
	if !strings.Contains(joined, "-map 0:a?") {
		t.Fatalf("avatar audio should be kept:\n%s", joined)
	}
	if strings.Contains(joined, "-map 1:a ") {
		t.Fatalf("no separate audio stream expected:\n%s", joined)
	}
}

func TestCompose_SurfacesEncoderFailure(t *testing.T) {
	enc := &fakeEncoder{stderr: "Error initializing output stream", err: fmt.Errorf("exit status 1")}
	tl := NewTimeline(enc, config.Default().Platform, config.Default().Encode)

	err := tl.Compose(context.Background(), Input{BackgroundPath: "bg.mp4", AudioPath: "a.mp3", OutputPath: "o.mp4"})
	var ef *EncodingFailedError
	if !errors.As(err, &ef) {
		t.Fatalf("expected EncodingFailedError, got %v", err)
	}
	if !strings.Contains(ef.Stderr, "Error initializing") {
		t.Fatalf("stderr not preserved: %q", ef.Stderr)
	}
}

func TestCompose_InvokesEncoderOnce(t *testing.T) {
	enc := &fakeEncoder{}
	tl := NewTimeline(enc, config.Default().Platform, config.Default().Encode)

	if err := tl.Compose(context.Background(), Input{BackgroundPath: "bg.mp4", AudioPath: "a.mp3", OutputPath: "o.mp4"}); err != nil {
		t.Fatalf("compose: %v", err)
	}
	if len(enc.calls) != 1 {
		t.Fatalf("expected a single blocking invocation, got %d", len(enc.calls))
	}
}
