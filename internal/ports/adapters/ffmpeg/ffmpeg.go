// Package ffmpeg adapts the ffmpeg and ffprobe binaries to the encoder
// and prober ports.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/reelforge/reelforge/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// Run executes ffmpeg with args and blocks until it exits. Stderr is
// captured and returned in full; the caller decides how much of it to
// surface.
func (a *Adapter) Run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// Probe runs a single ffprobe JSON call against path and combines it with
// the file size from the filesystem.
func (a *Adapter) Probe(ctx context.Context, path string) (types.MediaProbe, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return types.MediaProbe{}, err
	}

	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return types.MediaProbe{}, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	probe, err := ParseProbeJSON(out)
	if err != nil {
		return types.MediaProbe{}, err
	}
	if probe.SizeBytes == 0 {
		probe.SizeBytes = fi.Size()
	}
	return probe, nil
}
