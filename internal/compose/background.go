// Package compose plans and runs the external-encoder invocations that
// build a video: background normalization and final timeline composition.
// Argument planning is separated from execution so arg slices are testable
// without an encoder.
package compose

import (
	"context"
	"fmt"
	"math"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/types"
)

// Background normalizes a visual source (or synthesizes a flat color) to
// exactly the target duration at the platform resolution.
type Background struct {
	enc      ports.Encoder
	prober   ports.Prober
	platform config.Platform
	encode   config.Encode
}

func NewBackground(enc ports.Encoder, prober ports.Prober, platform config.Platform, encode config.Encode) *Background {
	return &Background{enc: enc, prober: prober, platform: platform, encode: encode}
}

// LoopCount returns how many back-to-back copies of a source of duration
// source cover target seconds.
func LoopCount(target, source float64) int {
	if source <= 0 {
		return 1
	}
	return int(math.Ceil(target / source))
}

// NormalizeVisual produces outPath: the source looped (when shorter than
// target) or trimmed from the start (when longer), scaled to the target
// height preserving aspect ratio and center-cropped to the target width,
// at the platform frame rate, stripped of audio. Any probe or decode
// failure of the source is reported as BackgroundUnavailableError.
func (b *Background) NormalizeVisual(ctx context.Context, srcPath string, target float64, outPath string) error {
	probe, err := b.prober.Probe(ctx, srcPath)
	if err != nil {
		return &BackgroundUnavailableError{Path: srcPath, Err: err}
	}
	if probe.DurationSeconds <= 0 {
		return &BackgroundUnavailableError{Path: srcPath, Err: fmt.Errorf("no decodable duration")}
	}

	args := BuildVisualArgs(srcPath, probe.DurationSeconds, target, b.platform, b.encode, outPath)
	stderr, err := b.enc.Run(ctx, args)
	if err != nil {
		// A failing decode of the source is a source problem, not a job
		// problem; the orchestrator may still fall back to a flat color.
		return &BackgroundUnavailableError{Path: srcPath, Err: fmt.Errorf("%w: %s", err, tail(stderr, 512))}
	}
	return nil
}

// SynthesizeColor produces outPath as a constant-color frame stream of
// exactly target seconds at the platform resolution and frame rate. No
// resize or crop is involved.
func (b *Background) SynthesizeColor(ctx context.Context, c types.RGB, target float64, outPath string) error {
	args := BuildColorArgs(c, target, b.platform, b.encode, outPath)
	stderr, err := b.enc.Run(ctx, args)
	if err != nil {
		return &EncodingFailedError{Stderr: stderr, Err: err}
	}
	return nil
}

// BuildVisualArgs plans the normalization command. Looping uses
// -stream_loop with copies-1 extra repeats of the input, equivalent to
// concatenating ceil(target/source) copies, then -t trims the result to
// exactly the target. scale+crop implement resize-to-height followed by a
// horizontal center-crop.
func BuildVisualArgs(srcPath string, srcDuration, target float64, p config.Platform, e config.Encode, outPath string) []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}

	if copies := LoopCount(target, srcDuration); copies > 1 {
		args = append(args, "-stream_loop", fmt.Sprintf("%d", copies-1))
	}

	args = append(args,
		"-i", srcPath,
		"-t", fmtSeconds(target),
		"-an",
		"-vf", fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,fps=%d",
			p.Width, p.Height, p.Width, p.Height, p.FPS,
		),
	)
	args = appendVideoCodec(args, e)
	return append(args, outPath)
}

// BuildColorArgs plans the flat-color command using the encoder's built-in
// color source.
func BuildColorArgs(c types.RGB, target float64, p config.Platform, e config.Encode, outPath string) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", c.Hex(), p.Width, p.Height, p.FPS),
		"-t", fmtSeconds(target),
	}
	args = appendVideoCodec(args, e)
	return append(args, outPath)
}

func appendVideoCodec(args []string, e config.Encode) []string {
	return append(args,
		"-c:v", e.VideoCodec,
		"-preset", e.Preset,
		"-crf", fmt.Sprintf("%d", e.CRF),
		"-pix_fmt", e.PixelFormat,
	)
}

func fmtSeconds(sec float64) string {
	return fmt.Sprintf("%.3f", sec)
}
