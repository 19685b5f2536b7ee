package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/ports"
)

// Layer is one time-bounded subtitle bitmap overlaid on the background.
type Layer struct {
	PNGPath  string
	Start    float64
	Duration float64
	// MarginBottom positions the bitmap's top edge at
	// frame height - MarginBottom.
	MarginBottom int
}

// Input describes one final composition: the normalized background, the
// narration audio, and every subtitle layer. An empty AudioPath means the
// background carries its own audio (avatar passthrough) and no separate
// stream is attached.
type Input struct {
	BackgroundPath string
	AudioPath      string
	Layers         []Layer
	OutputPath     string
}

// Timeline layers background, audio and subtitle bitmaps into one encoded
// container via a single blocking encoder invocation.
type Timeline struct {
	enc      ports.Encoder
	platform config.Platform
	encode   config.Encode
}

func NewTimeline(enc ports.Encoder, platform config.Platform, encode config.Encode) *Timeline {
	return &Timeline{enc: enc, platform: platform, encode: encode}
}

// Compose runs the encoder. A non-zero exit becomes EncodingFailedError
// carrying the encoder's diagnostic output.
func (t *Timeline) Compose(ctx context.Context, in Input) error {
	args := BuildComposeArgs(in, t.platform, t.encode)
	stderr, err := t.enc.Run(ctx, args)
	if err != nil {
		return &EncodingFailedError{Stderr: stderr, Err: err}
	}
	return nil
}

// BuildComposeArgs plans the composition command. The background frame is
// input 0; the audio (when separate) is input 1; cue bitmaps follow. Each
// bitmap is overlaid centered, top edge at height-margin, gated by
// enable='between(t,start,end)'. Cues are non-overlapping so at most one
// bitmap is visible at any instant. The output duration equals
// min(background, audio); the background is prepared to cover the audio,
// so -shortest pins the container to the audio duration exactly.
func BuildComposeArgs(in Input, p config.Platform, e config.Encode) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", in.BackgroundPath}

	withAudio := in.AudioPath != ""
	overlayBase := 1
	if withAudio {
		args = append(args, "-i", in.AudioPath)
		overlayBase = 2
	}
	for _, l := range in.Layers {
		args = append(args, "-i", l.PNGPath)
	}

	videoLabel := "0:v"
	if len(in.Layers) > 0 {
		var fc strings.Builder
		prev := "[0:v]"
		for i, l := range in.Layers {
			out := fmt.Sprintf("[v%d]", i+1)
			fmt.Fprintf(&fc, "%s[%d:v]overlay=x=(W-w)/2:y=%d:enable='between(t,%s,%s)'%s",
				prev, overlayBase+i, p.Height-l.MarginBottom,
				fmtSeconds(l.Start), fmtSeconds(l.Start+l.Duration), out)
			if i < len(in.Layers)-1 {
				fc.WriteString(";")
			}
			prev = out
		}
		args = append(args, "-filter_complex", fc.String())
		videoLabel = fmt.Sprintf("[v%d]", len(in.Layers))
	}

	args = append(args, "-map", videoLabel)
	if withAudio {
		args = append(args, "-map", "1:a")
	} else {
		// Avatar clips carry their own narration; tolerate silent ones.
		args = append(args, "-map", "0:a?")
	}

	args = appendVideoCodec(args, e)
	args = append(args,
		"-r", fmt.Sprintf("%d", p.FPS),
		"-c:a", e.AudioCodec,
		"-b:a", e.AudioBitrate,
		"-shortest",
		"-movflags", "+faststart",
	)
	return append(args, in.OutputPath)
}
