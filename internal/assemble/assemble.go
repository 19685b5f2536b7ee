// Package assemble sequences one video job: timing reconciliation,
// background preparation, cue rasterization, timeline composition and
// output validation.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reelforge/reelforge/internal/compose"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/domain/subtitle"
	"github.com/reelforge/reelforge/internal/domain/timing"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/types"
	"github.com/reelforge/reelforge/internal/validate"
)

// Stage is one state of the assembly state machine.
type Stage string

const (
	StageIdle                Stage = "idle"
	StageReconcilingTiming   Stage = "reconciling_timing"
	StagePreparingBackground Stage = "preparing_background"
	StageRasterizingCues     Stage = "rasterizing_cues"
	StageCompositing         Stage = "compositing"
	StageValidating          Stage = "validating"
	StageDone                Stage = "done"
	StageFailed              Stage = "failed"
)

// Progress is a point-in-time snapshot of a running job.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ProgressFunc receives progress updates. It is called only from the
// goroutine running the job; callers wanting cross-thread visibility store
// snapshots behind their own synchronization.
type ProgressFunc func(Progress)

// Deps are the external collaborators of the orchestrator.
type Deps struct {
	Encoder ports.Encoder
	Prober  ports.Prober
	Log     *slog.Logger
}

// Orchestrator runs one job at a time, synchronously. It owns strategy
// selection (rich background vs. flat-color fallback vs. avatar
// passthrough) and absorbs recoverable background failures.
type Orchestrator struct {
	d        Deps
	cfg      config.Config
	progress ProgressFunc
}

func New(d Deps, cfg config.Config, progress ProgressFunc) *Orchestrator {
	if d.Log == nil {
		d.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if progress == nil {
		progress = func(Progress) {}
	}
	return &Orchestrator{d: d, cfg: cfg, progress: progress}
}

// Assemble produces one output video for req. Recoverable background
// failures fall back to a flat color; DegenerateTimingError and
// EncodingFailedError are fatal and returned to the caller. Validation
// failures are not errors: the result carries the issue list.
func (o *Orchestrator) Assemble(ctx context.Context, req types.AssemblyRequest) (types.AssemblyResult, error) {
	workDir := req.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "reelforge-*")
		if err != nil {
			return types.AssemblyResult{}, err
		}
		defer os.RemoveAll(dir)
		workDir = dir
	}

	// Reconcile cue timing onto the actual narration duration.
	o.step(StageReconcilingTiming, 10, "rescaling cue timestamps")
	actual, err := o.actualDuration(ctx, req)
	if err != nil {
		return o.fail(err)
	}
	cues := req.Cues
	if len(cues) > 0 {
		cues, err = timing.Rescale(cues, req.EstimatedDuration, actual)
		if err != nil {
			return o.fail(err)
		}
	}

	// Prepare the background track.
	o.step(StagePreparingBackground, 30, "normalizing background")
	bgPath, audioPath, err := o.prepareBackground(ctx, req, actual, workDir)
	if err != nil {
		return o.fail(err)
	}

	// Rasterize each cue into a positioned bitmap layer.
	o.step(StageRasterizingCues, 50, fmt.Sprintf("rasterizing %d cues", len(cues)))
	layers, err := o.rasterize(cues, req.Style, workDir)
	if err != nil {
		return o.fail(err)
	}

	// Composite and encode.
	o.step(StageCompositing, 70, "compositing timeline")
	tl := compose.NewTimeline(o.d.Encoder, o.cfg.Platform, o.cfg.Encode)
	err = tl.Compose(ctx, compose.Input{
		BackgroundPath: bgPath,
		AudioPath:      audioPath,
		Layers:         layers,
		OutputPath:     req.OutputPath,
	})
	if err != nil {
		return o.fail(err)
	}

	// Validate the artifact; issues are advisory.
	o.step(StageValidating, 90, "validating output")
	validation := validate.File(ctx, o.d.Prober, req.OutputPath, o.cfg.Platform)
	if !validation.Passed {
		o.d.Log.Warn("output validation failed", "issues", validation.Issues)
	}

	o.step(StageDone, 100, "done")
	return types.AssemblyResult{OutputPath: req.OutputPath, Validation: validation}, nil
}

// actualDuration resolves the timeline length the job must cover: the
// decoded narration duration, or the avatar clip's own duration when the
// clip is the sole source and no audio duration was supplied.
func (o *Orchestrator) actualDuration(ctx context.Context, req types.AssemblyRequest) (float64, error) {
	if req.AudioDuration > 0 {
		return req.AudioDuration, nil
	}
	if av, ok := req.Background.(types.AvatarSource); ok {
		probe, err := o.d.Prober.Probe(ctx, av.Path)
		if err != nil {
			return 0, fmt.Errorf("probe avatar clip: %w", err)
		}
		return probe.DurationSeconds, nil
	}
	if req.AudioPath == "" {
		return 0, fmt.Errorf("no audio duration and no audio path")
	}
	probe, err := o.d.Prober.Probe(ctx, req.AudioPath)
	if err != nil {
		return 0, fmt.Errorf("probe audio: %w", err)
	}
	return probe.DurationSeconds, nil
}

// prepareBackground returns the background track path and the audio path
// to attach (empty when the background carries its own narration).
// BackgroundUnavailableError from a visual source is absorbed here by
// switching to the flat-color branch.
func (o *Orchestrator) prepareBackground(ctx context.Context, req types.AssemblyRequest, target float64, workDir string) (bgPath, audioPath string, err error) {
	bg := compose.NewBackground(o.d.Encoder, o.d.Prober, o.cfg.Platform, o.cfg.Encode)
	normalized := filepath.Join(workDir, "background.mp4")

	switch src := req.Background.(type) {
	case types.AvatarSource:
		// The avatar clip already carries synchronized narration: use it
		// as the sole background+audio source, subtitles only on top.
		return src.Path, "", nil

	case types.VisualSource:
		err := bg.NormalizeVisual(ctx, src.Path, target, normalized)
		var unavailable *compose.BackgroundUnavailableError
		if errors.As(err, &unavailable) {
			o.d.Log.Warn("background unavailable, falling back to flat color", "error", err)
			if err := bg.SynthesizeColor(ctx, o.cfg.FallbackColor, target, normalized); err != nil {
				return "", "", err
			}
			return normalized, req.AudioPath, nil
		}
		if err != nil {
			return "", "", err
		}
		return normalized, req.AudioPath, nil

	case types.ColorSource:
		if err := bg.SynthesizeColor(ctx, src.Color, target, normalized); err != nil {
			return "", "", err
		}
		return normalized, req.AudioPath, nil

	default:
		// No source supplied at all.
		if err := bg.SynthesizeColor(ctx, o.cfg.FallbackColor, target, normalized); err != nil {
			return "", "", err
		}
		return normalized, req.AudioPath, nil
	}
}

func (o *Orchestrator) rasterize(cues []types.Cue, style types.StyleConfig, workDir string) ([]compose.Layer, error) {
	if len(cues) == 0 {
		return nil, nil
	}
	r := subtitle.NewRasterizer(style, o.cfg.Platform.Width, o.d.Log)
	layers := make([]compose.Layer, 0, len(cues))
	for i, cue := range cues {
		path := filepath.Join(workDir, fmt.Sprintf("cue_%03d.png", i+1))
		if err := subtitle.WritePNG(path, r.RenderCue(cue)); err != nil {
			return nil, fmt.Errorf("write cue bitmap %d: %w", i+1, err)
		}
		layers = append(layers, compose.Layer{
			PNGPath:      path,
			Start:        cue.Start,
			Duration:     cue.End - cue.Start,
			MarginBottom: style.MarginBottom,
		})
	}
	return layers, nil
}

func (o *Orchestrator) step(stage Stage, percent int, msg string) {
	o.d.Log.Info("stage", "stage", string(stage), "percent", percent, "message", msg)
	o.progress(Progress{Stage: stage, Percent: percent, Message: msg})
}

func (o *Orchestrator) fail(err error) (types.AssemblyResult, error) {
	o.progress(Progress{Stage: StageFailed, Percent: 100, Message: err.Error()})
	return types.AssemblyResult{}, err
}
