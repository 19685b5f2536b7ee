// Package pipeline wires the adapters to the orchestrator for one job
// directory, and runs directories in batch with failure isolation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/reelforge/reelforge/internal/assemble"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/domain/srt"
	"github.com/reelforge/reelforge/internal/domain/timing"
	"github.com/reelforge/reelforge/internal/job"
	"github.com/reelforge/reelforge/internal/logging"
	"github.com/reelforge/reelforge/internal/ports/adapters/ffmpeg"
	"github.com/reelforge/reelforge/internal/retry"
	"github.com/reelforge/reelforge/internal/types"
)

// Config carries everything Run needs for one job directory.
type Config struct {
	JobDir string
	App    config.Config
	Log    *slog.Logger
	// Progress receives stage snapshots; nil is fine.
	Progress assemble.ProgressFunc
}

func (c Config) Validate() error {
	if c.JobDir == "" {
		return errors.New("job dir is empty")
	}
	info, err := os.Stat(c.JobDir)
	if err != nil {
		return fmt.Errorf("stat job dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.JobDir)
	}
	if _, err := os.Stat(filepath.Join(c.JobDir, job.SpecFileName)); err != nil {
		return fmt.Errorf("job dir has no %s: %w", job.SpecFileName, err)
	}
	return nil
}

// Run assembles the video described by cfg.JobDir/job.yaml. Intermediate
// artifacts land in a work/ subdirectory of the job dir.
func Run(ctx context.Context, cfg Config) (types.AssemblyResult, error) {
	if err := cfg.Validate(); err != nil {
		return types.AssemblyResult{}, err
	}
	log := cfg.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = logging.WithComponent(log, "pipeline")

	spec, err := job.Load(cfg.JobDir)
	if err != nil {
		return types.AssemblyResult{}, err
	}

	req, app, err := buildRequest(cfg.JobDir, spec, cfg.App)
	if err != nil {
		return types.AssemblyResult{}, err
	}

	workDir := filepath.Join(cfg.JobDir, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return types.AssemblyResult{}, err
	}
	req.WorkDir = workDir

	tool := ffmpeg.New(app.FFmpegPath, app.FFprobePath)
	orch := assemble.New(assemble.Deps{
		Encoder: tool,
		Prober:  tool,
		Log:     log,
	}, app, cfg.Progress)

	return orch.Assemble(ctx, req)
}

// buildRequest translates the on-disk job spec into an assembly request,
// applying per-job style overrides and the theme palette.
func buildRequest(dir string, spec job.Spec, app config.Config) (types.AssemblyRequest, config.Config, error) {
	app, err := app.WithStyle(spec.Style)
	if err != nil {
		return types.AssemblyRequest{}, app, err
	}
	if spec.Theme != "" {
		app.FallbackColor = app.ThemeColor(spec.Theme)
	}

	var cues []types.Cue
	if path := spec.SubtitlesPath(dir); path != "" {
		cues, err = srt.ParseFile(path)
		if err != nil {
			return types.AssemblyRequest{}, app, err
		}
	}

	background, err := spec.Source(dir)
	if err != nil {
		return types.AssemblyRequest{}, app, err
	}
	if background == nil && spec.Theme != "" {
		background = types.ColorSource{Color: app.ThemeColor(spec.Theme)}
	}

	estimated := spec.EstimatedDuration
	if estimated <= 0 && len(cues) > 0 {
		estimated = cues[len(cues)-1].End
	}

	return types.AssemblyRequest{
		AudioPath:         spec.AudioPath(dir),
		AudioDuration:     spec.AudioDuration,
		EstimatedDuration: estimated,
		Background:        background,
		Cues:              cues,
		Style:             app.Style,
		OutputPath:        spec.OutputPath(dir),
	}, app, nil
}

// Outcome is the result of one job within a batch.
type Outcome struct {
	Dir    string
	Result types.AssemblyResult
	Err    error
}

// RunBatch assembles every job directory under root that contains a
// job.yaml, in name order. A failed job never stops the rest; each job
// may be re-attempted up to retries extra times.
func RunBatch(ctx context.Context, root string, app config.Config, log *slog.Logger, retries int) ([]Outcome, error) {
	dirs, err := discoverJobs(root)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no job directories under %s", root)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	policy := retry.Policy{
		MaxAttempts:   retries + 1,
		InitialDelay:  2 * time.Second,
		BackoffFactor: 2,
		// Timing degeneracy is deterministic; another attempt cannot fix it.
		Retryable: func(err error) bool {
			var degenerate *timing.DegenerateTimingError
			return !errors.As(err, &degenerate)
		},
	}

	outcomes := make([]Outcome, 0, len(dirs))
	for _, dir := range dirs {
		jobLog := log.With("job_dir", dir)
		var res types.AssemblyResult
		err := retry.Do(ctx, policy, func() error {
			var runErr error
			res, runErr = Run(ctx, Config{JobDir: dir, App: app, Log: jobLog})
			return runErr
		})
		if err != nil {
			jobLog.Error("job failed", "error", err)
		} else {
			jobLog.Info("job done", "output", res.OutputPath, "validation_passed", res.Validation.Passed)
		}
		outcomes = append(outcomes, Outcome{Dir: dir, Result: res, Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return outcomes, nil
}

func discoverJobs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read batch dir: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, job.SpecFileName)); err == nil {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
