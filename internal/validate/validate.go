// Package validate checks a produced container file against the platform
// constraints. Validation is advisory: a failed check never discards the
// artifact, it only attaches issues for the caller to act on.
package validate

import (
	"context"
	"fmt"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/types"
)

// Check is a pure function of the probe: given the same probe and platform
// it always returns the same result.
func Check(probe types.MediaProbe, p config.Platform) types.Validation {
	var issues []string

	if probe.Width != p.Width || probe.Height != p.Height {
		issues = append(issues, fmt.Sprintf(
			"resolution is %dx%d, want %dx%d",
			probe.Width, probe.Height, p.Width, p.Height))
	}
	if probe.DurationSeconds < p.MinDuration || probe.DurationSeconds > p.MaxDuration {
		issues = append(issues, fmt.Sprintf(
			"duration %.1fs outside [%.0f, %.0f]s",
			probe.DurationSeconds, p.MinDuration, p.MaxDuration))
	}
	if probe.SizeBytes > p.MaxSizeBytes {
		issues = append(issues, fmt.Sprintf(
			"file size %d bytes exceeds %d", probe.SizeBytes, p.MaxSizeBytes))
	}
	if !probe.HasAudioStream {
		issues = append(issues, "no audio stream")
	}

	return types.Validation{Passed: len(issues) == 0, Issues: issues}
}

// File probes path and checks it. A missing or unprobeable file is a
// single issue, not an error: validation never fails the job.
func File(ctx context.Context, prober ports.Prober, path string, p config.Platform) types.Validation {
	probe, err := prober.Probe(ctx, path)
	if err != nil {
		return types.Validation{
			Passed: false,
			Issues: []string{fmt.Sprintf("cannot probe output: %v", err)},
		}
	}
	return Check(probe, p)
}
