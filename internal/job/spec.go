// Package job loads per-job input bundles from job directories and tracks
// point-in-time progress for serve mode.
package job

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/types"
)

// SpecFileName is the manifest every job directory must contain.
const SpecFileName = "job.yaml"

// Spec is the on-disk description of one assembly job. Relative paths are
// resolved against the job directory.
type Spec struct {
	Audio string `yaml:"audio"`
	// AudioDuration is the decoded narration length in seconds; probed
	// from the file when omitted.
	AudioDuration float64 `yaml:"audio_duration"`
	// EstimatedDuration is the narration length the cue timestamps were
	// computed against; defaults to the last cue's end when omitted.
	EstimatedDuration float64 `yaml:"estimated_duration"`

	Subtitles string `yaml:"subtitles"`

	Background BackgroundSpec `yaml:"background"`
	// Theme selects the flat-color fallback palette entry.
	Theme string `yaml:"theme"`

	Style  config.StyleFile `yaml:"style"`
	Output string           `yaml:"output"`
}

// BackgroundSpec names at most one background source.
type BackgroundSpec struct {
	Video  string `yaml:"video"`
	Color  string `yaml:"color"`
	Avatar string `yaml:"avatar"`
}

// Load reads and validates dir/job.yaml.
func Load(dir string) (Spec, error) {
	data, err := os.ReadFile(filepath.Join(dir, SpecFileName))
	if err != nil {
		return Spec{}, fmt.Errorf("read job spec: %w", err)
	}
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Spec{}, fmt.Errorf("parse %s: %w", SpecFileName, err)
	}
	if err := s.validate(); err != nil {
		return Spec{}, fmt.Errorf("%s: %w", SpecFileName, err)
	}
	return s, nil
}

func (s Spec) validate() error {
	if s.Audio == "" && s.Background.Avatar == "" {
		return fmt.Errorf("audio is required unless an avatar clip is supplied")
	}
	set := 0
	for _, v := range []string{s.Background.Video, s.Background.Color, s.Background.Avatar} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("background: video, color and avatar are mutually exclusive")
	}
	if s.Background.Color != "" {
		if _, err := types.ParseRGB(s.Background.Color); err != nil {
			return fmt.Errorf("background: %w", err)
		}
	}
	return nil
}

// Source resolves the background variant, or nil when none is named.
func (s Spec) Source(dir string) (types.BackgroundSource, error) {
	switch {
	case s.Background.Video != "":
		return types.VisualSource{Path: resolve(dir, s.Background.Video)}, nil
	case s.Background.Avatar != "":
		return types.AvatarSource{Path: resolve(dir, s.Background.Avatar)}, nil
	case s.Background.Color != "":
		c, err := types.ParseRGB(s.Background.Color)
		if err != nil {
			return nil, err
		}
		return types.ColorSource{Color: c}, nil
	default:
		return nil, nil
	}
}

// AudioPath resolves the narration file path; empty when the job is
// avatar-only.
func (s Spec) AudioPath(dir string) string {
	if s.Audio == "" {
		return ""
	}
	return resolve(dir, s.Audio)
}

// SubtitlesPath resolves the cue file path; empty when the job has no
// subtitles.
func (s Spec) SubtitlesPath(dir string) string {
	if s.Subtitles == "" {
		return ""
	}
	return resolve(dir, s.Subtitles)
}

// OutputPath resolves the output file path, defaulting to final.mp4 in
// the job directory.
func (s Spec) OutputPath(dir string) string {
	out := s.Output
	if out == "" {
		out = "final.mp4"
	}
	return resolve(dir, out)
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
