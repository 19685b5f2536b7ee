// Package config holds every tunable the assembly core depends on:
// platform constraints, encoder parameters, and default subtitle style.
// Values are plain data so callers can override any of them; nothing in
// the pipeline hard-codes a resolution or bitrate.
package config

import (
	"fmt"
	"image/color"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/reelforge/reelforge/internal/types"
)

// Platform describes the target platform's hard constraints for one
// vertical video.
type Platform struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	FPS          int     `yaml:"fps"`
	MinDuration  float64 `yaml:"min_duration"`
	MaxDuration  float64 `yaml:"max_duration"`
	MaxSizeBytes int64   `yaml:"max_size_bytes"`
}

// Encode fixes the external encoder's output parameters.
type Encode struct {
	VideoCodec   string `yaml:"video_codec"`
	Preset       string `yaml:"preset"`
	CRF          int    `yaml:"crf"`
	PixelFormat  string `yaml:"pixel_format"`
	AudioCodec   string `yaml:"audio_codec"`
	AudioBitrate string `yaml:"audio_bitrate"`
}

// Config is the full runtime configuration of the assembly pipeline.
type Config struct {
	FFmpegPath  string `yaml:"ffmpeg"`
	FFprobePath string `yaml:"ffprobe"`

	Platform Platform `yaml:"platform"`
	Encode   Encode   `yaml:"encode"`

	Style types.StyleConfig `yaml:"-"`
	// StyleFile mirrors Style in a YAML-friendly shape.
	StyleFile StyleFile `yaml:"style"`

	// Themes maps a content theme to the flat-color fallback background.
	Themes map[string]types.RGB `yaml:"-"`
	// FallbackColor is used when no theme matches.
	FallbackColor types.RGB `yaml:"-"`
}

// StyleFile is the YAML form of types.StyleConfig: colors as hex strings.
type StyleFile struct {
	Font         string `yaml:"font"`
	FontSize     int    `yaml:"font_size"`
	FillColor    string `yaml:"fill_color"`
	OutlineColor string `yaml:"outline_color"`
	OutlineWidth int    `yaml:"outline_width"`
	MarginBottom int    `yaml:"margin_bottom"`
	BitmapHeight int    `yaml:"bitmap_height"`
	LineSpacing  int    `yaml:"line_spacing"`
	Alignment    string `yaml:"alignment"`
	Highlight    string `yaml:"highlight"`
}

/// Default returns the stock configuration: 1080x1920 at 30 fps, H.264/AAC,
// 15-60 s and 50 MB platform limits, cyan subtitles with a 5 px black
// outline 300 px above the bottom edge.
func Default() Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Platform: Platform{
			Width:        1080,
			Height:       1920,
			FPS:          30,
			MinDuration:  15,
			MaxDuration:  60,
			MaxSizeBytes: 50 * 1024 * 1024,
		},
		Encode: Encode{
			VideoCodec:   "libx264",
			Preset:       "medium",
			CRF:          23,
			PixelFormat:  "yuv420p",
			AudioCodec:   "aac",
			AudioBitrate: "128k",
		},
		Style: types.StyleConfig{
			FontSize:     85,
			FillColor:    color.RGBA{R: 0, G: 255, B: 255, A: 255},
			OutlineColor: color.RGBA{R: 0, G: 0, B: 0, A: 255},
			OutlineWidth: 5,
			MarginBottom: 300,
			BitmapHeight: 250,
			LineSpacing:  10,
			Alignment:    types.AlignCenter,
			Highlight:    types.HighlightStatic,
		},
		Themes: map[string]types.RGB{
			"motivation":   {R: 20, G: 30, B: 60},
			"productivity": {R: 30, G: 20, B: 40},
			"tech":         {R: 10, G: 20, B: 30},
			"business":     {R: 30, G: 30, B: 30},
			"health":       {R: 20, G: 40, B: 30},
		},
		FallbackColor: types.RGB{R: 20, G: 20, B: 40},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.applyStyleFile(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// WithStyle returns a copy of the configuration with the per-job style
// overrides applied on top of the base style.
func (c Config) WithStyle(sf StyleFile) (Config, error) {
	c.StyleFile = sf
	if err := c.applyStyleFile(); err != nil {
		return c, fmt.Errorf("style: %w", err)
	}
	return c, nil
}

func (c *Config) applyStyleFile() error {
	sf := c.StyleFile
	if sf.Font != "" {
		c.Style.FontPath = sf.Font
	}
	if sf.FontSize > 0 {
		c.Style.FontSize = sf.FontSize
	}
	if sf.FillColor != "" {
		rgba, err := types.ParseRGBA(sf.FillColor)
		if err != nil {
			return err
		}
		c.Style.FillColor = rgba
	}
	if sf.OutlineColor != "" {
		rgba, err := types.ParseRGBA(sf.OutlineColor)
		if err != nil {
			return err
		}
		c.Style.OutlineColor = rgba
	}
	if sf.OutlineWidth > 0 {
		c.Style.OutlineWidth = sf.OutlineWidth
	}
	if sf.MarginBottom > 0 {
		c.Style.MarginBottom = sf.MarginBottom
	}
	if sf.BitmapHeight > 0 {
		c.Style.BitmapHeight = sf.BitmapHeight
	}
	if sf.LineSpacing > 0 {
		c.Style.LineSpacing = sf.LineSpacing
	}
	if sf.Alignment != "" {
		c.Style.Alignment = types.Alignment(sf.Alignment)
	}
	if sf.Highlight != "" {
		c.Style.Highlight = types.HighlightMode(sf.Highlight)
	}
	return nil
}

// ApplyEnv overlays environment variables on top of the loaded values.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("REELFORGE_FFMPEG"); v != "" {
		c.FFmpegPath = v
	}
	if v := os.Getenv("REELFORGE_FFPROBE"); v != "" {
		c.FFprobePath = v
	}
	if v := os.Getenv("REELFORGE_FONT"); v != "" {
		c.Style.FontPath = v
	}
}

// ThemeColor resolves a theme name to its flat background color.
func (c Config) ThemeColor(theme string) types.RGB {
	if col, ok := c.Themes[theme]; ok {
		return col
	}
	return c.FallbackColor
}
