package types

import "image/color"

// Cue is one subtitle entry on the narration timeline. Cues within one
// transcript are ordered by Start and non-overlapping; End is always
// greater than Start.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Word is an optional per-word sub-timestamp inside a cue.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"word"`
}

// HighlightMode selects how cue text is rendered over time.
type HighlightMode string

const (
	// HighlightStatic renders the whole cue text for its full interval.
	HighlightStatic HighlightMode = "static"
	// HighlightPerWord is accepted as input but currently rendered
	// identically to HighlightStatic; see subtitle.Rasterizer.
	HighlightPerWord HighlightMode = "perword"
)

// Alignment is the horizontal placement of each subtitle line.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// StyleConfig describes how subtitle bitmaps are drawn.
type StyleConfig struct {
	FontPath     string
	FontSize     int
	FillColor    color.RGBA
	OutlineColor color.RGBA
	OutlineWidth int
	// MarginBottom is the distance in pixels from the bottom of the frame
	// to the top edge of the subtitle bitmap.
	MarginBottom int
	BitmapHeight int
	LineSpacing  int
	Alignment    Alignment
	Highlight    HighlightMode
}

// RGB is a flat background color.
type RGB struct {
	R, G, B uint8
}

// BackgroundSource is a closed set of background inputs: a visual file, a
// flat color, or an externally generated avatar clip that already carries
// synchronized narration. Consumers switch exhaustively over the three
// concrete types; nil means "no source supplied".
type BackgroundSource interface {
	backgroundSource()
}

// VisualSource is a stock or downloaded background video file.
type VisualSource struct {
	Path string
}

// ColorSource is a flat-color synthesized background.
type ColorSource struct {
	Color RGB
}

// AvatarSource is an avatar clip used as the sole video+audio source.
type AvatarSource struct {
	Path string
}

func (VisualSource) backgroundSource() {}
func (ColorSource) backgroundSource()  {}
func (AvatarSource) backgroundSource() {}

// AssemblyRequest is the immutable input bundle for one video job.
type AssemblyRequest struct {
	AudioPath     string
	AudioDuration float64
	// EstimatedDuration is the narration length the cue timestamps were
	// computed against. Cues are rescaled from it onto AudioDuration.
	EstimatedDuration float64
	Background        BackgroundSource
	Cues              []Cue
	Style             StyleConfig
	OutputPath        string
	// WorkDir holds intermediate artifacts (normalized background, cue
	// bitmaps). Empty means a fresh temp dir per job.
	WorkDir string
}

// MediaProbe is a read-only description of a produced media file.
type MediaProbe struct {
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	HasAudioStream  bool    `json:"has_audio_stream"`
	VideoCodec      string  `json:"video_codec"`
}

// Validation is the advisory outcome of checking a produced file against
// platform constraints. A failed validation does not discard the file.
type Validation struct {
	Passed bool     `json:"passed"`
	Issues []string `json:"issues"`
}

// AssemblyResult is returned for every successfully encoded job.
type AssemblyResult struct {
	OutputPath string     `json:"output_path"`
	Validation Validation `json:"validation"`
}
