// Package subtitle rasterizes cue text into positioned, stroked bitmaps
// sized to the video frame.
package subtitle

import (
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/reelforge/reelforge/internal/types"
)

// wrapRatio bounds rendered text to a fraction of the frame width so
// subtitles keep a margin on both sides.
const wrapRatio = 0.8

// Rasterizer turns one cue's text into a transparent RGBA bitmap of
// frameWidth x style.BitmapHeight with a rounded outline stroke.
type Rasterizer struct {
	face       font.Face
	style      types.StyleConfig
	frameWidth int
}

// NewRasterizer loads the configured font (falling back to the built-in
// face on failure) and returns a rasterizer for the given frame width.
func NewRasterizer(style types.StyleConfig, frameWidth int, log *slog.Logger) *Rasterizer {
	face, err := LoadFace(style.FontPath, style.FontSize)
	if err != nil && log != nil {
		log.Warn("configured font unavailable, using built-in face", "error", err)
	}
	return &Rasterizer{face: face, style: style, frameWidth: frameWidth}
}

// RenderCue rasterizes a cue. Per-word reveal mode is accepted but the
// whole segment text is rendered as one static bitmap per cue: animating
// individual words would double-render glyphs at cue boundaries, so word
// timestamps stay unused until that is resolved.
func (r *Rasterizer) RenderCue(cue types.Cue) *image.RGBA {
	return r.Render(cue.Text)
}

// Render rasterizes arbitrary text: greedy wrap under 80% of the frame
// width, the line block vertically centered, each line aligned per style,
// outline stroke drawn as a filled circular stamp before the fill pass.
func (r *Rasterizer) Render(text string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.frameWidth, r.style.BitmapHeight))

	maxTextWidth := int(float64(r.frameWidth) * wrapRatio)
	lines := Wrap(text, r.face, maxTextWidth)
	if len(lines) == 0 {
		return img
	}

	lineHeight := r.style.FontSize + r.style.LineSpacing
	blockTop := (r.style.BitmapHeight - len(lines)*lineHeight) / 2
	ascent := r.face.Metrics().Ascent.Ceil()

	for i, line := range lines {
		w := font.MeasureString(r.face, line).Ceil()
		x := r.lineX(w)
		y := blockTop + i*lineHeight + ascent
		r.drawStroked(img, line, x, y)
	}
	return img
}

func (r *Rasterizer) lineX(lineWidth int) int {
	margin := (r.frameWidth - int(float64(r.frameWidth)*wrapRatio)) / 2
	switch r.style.Alignment {
	case types.AlignLeft:
		return margin
	case types.AlignRight:
		return r.frameWidth - margin - lineWidth
	default:
		return (r.frameWidth - lineWidth) / 2
	}
}

// drawStroked stamps the outline-color text at every integer offset
// (dx, dy) with dx^2+dy^2 <= radius^2, producing a rounded stroke, then
// draws the fill-color text once on top.
func (r *Rasterizer) drawStroked(dst draw.Image, line string, x, y int) {
	radius := r.style.OutlineWidth
	if radius > 0 {
		outline := image.NewUniform(r.style.OutlineColor)
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy <= radius*radius {
					r.drawText(dst, outline, line, x+dx, y+dy)
				}
			}
		}
	}
	r.drawText(dst, image.NewUniform(r.style.FillColor), line, x, y)
}

func (r *Rasterizer) drawText(dst draw.Image, src image.Image, line string, x, y int) {
	d := font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(line)
}

// WritePNG encodes a rendered bitmap to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
