package subtitle

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// LoadFace opens the TrueType/OpenType font at path at the given pixel
// size. Any failure falls back to the embedded bold face so a missing or
// broken font file never fails the job; the returned error describes the
// fallback reason and is nil when the configured font loaded.
func LoadFace(path string, size int) (font.Face, error) {
	if size <= 0 {
		size = 85
	}
	if path == "" {
		return builtinFace(size), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return builtinFace(size), fmt.Errorf("font %s: %w", path, err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return builtinFace(size), fmt.Errorf("font %s: %w", path, err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return builtinFace(size), fmt.Errorf("font %s: %w", path, err)
	}
	return face, nil
}

func builtinFace(size int) font.Face {
	// The embedded Go Bold face always parses.
	parsed, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic("subtitle: embedded fallback font is corrupt: " + err.Error())
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		panic("subtitle: embedded fallback face: " + err.Error())
	}
	return face
}
