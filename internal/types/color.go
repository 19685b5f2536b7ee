package types

import (
	"fmt"
	"image/color"
	"strings"
)

// ParseRGB parses "#RRGGBB" or "RRGGBB" into an RGB value.
func ParseRGB(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("color %q: want RRGGBB hex", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(h, "%02x%02x%02x", &r, &g, &b); err != nil {
		return RGB{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGB{R: r, G: g, B: b}, nil
}

// ParseRGBA parses "#RRGGBB" into a fully opaque color.RGBA.
func ParseRGBA(s string) (color.RGBA, error) {
	c, err := ParseRGB(s)
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}, nil
}

// Hex renders the color the way ffmpeg's lavfi color source expects it.
func (c RGB) Hex() string {
	return fmt.Sprintf("0x%02x%02x%02x", c.R, c.G, c.B)
}
