package subtitle

import (
	"strings"

	"golang.org/x/image/font"
)

// Wrap splits text into lines greedily, word by word, keeping each line's
// measured width within maxWidth. Words are never split: a single word
// wider than maxWidth gets its own (overflowing) line. The concatenation
// of all lines' words reproduces the input word sequence.
func Wrap(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		candidate := cur + " " + w
		if font.MeasureString(face, candidate).Ceil() <= maxWidth {
			cur = candidate
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	return append(lines, cur)
}
