// Package srt reads and writes the sequential numbered-cue subtitle
// format: {index}\n{HH:MM:SS,mmm} --> {HH:MM:SS,mmm}\n{text}\n\n.
// Parse -> rescale -> Serialize round-trips without loss beyond
// millisecond rounding.
package srt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/reelforge/reelforge/internal/types"
)

// Parse reads numbered cue blocks. Indexes are ignored on input and
// regenerated on output; multi-line cue text is preserved verbatim.
func Parse(r io.Reader) ([]types.Cue, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cues []types.Cue
	var block []string
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		cue, err := parseBlock(block)
		if err != nil {
			return fmt.Errorf("cue %d: %w", len(cues)+1, err)
		}
		cues = append(cues, cue)
		block = block[:0]
		return nil
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cues, nil
}

// ParseFile reads cues from path.
func ParseFile(path string) ([]types.Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cues, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cues, nil
}

func parseBlock(block []string) (types.Cue, error) {
	// First line is the sequence index; the timing line may follow it or,
	// in sloppy files, open the block directly.
	i := 0
	if !strings.Contains(block[0], "-->") {
		i = 1
	}
	if i >= len(block) || !strings.Contains(block[i], "-->") {
		return types.Cue{}, fmt.Errorf("missing timing line")
	}

	parts := strings.SplitN(block[i], "-->", 2)
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return types.Cue{}, err
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return types.Cue{}, err
	}
	if end <= start {
		return types.Cue{}, fmt.Errorf("end %.3f <= start %.3f", end, start)
	}

	text := strings.Join(block[i+1:], "\n")
	if strings.TrimSpace(text) == "" {
		return types.Cue{}, fmt.Errorf("empty cue text")
	}
	return types.Cue{Start: start, End: end, Text: text}, nil
}

// Serialize renders cues back into the numbered-block format, indexes
// starting at 1.
func Serialize(cues []types.Cue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", FormatTimestamp(c.Start), FormatTimestamp(c.End))
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// WriteFile serializes cues to path.
func WriteFile(path string, cues []types.Cue) error {
	return os.WriteFile(path, []byte(Serialize(cues)), 0o644)
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm with millisecond
// rounding.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func parseTimestamp(ts string) (float64, error) {
	var h, m, s, ms int
	if _, err := fmt.Sscanf(ts, "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", ts, err)
	}
	if m > 59 || s > 59 || ms > 999 || h < 0 || m < 0 || s < 0 || ms < 0 {
		return 0, fmt.Errorf("timestamp %q: out of range", ts)
	}
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000, nil
}
