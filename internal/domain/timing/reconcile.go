// Package timing rescales subtitle cues from an estimated narration
// timeline onto the actual synthesized-audio timeline.
package timing

import (
	"fmt"

	"github.com/reelforge/reelforge/internal/types"
)

// DegenerateTimingError reports an estimated duration from which no scale
// factor can be derived. It is fatal for the job.
type DegenerateTimingError struct {
	Estimated float64
}

func (e *DegenerateTimingError) Error() string {
	return fmt.Sprintf("estimated duration %.3fs: cannot rescale cue timestamps", e.Estimated)
}

// Rescale maps every cue timestamp from the estimated timeline onto the
// actual one by a single uniform factor actual/estimated. Relative cue
// proportions are preserved; there is no per-cue drift correction and no
// clamping. Word-level timestamps, when present, are rescaled with the
// same factor.
//
// The input must satisfy the transcript invariant (sorted by start,
// non-overlapping). A uniform positive scale preserves that order; the
// output is still checked and an error returned if the invariant breaks.
func Rescale(cues []types.Cue, estimated, actual float64) ([]types.Cue, error) {
	if estimated <= 0 {
		return nil, &DegenerateTimingError{Estimated: estimated}
	}

	factor := actual / estimated
	out := make([]types.Cue, len(cues))
	for i, c := range cues {
		nc := c
		nc.Start = c.Start * factor
		nc.End = c.End * factor
		if len(c.Words) > 0 {
			nc.Words = make([]types.Word, len(c.Words))
			for j, w := range c.Words {
				nc.Words[j] = types.Word{
					Start: w.Start * factor,
					End:   w.End * factor,
					Text:  w.Text,
				}
			}
		}
		out[i] = nc
	}

	if err := checkOrdered(out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkOrdered verifies the transcript invariant: end > start per cue and
// no cue starting before the previous one ended.
func checkOrdered(cues []types.Cue) error {
	for i, c := range cues {
		if c.End <= c.Start {
			return fmt.Errorf("cue %d: end %.3f <= start %.3f after rescale", i+1, c.End, c.Start)
		}
		if i > 0 && c.Start < cues[i-1].End {
			return fmt.Errorf("cue %d: start %.3f overlaps previous end %.3f after rescale", i+1, c.Start, cues[i-1].End)
		}
	}
	return nil
}
