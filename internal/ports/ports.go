package ports

import (
	"context"

	"github.com/reelforge/reelforge/internal/types"
)

// Encoder invokes the external encoder as a blocking synchronous process.
// Stderr is returned for diagnostics whether or not the run failed, so
// callers can surface the encoder's own output on non-zero exit.
type Encoder interface {
	Run(ctx context.Context, args []string) (stderr string, err error)
}

// Prober inspects a media file without modifying it.
type Prober interface {
	Probe(ctx context.Context, path string) (types.MediaProbe, error)
}
