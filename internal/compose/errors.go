package compose

import "fmt"

// BackgroundUnavailableError reports a background source that could not be
// opened or decoded. It is recoverable: the orchestrator decides whether
// to retry with the flat-color fallback.
type BackgroundUnavailableError struct {
	Path string
	Err  error
}

func (e *BackgroundUnavailableError) Error() string {
	return fmt.Sprintf("background %s unavailable: %v", e.Path, e.Err)
}

func (e *BackgroundUnavailableError) Unwrap() error { return e.Err }

// EncodingFailedError reports a non-zero exit from the external encoder,
// carrying its diagnostic output. It is fatal for the job.
type EncodingFailedError struct {
	Stderr string
	Err    error
}

func (e *EncodingFailedError) Error() string {
	msg := tail(e.Stderr, 512)
	if msg == "" {
		return fmt.Sprintf("encoder failed: %v", e.Err)
	}
	return fmt.Sprintf("encoder failed: %v: %s", e.Err, msg)
}

func (e *EncodingFailedError) Unwrap() error { return e.Err }

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
