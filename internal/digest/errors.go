package digest

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("digest: invalid input")
	ErrUnsupportedAlgorithm = errors.New("digest: unsupported algorithm")
)

// InputError reports a malformed segment digest and its position.
// Index is -1 when the error is not tied to a single segment.
type InputError struct {
	Index   int
	Segment string
	Reason  string
}

func (e *InputError) Error() string {
	if e.Index < 0 {
		if e.Segment == "" {
			return fmt.Sprintf("digest: invalid input: %s", e.Reason)
		}
		return fmt.Sprintf("digest: invalid segment %q: %s", e.Segment, e.Reason)
	}
	return fmt.Sprintf("digest: invalid segment %d (%q): %s", e.Index, e.Segment, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}
