package player

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrorCategory classifies playback failures for status reporting
type ErrorCategory int

const (
	CategoryUnknown ErrorCategory = iota
	// CategoryStall means the player loaded but never confirmed playback
	CategoryStall
	// CategoryRemote means the player or the shell channel reported a failure
	CategoryRemote
	// CategoryExhausted means every item of a zone failed in one pass
	CategoryExhausted
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryStall:
		return "stall"
	case CategoryRemote:
		return "remote"
	case CategoryExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// ErrExhausted is reported by a zone whose items all failed in one pass
var ErrExhausted = errors.New("all items failed")

// StallError is the hard error raised when recovery from a stall did not
// produce a play signal
type StallError struct {
	FrameID uuid.UUID
	VideoID string
	Waited  time.Duration
}

func (e *StallError) Error() string {
	return fmt.Sprintf("player %s stalled: no play signal for video %s after %s", e.FrameID, e.VideoID, e.Waited)
}

// RemoteError wraps a failure reported by the player or the shell channel
type RemoteError struct {
	FrameID uuid.UUID
	VideoID string
	Op      string
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("player %s: %s video %s: %v", e.FrameID, e.Op, e.VideoID, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Classify returns the category of a playback error
func Classify(err error) ErrorCategory {
	var stall *StallError
	var remote *RemoteError
	switch {
	case err == nil:
		return CategoryUnknown
	case errors.Is(err, ErrExhausted):
		return CategoryExhausted
	case errors.As(err, &stall):
		return CategoryStall
	case errors.As(err, &remote):
		return CategoryRemote
	default:
		return CategoryUnknown
	}
}
