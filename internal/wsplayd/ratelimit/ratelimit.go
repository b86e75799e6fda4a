// Package ratelimit bounds how often the daemon's control endpoints may be hit
package ratelimit

import (
	"context"
	"time"
)

// Limit types registered by the daemon
const (
	TypeReload  = "reload"
	TypeConnect = "ws_connect"
)

// LimitKey identifies a specific rate limit counter
type LimitKey struct {
	Type     string // e.g., "reload", "ws_connect"
	RemoteIP string // caller address
}

// Limit defines a fixed window rate limit
type Limit struct {
	// Rate is the number of operations allowed per window
	Rate int

	// Period is the window length
	Period time.Duration

	// BurstSize allows a short burst over the rate (optional)
	BurstSize int
}

// Max is the highest count a window may reach
func (l Limit) Max() int {
	return l.Rate + l.BurstSize
}

// Store handles rate limit state persistence
type Store interface {
	// Increment adds one to the key's counter and returns the count in the
	// current window. A new window starts when the previous one has expired.
	Increment(ctx context.Context, key LimitKey, limit Limit) (int, error)

	// Reset clears a rate limit counter
	Reset(ctx context.Context, key LimitKey) error
}

// Error types for rate limiting
var (
	ErrLimitExceeded = NewError("RATE_LIMITED", "rate limit exceeded")
	ErrStoreError    = NewError("STORE_ERROR", "rate limit store error")
	ErrInvalidLimit  = NewError("INVALID_LIMIT", "invalid rate limit configuration")
	ErrInvalidKey    = NewError("INVALID_KEY", "invalid rate limit key")
)

// Error represents a rate limiting error
type Error struct {
	Code    string
	Message string
}

func (e Error) Error() string {
	return e.Message
}

// NewError creates a new rate limit error
func NewError(code string, message string) Error {
	return Error{
		Code:    code,
		Message: message,
	}
}
