// Package status keeps the monitoring view of a screen outside the daemon
package status

import (
	"context"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

// Store persists screen status snapshots and their transition history
type Store interface {
	// Publish stores the latest status and records it as an event when the
	// state or the last error changed
	Publish(ctx context.Context, st v1alpha1.ScreenStatus) error
	// Get returns the latest status of a screen
	Get(ctx context.Context, centerID, screenID string) (*v1alpha1.ScreenStatus, error)
	// Events returns up to limit recorded transitions, newest first
	Events(ctx context.Context, centerID, screenID string, limit int) ([]v1alpha1.ScreenEvent, error)
}

// Noop discards everything; used when no Redis is configured
type Noop struct{}

// Publish implements Store
func (Noop) Publish(context.Context, v1alpha1.ScreenStatus) error { return nil }

// Get implements Store; there is never a stored status
func (Noop) Get(context.Context, string, string) (*v1alpha1.ScreenStatus, error) {
	return nil, nil
}

// Events implements Store
func (Noop) Events(context.Context, string, string, int) ([]v1alpha1.ScreenEvent, error) {
	return nil, nil
}
