// Package quota tracks the daily write budget of each owner so that a
// reconciliation is refused before it starts writing, not halfway through.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrQuotaExceeded is returned when a reservation does not fit the budget.
var ErrQuotaExceeded = errors.New("write quota exceeded")

// Tracker reserves writes against a per-owner daily budget.
type Tracker interface {
	// Reserve claims n writes or fails with ErrQuotaExceeded without claiming any.
	Reserve(ctx context.Context, ownerID string, n int) error
	// Remaining returns the writes still available today.
	Remaining(ctx context.Context, ownerID string) (int, error)
}

// Unlimited never refuses a reservation.
type Unlimited struct{}

// Reserve implements Tracker.
func (Unlimited) Reserve(context.Context, string, int) error { return nil }

// Remaining implements Tracker.
func (Unlimited) Remaining(context.Context, string) (int, error) { return int(^uint(0) >> 1), nil }

// MemoryTracker keeps the counters in process. Days are UTC calendar days.
type MemoryTracker struct {
	mu    sync.Mutex
	limit int
	used  map[string]int
	now   func() time.Time
}

// NewMemoryTracker creates a tracker allowing limit writes per owner per day.
func NewMemoryTracker(limit int) *MemoryTracker {
	return &MemoryTracker{limit: limit, used: make(map[string]int), now: time.Now}
}

// Reserve implements Tracker.
func (t *MemoryTracker) Reserve(_ context.Context, ownerID string, n int) error {
	if n <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	key := dayKey(ownerID, t.now())
	if t.used[key]+n > t.limit {
		return fmt.Errorf("%w: %d writes requested, %d left", ErrQuotaExceeded, n, t.limit-t.used[key])
	}
	t.used[key] += n
	return nil
}

// Remaining implements Tracker.
func (t *MemoryTracker) Remaining(_ context.Context, ownerID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limit - t.used[dayKey(ownerID, t.now())], nil
}

func dayKey(ownerID string, now time.Time) string {
	return ownerID + ":" + now.UTC().Format("20060102")
}
