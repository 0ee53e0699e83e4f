package chat

import (
	"context"
	"time"

	"zipchat/internal/models"
	"zipchat/internal/store"
	"zipchat/pkg/logger"
)

// PresenceTracker keeps lastActivityAt fresh and derives "online" from it.
// There is no stored online flag anywhere: a user is online iff their last
// activity falls within the TTL.
type PresenceTracker struct {
	store         store.PresenceStore
	ttl           time.Duration
	sweepInterval time.Duration
}

func NewPresenceTracker(st store.PresenceStore, ttl, sweepInterval time.Duration) *PresenceTracker {
	return &PresenceTracker{
		store:         st,
		ttl:           ttl,
		sweepInterval: sweepInterval,
	}
}

// Touch refreshes the user's activity timestamp. Called on join, on any send,
// and on heartbeat.
func (t *PresenceTracker) Touch(ctx context.Context, userID, username, zipcode string) error {
	return t.store.TouchPresence(ctx, userID, username, zipcode)
}

// ActiveUsers returns the room's online users, most recently active first.
func (t *PresenceTracker) ActiveUsers(ctx context.Context, zipcode string) ([]*models.PresenceRecord, error) {
	return t.store.ActiveUsers(ctx, zipcode, t.ttl)
}

// Sweep prunes stale presence records. Maintenance only: reads filter by TTL
// regardless, so a missed sweep degrades to lazy aging, not wrong answers.
func (t *PresenceTracker) Sweep(ctx context.Context) (int, error) {
	return t.store.SweepPresence(ctx, t.ttl)
}

// RunSweeper runs Sweep on a ticker until the context is cancelled.
func (t *PresenceTracker) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := t.Sweep(ctx)
			if err != nil {
				logger.Error("Presence sweep error: %v", err)
				continue
			}
			if removed > 0 {
				logger.Debug("Presence sweep removed %d stale records", removed)
			}
		}
	}
}
