package chat

import (
	"context"
	"time"

	"zipchat/internal/models"
	"zipchat/internal/store"
)

// ActiveChatAggregator serves the recent-conversation list. Rows are
// maintained incrementally by the private router at send time; this component
// only reads, apart from the explicit repair path.
type ActiveChatAggregator struct {
	store  store.ActiveChatStore
	maxAge time.Duration
}

func NewActiveChatAggregator(st store.ActiveChatStore, maxAge time.Duration) *ActiveChatAggregator {
	return &ActiveChatAggregator{store: st, maxAge: maxAge}
}

// RecentChats returns up to limit conversation summaries for the user, most
// recent first. Rows past the retention window are excluded, not deleted.
func (a *ActiveChatAggregator) RecentChats(ctx context.Context, userID string, limit int) ([]*models.ActiveChatSummary, error) {
	return a.store.RecentChats(ctx, userID, limit, a.maxAge)
}

// Rebuild recomputes the user's summaries from the message log. Repair path
// for drifted rows; never part of a normal read.
func (a *ActiveChatAggregator) Rebuild(ctx context.Context, userID string) error {
	return a.store.RebuildActiveChats(ctx, userID)
}
