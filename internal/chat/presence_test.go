package chat_test

import (
	"context"
	"testing"
	"time"

	"zipchat/internal/chat"
	"zipchat/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackerWithClock(t *testing.T) (*chat.PresenceTracker, *store.MemoryStore, *time.Time) {
	t.Helper()
	st := store.NewMemoryStore()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return now })
	return chat.NewPresenceTracker(st, 5*time.Minute, time.Minute), st, &now
}

func TestOnlineIsDerivedFromLastActivity(t *testing.T) {
	tracker, _, now := trackerWithClock(t)
	ctx := context.Background()

	require.NoError(t, tracker.Touch(ctx, "u1", "alice", "90210"))

	*now = now.Add(4 * time.Minute)
	users, err := tracker.ActiveUsers(ctx, "90210")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].UserID)
	assert.True(t, users[0].Online)

	*now = now.Add(2 * time.Minute)
	users, err = tracker.ActiveUsers(ctx, "90210")
	require.NoError(t, err)
	assert.Empty(t, users, "6 minutes of silence means offline")
}

func TestTouchRevivesStaleUser(t *testing.T) {
	tracker, _, now := trackerWithClock(t)
	ctx := context.Background()

	require.NoError(t, tracker.Touch(ctx, "u1", "alice", "90210"))
	*now = now.Add(10 * time.Minute)

	users, err := tracker.ActiveUsers(ctx, "90210")
	require.NoError(t, err)
	require.Empty(t, users)

	require.NoError(t, tracker.Touch(ctx, "u1", "alice", "90210"))
	users, err = tracker.ActiveUsers(ctx, "90210")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSweepIsMaintenanceOnly(t *testing.T) {
	tracker, _, now := trackerWithClock(t)
	ctx := context.Background()

	require.NoError(t, tracker.Touch(ctx, "u1", "alice", "90210"))
	*now = now.Add(10 * time.Minute)

	// Reads are already correct before any sweep runs.
	users, err := tracker.ActiveUsers(ctx, "90210")
	require.NoError(t, err)
	require.Empty(t, users)

	removed, err := tracker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// And idempotent afterwards.
	removed, err = tracker.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	st := store.NewMemoryStore()
	tracker := chat.NewPresenceTracker(st, 5*time.Minute, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.RunSweeper(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
