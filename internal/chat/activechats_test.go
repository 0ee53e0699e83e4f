package chat_test

import (
	"context"
	"testing"
	"time"

	"zipchat/internal/chat"
	"zipchat/internal/registry"
	"zipchat/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentChatsRankedByRecency(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return now })

	reg := registry.New()
	r := newRouter(st, reg)
	agg := chat.NewActiveChatAggregator(st, 7*24*time.Hour)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")
	carol := mustCreateUser(t, st, "carol")

	_, err := r.SendPrivate(ctx, alice, "alice", bob, "earlier")
	require.NoError(t, err)
	now = now.Add(time.Hour)
	_, err = r.SendPrivate(ctx, alice, "alice", carol, "later")
	require.NoError(t, err)

	chats, err := agg.RecentChats(ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, carol, chats[0].PartnerID)
	assert.Equal(t, bob, chats[1].PartnerID)

	chats, err = agg.RecentChats(ctx, alice, 1)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, carol, chats[0].PartnerID)
}

func TestRecentChatsSoftExpiry(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return now })

	reg := registry.New()
	r := newRouter(st, reg)
	agg := chat.NewActiveChatAggregator(st, 7*24*time.Hour)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")

	_, err := r.SendPrivate(ctx, alice, "alice", bob, "hi")
	require.NoError(t, err)

	now = now.Add(8 * 24 * time.Hour)
	chats, err := agg.RecentChats(ctx, alice, 10)
	require.NoError(t, err)
	assert.Empty(t, chats)

	// A new message revives the pair.
	_, err = r.SendPrivate(ctx, bob, "bob", alice, "back again")
	require.NoError(t, err)
	chats, err = agg.RecentChats(ctx, alice, 10)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}
