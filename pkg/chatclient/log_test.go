package chatclient_test

import (
	"testing"
	"time"

	"zipchat/internal/models"
	"zipchat/pkg/chatclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authoritative(id, content string) models.Message {
	return models.Message{
		ID:             id,
		Content:        content,
		CreatedAt:      time.Now(),
		SenderID:       "u1",
		SenderUsername: "alice",
	}
}

func TestOptimisticSendLifecycle(t *testing.T) {
	log := chatclient.NewChatLog()

	tempID := log.AddOptimistic("u1", "alice", "hello")
	require.Equal(t, 1, log.Len())
	assert.Equal(t, tempID, log.Messages()[0].ID)

	// Persist succeeded: the temp entry goes away and the authoritative copy
	// arrives on the normal delivery path.
	log.Confirm(tempID)
	assert.Equal(t, 0, log.Len())

	assert.True(t, log.Merge(authoritative("m1", "hello")))
	require.Equal(t, 1, log.Len())
	assert.Equal(t, "m1", log.Messages()[0].ID)
}

func TestFailedSendDisappears(t *testing.T) {
	log := chatclient.NewChatLog()

	tempID := log.AddOptimistic("u1", "alice", "hello")
	log.Fail(tempID)

	assert.Equal(t, 0, log.Len(), "failed sends leave no trace; the user resends")
}

func TestMergeIsIdempotentPerID(t *testing.T) {
	log := chatclient.NewChatLog()

	msg := authoritative("m1", "hello")
	assert.True(t, log.Merge(msg))
	assert.False(t, log.Merge(msg), "same id delivered twice must be discarded")
	assert.Equal(t, 1, log.Len())
}

func TestHistoryReplayOverlappingLivePush(t *testing.T) {
	log := chatclient.NewChatLog()

	// Live push first, then a reconnect-triggered history replay containing
	// the same message plus an older one.
	assert.True(t, log.Merge(authoritative("m2", "second")))
	assert.True(t, log.Merge(authoritative("m1", "first")))
	assert.False(t, log.Merge(authoritative("m2", "second")))

	assert.Equal(t, 2, log.Len())
}

func TestConcurrentOptimisticEntries(t *testing.T) {
	log := chatclient.NewChatLog()

	a := log.AddOptimistic("u1", "alice", "one")
	b := log.AddOptimistic("u1", "alice", "two")
	require.NotEqual(t, a, b)

	log.Confirm(a)
	msgs := log.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "two", msgs[0].Content)
}
