package chatclient_test

import (
	"testing"
	"time"

	"zipchat/pkg/chatclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffSchedule(t *testing.T) {
	var b chatclient.Backoff

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, expected := range want {
		delay, ok := b.Next()
		require.True(t, ok, "attempt %d should be allowed", i+1)
		assert.Equal(t, expected, delay)
	}

	_, ok := b.Next()
	assert.False(t, ok, "sixth attempt must be abandoned")

	b.Reset()
	delay, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, time.Second, delay)
}

func TestSessionHappyPath(t *testing.T) {
	s := chatclient.NewSession()
	assert.Equal(t, chatclient.StateConnecting, s.State())

	require.NoError(t, s.OnJoined())
	assert.Equal(t, chatclient.StateJoined, s.State())

	require.NoError(t, s.OnActive())
	assert.Equal(t, chatclient.StateActive, s.State())
	assert.False(t, s.ConsumeResync(), "initial activation needs no resync")
}

func TestSessionReconnectCycle(t *testing.T) {
	s := chatclient.NewSession()
	require.NoError(t, s.OnJoined())
	require.NoError(t, s.OnActive())

	require.NoError(t, s.OnDisconnect())
	assert.Equal(t, chatclient.StateReconnecting, s.State())

	delay, ok := s.NextRetry()
	require.True(t, ok)
	assert.Equal(t, time.Second, delay)

	require.NoError(t, s.OnActive())
	assert.Equal(t, chatclient.StateActive, s.State())
	assert.True(t, s.ConsumeResync(), "re-entry to active must trigger a snapshot refetch")
	assert.False(t, s.ConsumeResync(), "resync flag is one-shot")

	// Backoff resets after a successful reconnect.
	require.NoError(t, s.OnDisconnect())
	delay, ok = s.NextRetry()
	require.True(t, ok)
	assert.Equal(t, time.Second, delay)
}

func TestSessionAbandonsAfterFiveAttempts(t *testing.T) {
	s := chatclient.NewSession()
	require.NoError(t, s.OnJoined())
	require.NoError(t, s.OnActive())
	require.NoError(t, s.OnDisconnect())

	for i := 0; i < 5; i++ {
		_, ok := s.NextRetry()
		require.True(t, ok, "attempt %d", i+1)
	}

	_, ok := s.NextRetry()
	assert.False(t, ok)
	assert.Equal(t, chatclient.StateClosed, s.State())
}

func TestSessionRejectsInvalidTransitions(t *testing.T) {
	s := chatclient.NewSession()

	assert.Error(t, s.OnActive(), "cannot go active before joining")
	assert.Error(t, s.OnDisconnect(), "cannot reconnect before active")

	require.NoError(t, s.OnJoined())
	assert.Error(t, s.OnJoined(), "joined is reachable only from connecting")

	s.Close()
	assert.Equal(t, chatclient.StateClosed, s.State())
	_, ok := s.NextRetry()
	assert.False(t, ok)
}
