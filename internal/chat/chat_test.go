package chat_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"zipchat/internal/models"
	"zipchat/internal/registry"
	"zipchat/internal/store"

	"github.com/stretchr/testify/require"
)

// captureSink records every frame enqueued on it. Setting dead simulates a
// connection whose buffer no longer accepts frames.
type captureSink struct {
	mu     sync.Mutex
	frames []models.Frame
	dead   bool
	closed bool
}

func (s *captureSink) Enqueue(raw []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return false
	}
	var f models.Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		panic("unparseable frame enqueued: " + err.Error())
	}
	s.frames = append(s.frames, f)
	return true
}

func (s *captureSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *captureSink) framesOfType(t models.FrameType) []models.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Frame
	for _, f := range s.frames {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// messageContents returns the content of every new_message frame in delivery
// order.
func (s *captureSink) messageContents(t *testing.T, frameType models.FrameType) []string {
	t.Helper()
	var out []string
	for _, f := range s.framesOfType(frameType) {
		var msg models.Message
		require.NoError(t, json.Unmarshal(f.Data, &msg))
		out = append(out, msg.Content)
	}
	return out
}

func joinSink(t *testing.T, reg *registry.Registry, connID, userID, username, zipcode string) *captureSink {
	t.Helper()
	sink := &captureSink{}
	ok := reg.Join(&registry.Binding{
		ConnectionID: connID,
		UserID:       userID,
		Username:     username,
		Zipcode:      zipcode,
		Sink:         sink,
	})
	require.True(t, ok)
	return sink
}

func mustCreateUser(t *testing.T, s *store.MemoryStore, username string) string {
	t.Helper()
	u, err := s.CreateUser(context.Background(), username, "hash")
	require.NoError(t, err)
	return u.ID
}
