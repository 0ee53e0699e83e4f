package registry_test

import (
	"testing"

	"zipchat/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSink struct{}

func (nopSink) Enqueue([]byte) bool { return true }
func (nopSink) Close()              {}

func bind(connID, userID, zipcode string) *registry.Binding {
	return &registry.Binding{
		ConnectionID: connID,
		UserID:       userID,
		Username:     "user-" + userID,
		Zipcode:      zipcode,
		Sink:         nopSink{},
	}
}

func TestJoinAndLookup(t *testing.T) {
	r := registry.New()

	require.True(t, r.Join(bind("c1", "u1", "90210")))
	require.True(t, r.Join(bind("c2", "u2", "90210")))

	room := r.ConnectionsForRoom("90210")
	assert.Len(t, room, 2)

	u1 := r.ConnectionsForUser("u1")
	require.Len(t, u1, 1)
	assert.Equal(t, "c1", u1[0].ConnectionID)

	_, ok := r.Get("c1")
	assert.True(t, ok)
}

func TestJoinIsIdempotentPerConnection(t *testing.T) {
	r := registry.New()

	require.True(t, r.Join(bind("c1", "u1", "90210")))
	assert.False(t, r.Join(bind("c1", "u1", "90210")))

	assert.Len(t, r.ConnectionsForRoom("90210"), 1)
	assert.Len(t, r.ConnectionsForUser("u1"), 1)
}

func TestUserMayHoldMultipleBindings(t *testing.T) {
	r := registry.New()

	require.True(t, r.Join(bind("tab-a", "u1", "90210")))
	require.True(t, r.Join(bind("tab-b", "u1", "90210")))

	assert.Len(t, r.ConnectionsForUser("u1"), 2)
	assert.Len(t, r.ConnectionsForRoom("90210"), 2)
}

func TestLeaveReportsLastBinding(t *testing.T) {
	r := registry.New()
	r.Join(bind("tab-a", "u1", "90210"))
	r.Join(bind("tab-b", "u1", "90210"))

	b, last := r.Leave("tab-a")
	require.NotNil(t, b)
	assert.False(t, last)

	b, last = r.Leave("tab-b")
	require.NotNil(t, b)
	assert.True(t, last)
	assert.Equal(t, "u1", b.UserID)

	assert.Empty(t, r.ConnectionsForUser("u1"))
	assert.Empty(t, r.ConnectionsForRoom("90210"))
}

func TestLeaveUnknownConnectionIsIgnored(t *testing.T) {
	r := registry.New()

	b, last := r.Leave("ghost")
	assert.Nil(t, b)
	assert.False(t, last)
}

func TestRoomsAreIsolated(t *testing.T) {
	r := registry.New()
	r.Join(bind("c1", "u1", "90210"))
	r.Join(bind("c2", "u2", "10001"))

	room := r.ConnectionsForRoom("90210")
	require.Len(t, room, 1)
	assert.Equal(t, "u1", room[0].UserID)

	assert.Empty(t, r.ConnectionsForRoom("94105"))
}
