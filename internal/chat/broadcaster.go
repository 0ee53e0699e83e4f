package chat

import (
	"context"
	"time"

	"zipchat/internal/models"
	"zipchat/internal/registry"
	"zipchat/internal/store"
	"zipchat/pkg/logger"
)

// Broadcaster fans room messages and membership changes out to every live
// connection bound to the room. Messages are persisted before any push:
// a store failure means nobody sees the message.
type Broadcaster struct {
	messages    store.MessageStore
	presence    store.PresenceStore
	reg         *registry.Registry
	rooms       *shardedLocks
	presenceTTL time.Duration
}

func NewBroadcaster(messages store.MessageStore, presence store.PresenceStore, reg *registry.Registry, presenceTTL time.Duration) *Broadcaster {
	return &Broadcaster{
		messages:    messages,
		presence:    presence,
		reg:         reg,
		rooms:       newShardedLocks(),
		presenceTTL: presenceTTL,
	}
}

// BroadcastMessage persists the message and pushes it to every connection in
// the room. The room lock makes delivery order match persistence order for
// all recipients; enqueueing is non-blocking, so the lock is never held
// across socket I/O. Departure announcements for connections torn down during
// the push happen after the lock is released.
func (b *Broadcaster) BroadcastMessage(ctx context.Context, zipcode, senderID, senderUsername, content string) (*models.Message, error) {
	unlock := b.rooms.Lock(zipcode)

	msg, err := b.messages.AppendRoomMessage(ctx, zipcode, senderID, senderUsername, content)
	if err != nil {
		unlock()
		return nil, err
	}

	frame, err := models.EncodeFrame(models.FrameNewMessage, msg)
	if err != nil {
		unlock()
		logger.Error("Error encoding room message: %v", err)
		return msg, nil
	}
	departed := deliver(b.reg, b.reg.ConnectionsForRoom(zipcode), frame, "")
	unlock()

	b.announceDepartures(ctx, departed)
	return msg, nil
}

// BroadcastUserList recomputes the active-user view and pushes a full
// replacement list to the room. Full replacement keeps lost or duplicated
// pushes harmless.
func (b *Broadcaster) BroadcastUserList(ctx context.Context, zipcode string) {
	users, err := b.presence.ActiveUsers(ctx, zipcode, b.presenceTTL)
	if err != nil {
		logger.Error("Error getting active users for %s: %v", zipcode, err)
		return
	}

	frame, err := models.EncodeFrame(models.FrameUsersUpdated, models.UsersUpdatedPayload{
		Zipcode: zipcode,
		Users:   users,
	})
	if err != nil {
		logger.Error("Error encoding user list: %v", err)
		return
	}
	b.announceDepartures(ctx, deliver(b.reg, b.reg.ConnectionsForRoom(zipcode), frame, ""))
}

// NotifyUserJoined announces a join to the rest of the room. The actor's own
// connection is excluded; it learns about the join from its joined frame.
func (b *Broadcaster) NotifyUserJoined(zipcode, userID, username, excludeConnID string) {
	b.notifyMembership(models.FrameUserJoined, zipcode, userID, username, excludeConnID)
}

// NotifyUserLeft announces that a user's last connection in the room closed.
func (b *Broadcaster) NotifyUserLeft(zipcode, userID, username string) {
	b.notifyMembership(models.FrameUserLeft, zipcode, userID, username, "")
}

func (b *Broadcaster) notifyMembership(frameType models.FrameType, zipcode, userID, username, excludeConnID string) {
	frame, err := models.EncodeFrame(frameType, models.UserEventPayload{
		UserID:   userID,
		Username: username,
		Zipcode:  zipcode,
	})
	if err != nil {
		logger.Error("Error encoding %s event: %v", frameType, err)
		return
	}
	b.announceDepartures(context.Background(), deliver(b.reg, b.reg.ConnectionsForRoom(zipcode), frame, excludeConnID))
}

// announceDepartures emits the room updates owed for users whose last
// connection was torn down during a fan-out. Each announcement fans out
// itself and may tear down further dead connections; the registry shrinks on
// every teardown, so the cascade terminates. Callers must not hold a keyed
// lock here.
func (b *Broadcaster) announceDepartures(ctx context.Context, departed []*registry.Binding) {
	for _, d := range departed {
		b.NotifyUserLeft(d.Zipcode, d.UserID, d.Username)
		b.BroadcastUserList(ctx, d.Zipcode)
	}
}
