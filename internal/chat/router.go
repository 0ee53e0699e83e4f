package chat

import (
	"context"

	"zipchat/internal/models"
	"zipchat/internal/registry"
	"zipchat/internal/store"
	"zipchat/pkg/logger"
)

// PrivateRouter delivers private messages to every live connection of the
// recipient and acknowledges the send to every live connection of the sender.
// Persistence does not depend on the recipient being online.
type PrivateRouter struct {
	messages    store.MessageStore
	reg         *registry.Registry
	broadcaster *Broadcaster
	convs       *shardedLocks
}

func NewPrivateRouter(messages store.MessageStore, reg *registry.Registry, broadcaster *Broadcaster) *PrivateRouter {
	return &PrivateRouter{
		messages:    messages,
		reg:         reg,
		broadcaster: broadcaster,
		convs:       newShardedLocks(),
	}
}

// SendPrivate persists the message (the store updates both participants'
// chat summaries in the same transaction), then pushes it to the recipient's
// connections and a sent-acknowledgement to all of the sender's connections,
// the originating one included, so every open tab converges without its own
// optimistic bookkeeping. Dead connections torn down along the way get their
// room departures announced once the conversation lock is released.
func (r *PrivateRouter) SendPrivate(ctx context.Context, senderID, senderUsername, recipientID, content string) (*models.Message, error) {
	unlock := r.convs.Lock(models.ConversationID(senderID, recipientID))

	msg, err := r.messages.AppendPrivateMessage(ctx, senderID, senderUsername, recipientID, content)
	if err != nil {
		unlock()
		return nil, err
	}

	var departed []*registry.Binding
	if frame, err := models.EncodeFrame(models.FrameNewPrivateMessage, msg); err == nil {
		departed = append(departed, deliver(r.reg, r.reg.ConnectionsForUser(recipientID), frame, "")...)
	} else {
		logger.Error("Error encoding private message: %v", err)
	}

	if frame, err := models.EncodeFrame(models.FramePrivateMessageSent, msg); err == nil {
		departed = append(departed, deliver(r.reg, r.reg.ConnectionsForUser(senderID), frame, "")...)
	} else {
		logger.Error("Error encoding private message ack: %v", err)
	}
	unlock()

	r.broadcaster.announceDepartures(ctx, departed)
	return msg, nil
}

// FetchHistory returns the pair's most recent messages, oldest first. Used for
// initial hydration and reconnect resync alike.
func (r *PrivateRouter) FetchHistory(ctx context.Context, userID, otherUserID string, limit int) ([]*models.Message, error) {
	return r.messages.ConversationHistory(ctx, userID, otherUserID, limit)
}
