package store

import (
	"context"
	"time"

	"zipchat/internal/models"
)

// The store is the single source of truth and the only component that assigns
// message ids. Ordering within a room or conversation is createdAt ascending,
// ties broken by insertion order.

type MessageStore interface {
	// AppendRoomMessage persists a room message and returns it with the
	// store-assigned id and timestamp.
	AppendRoomMessage(ctx context.Context, zipcode, senderID, senderUsername, content string) (*models.Message, error)

	// RecentRoomMessages returns up to limit most recent messages for the
	// room, oldest first. This is the backlog snapshot for (re)joining
	// connections.
	RecentRoomMessages(ctx context.Context, zipcode string, limit int) ([]*models.Message, error)

	// AppendPrivateMessage persists a private message under the canonical
	// conversation id and updates the ActiveChatSummary rows for both
	// participants in the same transaction. Fails if the recipient is
	// unknown.
	AppendPrivateMessage(ctx context.Context, senderID, senderUsername, recipientID, content string) (*models.Message, error)

	// ConversationHistory returns up to limit most recent messages of the
	// pair's conversation, oldest first.
	ConversationHistory(ctx context.Context, userID, otherUserID string, limit int) ([]*models.Message, error)
}

type PresenceStore interface {
	// TouchPresence upserts the user's presence record with a fresh
	// last-activity timestamp.
	TouchPresence(ctx context.Context, userID, username, zipcode string) error

	// ActiveUsers returns the presence records for the zipcode whose last
	// activity falls within ttl, most recent first. Online is set on the
	// returned records; it is never stored.
	ActiveUsers(ctx context.Context, zipcode string, ttl time.Duration) ([]*models.PresenceRecord, error)

	// SweepPresence prunes records staler than ttl and returns how many were
	// removed. Reads stay correct without it; this only bounds table growth.
	SweepPresence(ctx context.Context, ttl time.Duration) (int, error)
}

type ActiveChatStore interface {
	// RecentChats returns up to limit summary rows for the owner, most
	// recent first, excluding rows older than maxAge.
	RecentChats(ctx context.Context, ownerID string, limit int, maxAge time.Duration) ([]*models.ActiveChatSummary, error)

	// RebuildActiveChats recomputes the owner's summary rows from the
	// private message log. Repair path only; steady-state maintenance is
	// incremental at send time.
	RebuildActiveChats(ctx context.Context, ownerID string) error
}

type FavouriteStore interface {
	AddFavourite(ctx context.Context, ownerID, targetID string) error
	RemoveFavourite(ctx context.Context, ownerID, targetID string) error
	ListFavourites(ctx context.Context, ownerID string) ([]*models.FavouriteRelation, error)
	IsFavourite(ctx context.Context, ownerID, targetID string) (bool, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, username, passcodeHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Store interface {
	MessageStore
	PresenceStore
	ActiveChatStore
	FavouriteStore
	UserStore
	Close() error
}
