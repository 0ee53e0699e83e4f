package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MessageScope distinguishes room messages from private ones.
type MessageScope string

const (
	ScopeRoom    MessageScope = "room"
	ScopePrivate MessageScope = "private"
)

// Message is immutable once created. The store assigns ID and CreatedAt;
// clients never supply either.
type Message struct {
	ID             string       `json:"id"`
	Content        string       `json:"content"`
	CreatedAt      time.Time    `json:"createdAt"`
	SenderID       string       `json:"senderId"`
	SenderUsername string       `json:"senderUsername"`
	Scope          MessageScope `json:"scope"`
	Zipcode        string       `json:"zipcode,omitempty"`
	ConversationID string       `json:"conversationId,omitempty"`
	RecipientID    string       `json:"recipientId,omitempty"`
}

// MaxContentLength is enforced by the validation layer before a message
// reaches the store. The limit counts characters, not bytes.
const MaxContentLength = 500

// ConversationID joins the two user ids in sorted order, so the pair key is
// the same regardless of who sends first.
func ConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// PresenceRecord tracks a user's last activity. Online is never stored; it is
// derived from LastActivityAt against the presence TTL at read time.
type PresenceRecord struct {
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	Zipcode        string    `json:"zipcode"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	Online         bool      `json:"online"`
}

// OnlineAt reports whether the record counts as online at the given instant.
func (p *PresenceRecord) OnlineAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.LastActivityAt) < ttl
}

// ActiveChatSummary is one row per (owner, partner) pair, maintained for both
// participants whenever a private message is sent.
type ActiveChatSummary struct {
	OwnerID                string    `json:"ownerId"`
	PartnerID              string    `json:"partnerId"`
	PartnerUsername        string    `json:"partnerUsername"`
	LastMessageAt          time.Time `json:"lastMessageAt"`
	LastMessageContent     string    `json:"lastMessageContent"`
	LastMessageIsFromOwner bool      `json:"lastMessageIsFromOwner"`
}

// FavouriteRelation is a preference annotation only; it has no effect on
// message delivery.
type FavouriteRelation struct {
	OwnerID           string    `json:"ownerId"`
	FavouriteUserID   string    `json:"favouriteUserId"`
	FavouriteUsername string    `json:"favouriteUsername"`
	CreatedAt         time.Time `json:"createdAt"`
}

// User is the identity collaborator's record. The core only ever consumes
// (ID, Username).
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasscodeHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ValidateContent applies the checks the validation layer guarantees before a
// message may reach the store.
func ValidateContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed != "" && utf8.RuneCountInString(content) <= MaxContentLength
}
