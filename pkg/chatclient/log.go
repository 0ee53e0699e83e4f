package chatclient

import (
	"sync"
	"time"

	"zipchat/internal/models"

	"github.com/google/uuid"
)

const localIDPrefix = "local-"

// ChatLog is the client-side message list. Optimistic sends show up
// immediately under a temporary local id and are replaced by the
// authoritative copy once it arrives on the delivery stream; every incoming
// message is merged idempotently by id, so at-least-once delivery and
// history/live overlap never produce duplicates.
type ChatLog struct {
	mu      sync.Mutex
	entries []models.Message
	seen    map[string]struct{}
}

func NewChatLog() *ChatLog {
	return &ChatLog{seen: make(map[string]struct{})}
}

// AddOptimistic inserts a locally-synthesized message and returns its
// temporary id. The store never sees this id.
func (l *ChatLog) AddOptimistic(senderID, senderUsername, content string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	tempID := localIDPrefix + uuid.NewString()
	l.entries = append(l.entries, models.Message{
		ID:             tempID,
		Content:        content,
		CreatedAt:      time.Now(),
		SenderID:       senderID,
		SenderUsername: senderUsername,
	})
	return tempID
}

// Confirm removes the temporary entry after a successful send. The
// authoritative copy arrives separately via Merge.
func (l *ChatLog) Confirm(tempID string) {
	l.remove(tempID)
}

// Fail removes the temporary entry after a failed send. No automatic retry;
// the user resends.
func (l *ChatLog) Fail(tempID string) {
	l.remove(tempID)
}

func (l *ChatLog) remove(tempID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, m := range l.entries {
		if m.ID == tempID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// Merge appends an authoritative message, discarding it if a message with the
// same id is already present. Reports whether the message was new.
func (l *ChatLog) Merge(msg models.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[msg.ID]; dup {
		return false
	}
	l.seen[msg.ID] = struct{}{}
	l.entries = append(l.entries, msg)
	return true
}

// Messages returns a copy of the current list, optimistic entries included.
func (l *ChatLog) Messages() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Message, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ChatLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
