package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"zipchat/internal/models"
	"zipchat/pkg/apperrors"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It backs tests and single-node
// deployments that can tolerate losing history on restart.
type MemoryStore struct {
	mu sync.Mutex

	users       map[string]*models.User
	usersByName map[string]*models.User

	roomMessages map[string][]*models.Message
	convMessages map[string][]*models.Message

	chats    map[string]map[string]*models.ActiveChatSummary
	presence map[string]*models.PresenceRecord
	favs     map[string]map[string]*models.FavouriteRelation

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*models.User),
		usersByName:  make(map[string]*models.User),
		roomMessages: make(map[string][]*models.Message),
		convMessages: make(map[string][]*models.Message),
		chats:        make(map[string]map[string]*models.ActiveChatSummary),
		presence:     make(map[string]*models.PresenceRecord),
		favs:         make(map[string]map[string]*models.FavouriteRelation),
		now:          time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Close() error { return nil }

// Message store

func (s *MemoryStore) AppendRoomMessage(ctx context.Context, zipcode, senderID, senderUsername, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &models.Message{
		ID:             uuid.NewString(),
		Content:        content,
		CreatedAt:      s.now(),
		SenderID:       senderID,
		SenderUsername: senderUsername,
		Scope:          models.ScopeRoom,
		Zipcode:        zipcode,
	}
	s.roomMessages[zipcode] = append(s.roomMessages[zipcode], msg)
	return msg, nil
}

func (s *MemoryStore) RecentRoomMessages(ctx context.Context, zipcode string, limit int) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.roomMessages[zipcode], limit), nil
}

func (s *MemoryStore) AppendPrivateMessage(ctx context.Context, senderID, senderUsername, recipientID, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipient, ok := s.users[recipientID]
	if !ok {
		return nil, apperrors.NotFound("recipient not found")
	}

	convID := models.ConversationID(senderID, recipientID)
	msg := &models.Message{
		ID:             uuid.NewString(),
		Content:        content,
		CreatedAt:      s.now(),
		SenderID:       senderID,
		SenderUsername: senderUsername,
		Scope:          models.ScopePrivate,
		ConversationID: convID,
		RecipientID:    recipientID,
	}
	s.convMessages[convID] = append(s.convMessages[convID], msg)

	// Both summary rows are written under the same lock, so a reader never
	// observes one side without the other.
	s.upsertSummary(senderID, recipientID, recipient.Username, msg.CreatedAt, content, true)
	s.upsertSummary(recipientID, senderID, senderUsername, msg.CreatedAt, content, false)

	return msg, nil
}

func (s *MemoryStore) upsertSummary(ownerID, partnerID, partnerUsername string, at time.Time, content string, fromOwner bool) {
	if s.chats[ownerID] == nil {
		s.chats[ownerID] = make(map[string]*models.ActiveChatSummary)
	}
	s.chats[ownerID][partnerID] = &models.ActiveChatSummary{
		OwnerID:                ownerID,
		PartnerID:              partnerID,
		PartnerUsername:        partnerUsername,
		LastMessageAt:          at,
		LastMessageContent:     content,
		LastMessageIsFromOwner: fromOwner,
	}
}

func (s *MemoryStore) ConversationHistory(ctx context.Context, userID, otherUserID string, limit int) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.convMessages[models.ConversationID(userID, otherUserID)], limit), nil
}

func tail(msgs []*models.Message, limit int) []*models.Message {
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*models.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Presence store

func (s *MemoryStore) TouchPresence(ctx context.Context, userID, username, zipcode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[userID] = &models.PresenceRecord{
		UserID:         userID,
		Username:       username,
		Zipcode:        zipcode,
		LastActivityAt: s.now(),
	}
	return nil
}

func (s *MemoryStore) ActiveUsers(ctx context.Context, zipcode string, ttl time.Duration) ([]*models.PresenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []*models.PresenceRecord
	for _, p := range s.presence {
		if p.Zipcode != zipcode || !p.OnlineAt(now, ttl) {
			continue
		}
		cp := *p
		cp.Online = true
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out, nil
}

func (s *MemoryStore) SweepPresence(ctx context.Context, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, p := range s.presence {
		if !p.OnlineAt(now, ttl) {
			delete(s.presence, id)
			removed++
		}
	}
	return removed, nil
}

// Active chats

func (s *MemoryStore) RecentChats(ctx context.Context, ownerID string, limit int, maxAge time.Duration) ([]*models.ActiveChatSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	var out []*models.ActiveChatSummary
	for _, row := range s.chats[ownerID] {
		if row.LastMessageAt.Before(cutoff) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RebuildActiveChats(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rebuilt := make(map[string]*models.ActiveChatSummary)
	for _, msgs := range s.convMessages {
		for _, m := range msgs {
			var partnerID string
			switch ownerID {
			case m.SenderID:
				partnerID = m.RecipientID
			case m.RecipientID:
				partnerID = m.SenderID
			default:
				continue
			}
			prev := rebuilt[partnerID]
			if prev != nil && !m.CreatedAt.After(prev.LastMessageAt) {
				continue
			}
			partnerUsername := m.SenderUsername
			if m.SenderID == ownerID {
				if partner, ok := s.users[partnerID]; ok {
					partnerUsername = partner.Username
				}
			}
			rebuilt[partnerID] = &models.ActiveChatSummary{
				OwnerID:                ownerID,
				PartnerID:              partnerID,
				PartnerUsername:        partnerUsername,
				LastMessageAt:          m.CreatedAt,
				LastMessageContent:     m.Content,
				LastMessageIsFromOwner: m.SenderID == ownerID,
			}
		}
	}
	s.chats[ownerID] = rebuilt
	return nil
}

// Favourites

func (s *MemoryStore) AddFavourite(ctx context.Context, ownerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.users[targetID]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	if s.favs[ownerID] == nil {
		s.favs[ownerID] = make(map[string]*models.FavouriteRelation)
	}
	if _, exists := s.favs[ownerID][targetID]; exists {
		return nil
	}
	s.favs[ownerID][targetID] = &models.FavouriteRelation{
		OwnerID:           ownerID,
		FavouriteUserID:   targetID,
		FavouriteUsername: target.Username,
		CreatedAt:         s.now(),
	}
	return nil
}

func (s *MemoryStore) RemoveFavourite(ctx context.Context, ownerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.favs[ownerID], targetID)
	return nil
}

func (s *MemoryStore) ListFavourites(ctx context.Context, ownerID string) ([]*models.FavouriteRelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.FavouriteRelation
	for _, f := range s.favs[ownerID] {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) IsFavourite(ctx context.Context, ownerID, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.favs[ownerID][targetID]
	return ok, nil
}

// Users

func (s *MemoryStore) CreateUser(ctx context.Context, username, passcodeHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByName[username]; exists {
		return nil, apperrors.AlreadyExists("username already taken")
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasscodeHash: passcodeHash,
		CreatedAt:    s.now(),
	}
	s.users[user.ID] = user
	s.usersByName[username] = user
	cp := *user
	return &cp, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByName[username]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	cp := *user
	return &cp, nil
}
