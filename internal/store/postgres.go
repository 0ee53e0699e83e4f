package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zipchat/internal/models"
	"zipchat/pkg/apperrors"
	"zipchat/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Connected to database successfully")
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			passcode_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS room_messages (
			seq BIGSERIAL,
			id UUID PRIMARY KEY,
			zipcode TEXT NOT NULL,
			sender_id UUID NOT NULL,
			sender_username TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_room_messages_order
			ON room_messages (zipcode, created_at, seq);
		CREATE TABLE IF NOT EXISTS private_messages (
			seq BIGSERIAL,
			id UUID PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_id UUID NOT NULL,
			recipient_id UUID NOT NULL,
			sender_username TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_private_messages_order
			ON private_messages (conversation_id, created_at, seq);
		CREATE TABLE IF NOT EXISTS active_chats (
			owner_id UUID NOT NULL,
			partner_id UUID NOT NULL,
			partner_username TEXT NOT NULL,
			last_message_at TIMESTAMPTZ NOT NULL,
			last_message_content TEXT NOT NULL,
			last_message_is_from_owner BOOLEAN NOT NULL,
			PRIMARY KEY (owner_id, partner_id)
		);
		CREATE TABLE IF NOT EXISTS user_presence (
			user_id UUID PRIMARY KEY,
			username TEXT NOT NULL,
			zipcode TEXT NOT NULL,
			last_activity_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_user_presence_room
			ON user_presence (zipcode, last_activity_at);
		CREATE TABLE IF NOT EXISTS favourites (
			owner_id UUID NOT NULL,
			favourite_user_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (owner_id, favourite_user_id)
		);`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Message store implementation

func (s *PostgresStore) AppendRoomMessage(ctx context.Context, zipcode, senderID, senderUsername, content string) (*models.Message, error) {
	query := `
		INSERT INTO room_messages (id, zipcode, sender_id, sender_username, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	msg := &models.Message{
		ID:             uuid.NewString(),
		Content:        content,
		SenderID:       senderID,
		SenderUsername: senderUsername,
		Scope:          models.ScopeRoom,
		Zipcode:        zipcode,
	}
	err := s.pool.QueryRow(ctx, query, msg.ID, zipcode, senderID, senderUsername, content).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to save room message", err)
	}
	return msg, nil
}

func (s *PostgresStore) RecentRoomMessages(ctx context.Context, zipcode string, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, sender_id, sender_username, content, created_at
		FROM room_messages
		WHERE zipcode = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, zipcode, limit)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to load room messages", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{Scope: models.ScopeRoom, Zipcode: zipcode}
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.SenderUsername, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (s *PostgresStore) AppendPrivateMessage(ctx context.Context, senderID, senderUsername, recipientID, content string) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var recipientUsername string
	err = tx.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, recipientID).Scan(&recipientUsername)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("recipient not found")
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to resolve recipient", err)
	}

	convID := models.ConversationID(senderID, recipientID)
	msg := &models.Message{
		ID:             uuid.NewString(),
		Content:        content,
		SenderID:       senderID,
		SenderUsername: senderUsername,
		Scope:          models.ScopePrivate,
		ConversationID: convID,
		RecipientID:    recipientID,
	}

	insertMsg := `
		INSERT INTO private_messages (id, conversation_id, sender_id, recipient_id, sender_username, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	if err := tx.QueryRow(ctx, insertMsg, msg.ID, convID, senderID, recipientID, senderUsername, content).Scan(&msg.CreatedAt); err != nil {
		return nil, apperrors.StoreUnavailable("failed to save private message", err)
	}

	// Both summary rows go through the same transaction: either both land or
	// neither does.
	upsert := `
		INSERT INTO active_chats (owner_id, partner_id, partner_username, last_message_at, last_message_content, last_message_is_from_owner)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_id, partner_id) DO UPDATE SET
			partner_username = EXCLUDED.partner_username,
			last_message_at = EXCLUDED.last_message_at,
			last_message_content = EXCLUDED.last_message_content,
			last_message_is_from_owner = EXCLUDED.last_message_is_from_owner`
	if _, err := tx.Exec(ctx, upsert, senderID, recipientID, recipientUsername, msg.CreatedAt, content, true); err != nil {
		return nil, apperrors.StoreUnavailable("failed to update sender chat summary", err)
	}
	if _, err := tx.Exec(ctx, upsert, recipientID, senderID, senderUsername, msg.CreatedAt, content, false); err != nil {
		return nil, apperrors.StoreUnavailable("failed to update recipient chat summary", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.StoreUnavailable("failed to commit private message", err)
	}
	return msg, nil
}

func (s *PostgresStore) ConversationHistory(ctx context.Context, userID, otherUserID string, limit int) ([]*models.Message, error) {
	convID := models.ConversationID(userID, otherUserID)
	query := `
		SELECT id, sender_id, recipient_id, sender_username, content, created_at
		FROM private_messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, convID, limit)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to load conversation history", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{Scope: models.ScopePrivate, ConversationID: convID}
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.SenderUsername, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// Presence store implementation

func (s *PostgresStore) TouchPresence(ctx context.Context, userID, username, zipcode string) error {
	query := `
		INSERT INTO user_presence (user_id, username, zipcode, last_activity_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			zipcode = EXCLUDED.zipcode,
			last_activity_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, userID, username, zipcode); err != nil {
		return apperrors.StoreUnavailable("failed to touch presence", err)
	}
	return nil
}

func (s *PostgresStore) ActiveUsers(ctx context.Context, zipcode string, ttl time.Duration) ([]*models.PresenceRecord, error) {
	query := `
		SELECT user_id, username, zipcode, last_activity_at
		FROM user_presence
		WHERE zipcode = $1 AND last_activity_at > $2
		ORDER BY last_activity_at DESC`

	cutoff := time.Now().Add(-ttl)
	rows, err := s.pool.Query(ctx, query, zipcode, cutoff)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to load active users", err)
	}
	defer rows.Close()

	var users []*models.PresenceRecord
	for rows.Next() {
		p := &models.PresenceRecord{Online: true}
		if err := rows.Scan(&p.UserID, &p.Username, &p.Zipcode, &p.LastActivityAt); err != nil {
			return nil, err
		}
		users = append(users, p)
	}

	return users, nil
}

func (s *PostgresStore) SweepPresence(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_presence WHERE last_activity_at <= $1`, cutoff)
	if err != nil {
		return 0, apperrors.StoreUnavailable("failed to sweep presence", err)
	}
	return int(tag.RowsAffected()), nil
}

// Active chat store implementation

func (s *PostgresStore) RecentChats(ctx context.Context, ownerID string, limit int, maxAge time.Duration) ([]*models.ActiveChatSummary, error) {
	query := `
		SELECT owner_id, partner_id, partner_username, last_message_at, last_message_content, last_message_is_from_owner
		FROM active_chats
		WHERE owner_id = $1 AND last_message_at >= $2
		ORDER BY last_message_at DESC
		LIMIT $3`

	cutoff := time.Now().Add(-maxAge)
	rows, err := s.pool.Query(ctx, query, ownerID, cutoff, limit)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to load recent chats", err)
	}
	defer rows.Close()

	var chats []*models.ActiveChatSummary
	for rows.Next() {
		row := &models.ActiveChatSummary{}
		if err := rows.Scan(&row.OwnerID, &row.PartnerID, &row.PartnerUsername, &row.LastMessageAt, &row.LastMessageContent, &row.LastMessageIsFromOwner); err != nil {
			return nil, err
		}
		chats = append(chats, row)
	}

	return chats, nil
}

func (s *PostgresStore) RebuildActiveChats(ctx context.Context, ownerID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.StoreUnavailable("failed to begin rebuild", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM active_chats WHERE owner_id = $1`, ownerID); err != nil {
		return apperrors.StoreUnavailable("failed to clear chat summaries", err)
	}

	rebuild := `
		INSERT INTO active_chats (owner_id, partner_id, partner_username, last_message_at, last_message_content, last_message_is_from_owner)
		SELECT $1, m.partner_id, u.username, m.created_at, m.content, m.from_owner
		FROM (
			SELECT DISTINCT ON (partner_id) *
			FROM (
				SELECT
					CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS partner_id,
					created_at, seq, content,
					sender_id = $1 AS from_owner
				FROM private_messages
				WHERE sender_id = $1 OR recipient_id = $1
			) conv
			ORDER BY partner_id, created_at DESC, seq DESC
		) m
		JOIN users u ON u.id = m.partner_id`
	if _, err := tx.Exec(ctx, rebuild, ownerID); err != nil {
		return apperrors.StoreUnavailable("failed to rebuild chat summaries", err)
	}

	return tx.Commit(ctx)
}

// Favourite store implementation

func (s *PostgresStore) AddFavourite(ctx context.Context, ownerID, targetID string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, targetID).Scan(&exists); err != nil {
		return apperrors.StoreUnavailable("failed to check user", err)
	}
	if !exists {
		return apperrors.NotFound("user not found")
	}

	query := `
		INSERT INTO favourites (owner_id, favourite_user_id) VALUES ($1, $2)
		ON CONFLICT (owner_id, favourite_user_id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, ownerID, targetID); err != nil {
		return apperrors.StoreUnavailable("failed to add favourite", err)
	}
	return nil
}

func (s *PostgresStore) RemoveFavourite(ctx context.Context, ownerID, targetID string) error {
	query := `DELETE FROM favourites WHERE owner_id = $1 AND favourite_user_id = $2`
	if _, err := s.pool.Exec(ctx, query, ownerID, targetID); err != nil {
		return apperrors.StoreUnavailable("failed to remove favourite", err)
	}
	return nil
}

func (s *PostgresStore) ListFavourites(ctx context.Context, ownerID string) ([]*models.FavouriteRelation, error) {
	query := `
		SELECT f.owner_id, f.favourite_user_id, u.username, f.created_at
		FROM favourites f
		JOIN users u ON f.favourite_user_id = u.id
		WHERE f.owner_id = $1
		ORDER BY f.created_at DESC`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to list favourites", err)
	}
	defer rows.Close()

	var favs []*models.FavouriteRelation
	for rows.Next() {
		f := &models.FavouriteRelation{}
		if err := rows.Scan(&f.OwnerID, &f.FavouriteUserID, &f.FavouriteUsername, &f.CreatedAt); err != nil {
			return nil, err
		}
		favs = append(favs, f)
	}

	return favs, nil
}

func (s *PostgresStore) IsFavourite(ctx context.Context, ownerID, targetID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM favourites WHERE owner_id = $1 AND favourite_user_id = $2)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, ownerID, targetID).Scan(&exists)
	return exists, err
}

// User store implementation

func (s *PostgresStore) CreateUser(ctx context.Context, username, passcodeHash string) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, passcode_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
		RETURNING created_at`

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasscodeHash: passcodeHash,
	}
	err := s.pool.QueryRow(ctx, query, user.ID, username, passcodeHash).Scan(&user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.AlreadyExists("username already taken")
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to create user", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, passcode_hash, created_at FROM users WHERE username = $1`

	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &user.PasscodeHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, username, passcode_hash, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Username, &user.PasscodeHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
