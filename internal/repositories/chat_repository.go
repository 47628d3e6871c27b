package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"message-service/internal/chathash"
	"message-service/internal/models"
)

const uniqueViolation = "23505"

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	CreateChat(ctx context.Context, userID int64, partnerID int64) (models.Chat, error)
	GetChatByHash(ctx context.Context, chatHash string) (models.Chat, error)
	GetChat(ctx context.Context, chatID int64) (models.Chat, error)
	ListChats(ctx context.Context, userID int64) ([]models.ChatSummary, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

const chatColumns = `id, chat_hash, participant_a, participant_b, created_at`

// CreateChat inserts a chat for the pair. The smaller id becomes participant_a.
// A concurrent insert for the same pair fails with ErrDuplicateConversation.
func (r *ChatRepo) CreateChat(ctx context.Context, userID int64, partnerID int64) (models.Chat, error) {
	hash, err := chathash.Derive(userID, partnerID)
	if err != nil {
		return models.Chat{}, err
	}
	a, b := userID, partnerID
	if a > b {
		a, b = b, a
	}

	var chat models.Chat
	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO chats (chat_hash, participant_a, participant_b) VALUES ($1, $2, $3) RETURNING `+chatColumns,
		hash, a, b).StructScan(&chat)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.Chat{}, models.ErrDuplicateConversation
		}
		return models.Chat{}, fmt.Errorf("insert chat: %w", err)
	}
	return chat, nil
}

// GetChatByHash fetches a chat by its participant hash.
func (r *ChatRepo) GetChatByHash(ctx context.Context, chatHash string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE chat_hash=$1`, chatHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, models.ErrChatNotFound
	}
	return chat, err
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int64) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, models.ErrChatNotFound
	}
	return chat, err
}

// ListChats returns the chat list of a user, most recent activity first.
// Chats whose messages are all hidden for the user are left out.
func (r *ChatRepo) ListChats(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	query := `SELECT c.id, c.chat_hash, c.participant_a, c.participant_b, c.created_at,
            lm.id AS last_message_id, lm.content AS last_message, lm.sender_id AS last_sender_id, lm.send_time AS last_send_time,
            (SELECT COUNT(*) FROM messages um
                JOIN message_visibility uv ON uv.message_id = um.id AND uv.user_id = $1 AND uv.is_visible
                WHERE um.chat_id = c.id AND um.recipient_id = $1 AND um.read_time IS NULL) AS unread_count
        FROM chats c
        LEFT JOIN LATERAL (
            SELECT m.id, m.content, m.sender_id, m.send_time FROM messages m
            JOIN message_visibility v ON v.message_id = m.id AND v.user_id = $1 AND v.is_visible
            WHERE m.chat_id = c.id
            ORDER BY m.send_time DESC, m.id DESC
            LIMIT 1
        ) lm ON TRUE
        WHERE (c.participant_a = $1 OR c.participant_b = $1)
            AND (lm.id IS NOT NULL OR NOT EXISTS (SELECT 1 FROM messages x WHERE x.chat_id = c.id))
        ORDER BY COALESCE(lm.send_time, c.created_at) DESC`

	var result []models.ChatSummary
	if err := r.db.SelectContext(ctx, &result, query, userID); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return result, nil
}
