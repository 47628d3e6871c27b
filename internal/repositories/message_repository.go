package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"message-service/internal/models"
)

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	AppendMessage(ctx context.Context, chat models.Chat, senderID int64, content string) (models.Message, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	ListVisibleMessages(ctx context.Context, chatID int64, userID int64, q models.MessageQuery) ([]models.Message, error)
	MarkRead(ctx context.Context, chatID int64, readerID int64) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_id, sender_id, recipient_id, content, send_time, read_time`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// AppendMessage stores a message from senderID and one visible row per
// participant in a single transaction. The chat row is locked so sends in
// one chat commit in send_time order.
func (r *MessageRepo) AppendMessage(ctx context.Context, chat models.Chat, senderID int64, content string) (msg models.Message, err error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, models.ErrEmptyMessage
	}
	recipientID, err := chat.Other(senderID)
	if err != nil {
		return models.Message{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var lockedID int64
	if err = tx.QueryRowxContext(ctx, `SELECT id FROM chats WHERE id=$1 FOR UPDATE`, chat.ID).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = models.ErrChatNotFound
			return models.Message{}, err
		}
		return models.Message{}, fmt.Errorf("lock chat: %w", err)
	}

	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (chat_id, sender_id, recipient_id, content, send_time) VALUES ($1, $2, $3, $4, clock_timestamp()) RETURNING `+messageColumns,
		chat.ID, senderID, recipientID, content).StructScan(&msg); err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}

	for _, userID := range []int64{senderID, recipientID} {
		if err = insertVisibility(ctx, tx, userID, msg.ID); err != nil {
			return models.Message{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, fmt.Errorf("commit: %w", err)
	}
	return msg, nil
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, models.ErrMessageNotFound
	}
	return msg, err
}

// ListVisibleMessages returns the chat's messages that userID has not hidden,
// oldest first. With a limit, the newest page before q.BeforeID is returned.
func (r *MessageRepo) ListVisibleMessages(ctx context.Context, chatID int64, userID int64, q models.MessageQuery) ([]models.Message, error) {
	query := psql.
		Select("m.id", "m.chat_id", "m.sender_id", "m.recipient_id", "m.content", "m.send_time", "m.read_time").
		From("messages m").
		Join("message_visibility v ON v.message_id = m.id").
		Where(sq.Eq{"m.chat_id": chatID}).
		Where(sq.Eq{"v.user_id": userID}).
		Where(sq.Eq{"v.is_visible": true})
	if q.BeforeID > 0 {
		query = query.Where(sq.Lt{"m.id": q.BeforeID})
	}
	if q.Limit > 0 {
		query = query.OrderBy("m.send_time DESC", "m.id DESC").Limit(uint64(q.Limit))
	} else {
		query = query.OrderBy("m.send_time ASC", "m.id ASC")
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, sqlStr, args...); err != nil {
		return nil, err
	}
	if q.Limit > 0 {
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	}
	return msgs, nil
}

// MarkRead stamps read_time on unread messages addressed to readerID.
func (r *MessageRepo) MarkRead(ctx context.Context, chatID int64, readerID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read_time = NOW() WHERE chat_id=$1 AND recipient_id=$2 AND read_time IS NULL`,
		chatID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
