package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"message-service/internal/models"
)

// VisibilityRepository manages the per-user soft-delete ledger.
// Rows are only ever flipped for the acting user.
type VisibilityRepository interface {
	HideMessage(ctx context.Context, userID int64, messageID int64) error
	HideChat(ctx context.Context, userID int64, chatID int64) (int64, error)
	GetVisibility(ctx context.Context, userID int64, messageID int64) (models.MessageVisibility, error)
}

// VisibilityRepo is a sqlx implementation of VisibilityRepository.
type VisibilityRepo struct {
	db *sqlx.DB
}

// NewVisibilityRepo constructs a VisibilityRepo.
func NewVisibilityRepo(db *sqlx.DB) *VisibilityRepo {
	return &VisibilityRepo{db: db}
}

func insertVisibility(ctx context.Context, tx sqlx.ExecerContext, userID int64, messageID int64) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO message_visibility (user_id, message_id, is_visible) VALUES ($1, $2, TRUE)`,
		userID, messageID); err != nil {
		return fmt.Errorf("insert visibility for user %d: %w", userID, err)
	}
	return nil
}

// HideMessage marks a message hidden for the user, creating the row if absent.
func (r *VisibilityRepo) HideMessage(ctx context.Context, userID int64, messageID int64) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_visibility (user_id, message_id, is_visible) VALUES ($1, $2, FALSE)
        ON CONFLICT (user_id, message_id) DO UPDATE SET is_visible = FALSE`, userID, messageID)
	return err
}

// HideChat hides every message of the chat for the user and returns how many rows changed.
func (r *VisibilityRepo) HideChat(ctx context.Context, userID int64, chatID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO message_visibility (user_id, message_id, is_visible)
        SELECT $1, m.id, FALSE FROM messages m WHERE m.chat_id = $2
        ON CONFLICT (user_id, message_id) DO UPDATE SET is_visible = FALSE`, userID, chatID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetVisibility returns the user's row for a message.
func (r *VisibilityRepo) GetVisibility(ctx context.Context, userID int64, messageID int64) (models.MessageVisibility, error) {
	var v models.MessageVisibility
	err := r.db.GetContext(ctx, &v, `SELECT user_id, message_id, is_visible FROM message_visibility WHERE user_id=$1 AND message_id=$2`, userID, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageVisibility{}, models.ErrMessageNotFound
	}
	return v, err
}
