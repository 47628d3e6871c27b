package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"message-service/internal/models"
)

// UserDirectory is the read-only view of accounts the chat service consumes.
type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (models.User, error)
	OrganizationFor(ctx context.Context, userID int64) (*models.Organization, error)
}

// UserRepo reads accounts and provider profiles.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches an account by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int64) (models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT id, username, full_name, role FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	return u, err
}

// OrganizationFor returns the provider profile linked to the user, or nil.
func (r *UserRepo) OrganizationFor(ctx context.Context, userID int64) (*models.Organization, error) {
	var org models.Organization
	err := r.db.GetContext(ctx, &org, `SELECT user_id, name FROM provider_profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}
