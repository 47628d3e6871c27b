package services

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"message-service/internal/models"
	"message-service/internal/repositories"
)

// ProfileResolver looks up users and their organizations, caching the
// result for a short time since every send resolves the sender.
type ProfileResolver struct {
	users repositories.UserDirectory
	cache *expirable.LRU[int64, models.Profile]
}

func NewProfileResolver(users repositories.UserDirectory, size int, ttl time.Duration) *ProfileResolver {
	if size <= 0 {
		size = 1024
	}
	return &ProfileResolver{
		users: users,
		cache: expirable.NewLRU[int64, models.Profile](size, nil, ttl),
	}
}

// Profile returns the user and, for providers, the linked organization.
func (r *ProfileResolver) Profile(ctx context.Context, userID int64) (models.Profile, error) {
	if p, ok := r.cache.Get(userID); ok {
		return p, nil
	}

	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	p := models.Profile{User: user}
	if user.Role == models.RoleTrainingProvider {
		org, err := r.users.OrganizationFor(ctx, userID)
		if err != nil {
			return models.Profile{}, err
		}
		p.Organization = org
	}

	r.cache.Add(userID, p)
	return p, nil
}

// DisplayName resolves the label userID is shown under.
func (r *ProfileResolver) DisplayName(ctx context.Context, userID int64) (string, error) {
	p, err := r.Profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return models.DisplayName(p.User, p.Organization), nil
}

func (r *ProfileResolver) Invalidate(userID int64) {
	r.cache.Remove(userID)
}
