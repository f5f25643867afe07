package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/campushq/help-queue-backend/internal/core/domain"
	apperrors "github.com/campushq/help-queue-backend/internal/core/errors"
	"github.com/campushq/help-queue-backend/internal/core/ports"
)

// UserRepository is an in-memory account store for tests and dev mode.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]*domain.User
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates an empty in-memory user store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return nil, apperrors.ErrUserExists
	}

	stored := *user
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = &stored

	result := stored
	return &result, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	result := *user
	return &result, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	result := *user
	return &result, nil
}
