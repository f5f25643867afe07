package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/help-queue-backend/internal/core/domain"
)

// TransitionParams describes a conditional state change. ExpectedState is the
// precondition: the store applies the mutation only if the ticket is still in
// that state at the moment of the write.
type TransitionParams struct {
	TicketID      int64
	ExpectedState domain.TicketState
	NewState      domain.TicketState

	// ResponderID is set when transitioning to CLAIMED.
	ResponderID *uuid.UUID

	// ResolvedAt is set when transitioning to RESOLVED.
	ResolvedAt *time.Time
}

// TicketRepository is the authoritative ticket store. CompareAndTransition is
// the only mutator after creation; there is no unconditional update path, so
// every state change carries its precondition into the store.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)

	// GetByID returns apperrors.ErrTicketNotFound for an unknown id.
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)

	// List returns all tickets ordered by createdAt descending, ties broken
	// by id descending.
	List(ctx context.Context) ([]*domain.Ticket, error)

	// CompareAndTransition atomically applies the transition if the stored
	// state equals ExpectedState. Returns apperrors.ErrTicketConflict when
	// the precondition fails and apperrors.ErrTicketNotFound for an unknown
	// id. The write never partially applies.
	CompareAndTransition(ctx context.Context, params TransitionParams) (*domain.Ticket, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
