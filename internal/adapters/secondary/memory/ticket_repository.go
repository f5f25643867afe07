package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campushq/help-queue-backend/internal/core/domain"
	apperrors "github.com/campushq/help-queue-backend/internal/core/errors"
	"github.com/campushq/help-queue-backend/internal/core/ports"
)

// TicketRepository is an in-memory ticket store used by unit tests and the
// no-database dev mode. It implements the same CompareAndTransition contract
// as the postgres adapter: the read-check-write sequence runs under one lock,
// so the precondition can never be checked against a state that a concurrent
// writer is about to replace.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[int64]*domain.Ticket
	nextID  int64
}

var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates an empty in-memory ticket store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{
		tickets: make(map[int64]*domain.Ticket),
		nextID:  1,
	}
}

// Create persists a new ticket and assigns its id.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneTicket(ticket)
	stored.ID = r.nextID
	r.nextID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if stored.Version == 0 {
		stored.Version = 1
	}

	r.tickets[stored.ID] = stored
	return cloneTicket(stored), nil
}

// GetByID retrieves a single ticket by its id.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return cloneTicket(ticket), nil
}

// List returns all tickets ordered by createdAt descending, ties broken by
// id descending.
func (r *TicketRepository) List(ctx context.Context) ([]*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tickets := make([]*domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		tickets = append(tickets, cloneTicket(ticket))
	}

	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
		}
		return tickets[i].ID > tickets[j].ID
	})

	return tickets, nil
}

// CompareAndTransition applies the transition iff the stored state equals the
// expected state at the moment of the write.
func (r *TicketRepository) CompareAndTransition(ctx context.Context, params ports.TransitionParams) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[params.TicketID]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}

	if ticket.State != params.ExpectedState {
		return nil, apperrors.ErrTicketConflict
	}

	ticket.State = params.NewState
	if params.ResponderID != nil {
		responderID := *params.ResponderID
		ticket.ResponderID = &responderID
	}
	if params.ResolvedAt != nil {
		resolvedAt := *params.ResolvedAt
		ticket.ResolvedAt = &resolvedAt
	}
	ticket.Version++

	return cloneTicket(ticket), nil
}

// cloneTicket copies a ticket so callers never share memory with the store.
func cloneTicket(ticket *domain.Ticket) *domain.Ticket {
	clone := *ticket
	if ticket.ResponderID != nil {
		responderID := *ticket.ResponderID
		clone.ResponderID = &responderID
	}
	if ticket.ResolvedAt != nil {
		resolvedAt := *ticket.ResolvedAt
		clone.ResolvedAt = &resolvedAt
	}
	return &clone
}
