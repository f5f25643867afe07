package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/campushq/help-queue-backend/internal/core/domain"
)

// CreateTicketParams defines the required input for opening a new ticket.
type CreateTicketParams struct {
	Title       string
	Body        string
	RequesterID uuid.UUID
	ActorRole   domain.Role
}

// ClaimTicketParams defines the input for claiming a pending ticket.
type ClaimTicketParams struct {
	TicketID    int64
	ResponderID uuid.UUID
	ActorRole   domain.Role
}

// ResolveTicketParams defines the input for resolving a claimed ticket.
type ResolveTicketParams struct {
	TicketID    int64
	ResponderID uuid.UUID
	ActorRole   domain.Role
}

// TicketService is the claim arbitrator: the single authority through which
// every ticket creation and transition flows. Claim guarantees that for any
// ticket, across any number of concurrent calls, exactly one succeeds; losers
// receive ErrTicketAlreadyClaimed immediately and are never queued or retried.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	ListTickets(ctx context.Context) ([]*domain.Ticket, error)
	Claim(ctx context.Context, params ClaimTicketParams) (*domain.Ticket, error)
	Resolve(ctx context.Context, params ResolveTicketParams) (*domain.Ticket, error)
}

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// EventBroadcaster pushes committed ticket changes to all connected
// observers. Implementations must preserve, per ticket id, the order in
// which Broadcast is called; delivery to any individual observer is
// best-effort.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}
