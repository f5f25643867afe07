package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/campushq/help-queue-backend/internal/core/domain"
	apperrors "github.com/campushq/help-queue-backend/internal/core/errors"
	"github.com/campushq/help-queue-backend/internal/core/ports"
	"github.com/campushq/help-queue-backend/internal/observability"
)

// TicketService is the claim arbitrator. All ticket writes flow through it:
// it validates transitions against the lifecycle table, commits them through
// the store's CompareAndTransition primitive, and hands every committed
// record to the broadcaster before returning to the caller. The broadcaster
// is called synchronously so enqueue order matches commit order per ticket.
type TicketService struct {
	ticketRepo  ports.TicketRepository
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service
func NewTicketService(
	ticketRepo ports.TicketRepository,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) *TicketService {
	return &TicketService{
		ticketRepo:  ticketRepo,
		broadcaster: broadcaster,
		logger:      logger.With("component", "ticket_service"),
	}
}

// CreateTicket handles the use case for a student opening a new ticket.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	if params.ActorRole != domain.RoleStudent {
		return nil, apperrors.ErrForbidden
	}

	ticket, err := domain.NewTicket(domain.TicketParams{
		Title:       params.Title,
		Body:        params.Body,
		RequesterID: params.RequesterID,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.ticketRepo.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	observability.TicketsCreated.Inc()
	s.broadcast(domain.NewTicketCreatedEvent(created))

	return created, nil
}

// GetTicket returns a single ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return s.ticketRepo.GetByID(ctx, ticketID)
}

// ListTickets returns the full queue, newest first. This is also the resync
// path an observer uses after (re)connecting.
func (s *TicketService) ListTickets(ctx context.Context) ([]*domain.Ticket, error) {
	return s.ticketRepo.List(ctx)
}

// Claim attempts to claim a pending ticket for a mentor. Among any number of
// concurrent claims on the same ticket, exactly one succeeds; every other
// caller gets ErrTicketAlreadyClaimed and decides for itself whether to pick
// a different ticket. There is no retry loop here: contention is resolved by
// rejection, not queuing.
func (s *TicketService) Claim(ctx context.Context, params ports.ClaimTicketParams) (*domain.Ticket, error) {
	if params.ActorRole != domain.RoleMentor {
		return nil, apperrors.ErrForbidden
	}

	ticket, err := s.ticketRepo.GetByID(ctx, params.TicketID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			observability.ClaimAttempts.WithLabelValues(observability.OutcomeNotFound).Inc()
		}
		return nil, err
	}

	// Fast reject: no store write is attempted for a ticket that is already
	// past PENDING.
	if ticket.State != domain.StatePending {
		observability.ClaimAttempts.WithLabelValues(observability.OutcomeConflict).Inc()
		return nil, apperrors.ErrTicketAlreadyClaimed
	}

	responderID := params.ResponderID
	claimed, err := s.ticketRepo.CompareAndTransition(ctx, ports.TransitionParams{
		TicketID:      params.TicketID,
		ExpectedState: domain.StatePending,
		NewState:      domain.StateClaimed,
		ResponderID:   &responderID,
	})
	if err != nil {
		// A concurrent claim won between our read and the conditional write.
		if errors.Is(err, apperrors.ErrTicketConflict) {
			observability.ClaimAttempts.WithLabelValues(observability.OutcomeConflict).Inc()
			return nil, apperrors.ErrTicketAlreadyClaimed
		}
		return nil, err
	}

	observability.ClaimAttempts.WithLabelValues(observability.OutcomeWon).Inc()
	s.logger.Info("ticket claimed",
		"ticket_id", claimed.ID,
		"responder_id", responderID,
	)

	s.broadcast(domain.NewTicketTransitionedEvent(claimed))

	return claimed, nil
}

// Resolve marks a claimed ticket as resolved. Only the responder who claimed
// the ticket may resolve it; anyone else gets ErrNotClaimer regardless of the
// ticket's state, and a resolve against a non-CLAIMED state is rejected
// without mutating anything.
func (s *TicketService) Resolve(ctx context.Context, params ports.ResolveTicketParams) (*domain.Ticket, error) {
	if params.ActorRole != domain.RoleMentor {
		return nil, apperrors.ErrForbidden
	}

	ticket, err := s.ticketRepo.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}

	if ticket.State != domain.StateClaimed {
		return nil, apperrors.ErrInvalidStateTransition
	}
	if !ticket.IsClaimedBy(params.ResponderID) {
		return nil, apperrors.ErrNotClaimer
	}

	resolvedAt := time.Now().UTC()
	resolved, err := s.ticketRepo.CompareAndTransition(ctx, ports.TransitionParams{
		TicketID:      params.TicketID,
		ExpectedState: domain.StateClaimed,
		NewState:      domain.StateResolved,
		ResolvedAt:    &resolvedAt,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketConflict) {
			return nil, apperrors.ErrInvalidStateTransition
		}
		return nil, err
	}

	observability.TicketsResolved.Inc()
	s.logger.Info("ticket resolved",
		"ticket_id", resolved.ID,
		"responder_id", params.ResponderID,
	)

	s.broadcast(domain.NewTicketTransitionedEvent(resolved))

	return resolved, nil
}

// broadcast hands a committed record to the fanout. Failures are logged and
// swallowed: the commit already happened, and a disconnected observer will
// catch up via a full re-fetch.
func (s *TicketService) broadcast(event domain.Event) {
	observability.EventsBroadcast.WithLabelValues(string(event.Type)).Inc()
	if err := s.broadcaster.Broadcast(event); err != nil {
		s.logger.Warn("failed to broadcast event",
			"event", event.Key(),
			"error", err,
		)
	}
}
