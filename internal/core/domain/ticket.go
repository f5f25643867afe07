package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/campushq/help-queue-backend/internal/core/errors"
)

// TicketState represents the lifecycle state of a ticket.
type TicketState string

const (
	StatePending  TicketState = "PENDING"
	StateClaimed  TicketState = "CLAIMED"
	StateResolved TicketState = "RESOLVED"
)

// Field length limits enforced at creation.
const (
	MaxTitleLength = 255
	MaxBodyLength  = 5000
)

// stateOrdinals orders the lifecycle. A committed transition may only ever
// increase the ordinal; RESOLVED is terminal.
var stateOrdinals = map[TicketState]int{
	StatePending:  0,
	StateClaimed:  1,
	StateResolved: 2,
}

// Ordinal returns the position of s in the lifecycle, or -1 for an unknown state.
func (s TicketState) Ordinal() int {
	ordinal, ok := stateOrdinals[s]
	if !ok {
		return -1
	}
	return ordinal
}

// IsValid reports whether s is a known lifecycle state.
func (s TicketState) IsValid() bool {
	return s.Ordinal() >= 0
}

// validTransitions is the full transition table. Anything not listed here is
// rejected, which makes RESOLVED terminal and forbids skipping CLAIMED.
var validTransitions = map[TicketState][]TicketState{
	StatePending:  {StateClaimed},
	StateClaimed:  {StateResolved},
	StateResolved: {},
}

// CanTransition reports whether the lifecycle permits moving from one state
// to another.
func CanTransition(from, to TicketState) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Ticket is the core domain entity: a help request routed from a requester
// (student) to a responder (mentor).
type Ticket struct {
	ID          int64
	Title       string
	Body        string
	State       TicketState
	RequesterID uuid.UUID
	ResponderID *uuid.UUID
	CreatedAt   time.Time
	ResolvedAt  *time.Time

	// Version counts committed transitions. Observers use it to discard a
	// record delivered after a newer one for the same id.
	Version int64
}

// TicketParams carries the caller-supplied fields for a new ticket.
type TicketParams struct {
	Title       string
	Body        string
	RequesterID uuid.UUID
}

// NewTicket validates params and builds a ticket in the PENDING state.
func NewTicket(params TicketParams) (*Ticket, error) {
	if params.Title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(params.Title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if len(params.Body) > MaxBodyLength {
		return nil, apperrors.ErrBodyTooLong
	}
	if params.RequesterID == uuid.Nil {
		return nil, apperrors.ErrRequesterRequired
	}

	return &Ticket{
		Title:       params.Title,
		Body:        params.Body,
		State:       StatePending,
		RequesterID: params.RequesterID,
		CreatedAt:   time.Now().UTC(),
		Version:     1,
	}, nil
}

// Claim moves the ticket from PENDING to CLAIMED and records the responder.
// This validates against the in-memory copy only; the store re-checks the
// same precondition atomically via CompareAndTransition.
func (t *Ticket) Claim(responderID uuid.UUID) error {
	if responderID == uuid.Nil {
		return apperrors.ErrResponderRequired
	}
	if !CanTransition(t.State, StateClaimed) {
		return apperrors.ErrTicketAlreadyClaimed
	}

	t.State = StateClaimed
	t.ResponderID = &responderID
	t.Version++
	return nil
}

// Resolve moves the ticket from CLAIMED to RESOLVED. Only the responder who
// claimed the ticket may resolve it.
func (t *Ticket) Resolve(responderID uuid.UUID) error {
	if !CanTransition(t.State, StateResolved) {
		return apperrors.ErrInvalidStateTransition
	}
	if t.ResponderID == nil || *t.ResponderID != responderID {
		return apperrors.ErrNotClaimer
	}

	now := time.Now().UTC()
	t.State = StateResolved
	t.ResolvedAt = &now
	t.Version++
	return nil
}

// IsRequestedBy reports whether the given user created this ticket.
func (t *Ticket) IsRequestedBy(userID uuid.UUID) bool {
	return t.RequesterID == userID
}

// IsClaimedBy reports whether the given user is the responder on this ticket.
func (t *Ticket) IsClaimedBy(userID uuid.UUID) bool {
	return t.ResponderID != nil && *t.ResponderID == userID
}

// CheckInvariants verifies the structural invariants every committed ticket
// record must satisfy: a responder is present iff the ticket has been
// claimed, and a resolution timestamp is present iff it has been resolved.
func (t *Ticket) CheckInvariants() error {
	hasResponder := t.ResponderID != nil
	wantResponder := t.State == StateClaimed || t.State == StateResolved
	if hasResponder != wantResponder {
		return apperrors.ErrInvalidTicketRecord
	}

	if (t.ResolvedAt != nil) != (t.State == StateResolved) {
		return apperrors.ErrInvalidTicketRecord
	}

	if !t.State.IsValid() {
		return apperrors.ErrInvalidTicketRecord
	}
	return nil
}
