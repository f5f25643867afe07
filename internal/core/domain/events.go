package domain

import (
	"strconv"
	"time"
)

// EventType defines the type of real-time event.
type EventType string

const (
	EventTicketCreated      EventType = "TICKET_CREATED"
	EventTicketTransitioned EventType = "TICKET_TRANSITIONED"
)

// Event is the payload pushed over WebSocket after every committed ticket
// change. The snapshot carries the full record so observers never have to
// merge partial updates.
type Event struct {
	Type     EventType      `json:"type"`
	TicketID int64          `json:"ticketId"`
	Ticket   TicketSnapshot `json:"ticket"`
}

// TicketSnapshot matches the API response shape for tickets.
type TicketSnapshot struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	State       string  `json:"state"`
	RequesterID string  `json:"requesterId"`
	ResponderID *string `json:"responderId"`
	CreatedAt   string  `json:"createdAt"`
	ResolvedAt  *string `json:"resolvedAt"`
	Version     int64   `json:"version"`
}

// NewTicketSnapshot builds a ticket snapshot from a domain ticket.
func NewTicketSnapshot(ticket *Ticket) TicketSnapshot {
	var responderID *string
	if ticket.ResponderID != nil {
		value := ticket.ResponderID.String()
		responderID = &value
	}

	var resolvedAt *string
	if ticket.ResolvedAt != nil {
		value := ticket.ResolvedAt.UTC().Format(time.RFC3339)
		resolvedAt = &value
	}

	return TicketSnapshot{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Body:        ticket.Body,
		State:       string(ticket.State),
		RequesterID: ticket.RequesterID.String(),
		ResponderID: responderID,
		CreatedAt:   ticket.CreatedAt.UTC().Format(time.RFC3339),
		ResolvedAt:  resolvedAt,
		Version:     ticket.Version,
	}
}

// NewTicketCreatedEvent builds the event broadcast after a successful create.
func NewTicketCreatedEvent(ticket *Ticket) Event {
	return Event{
		Type:     EventTicketCreated,
		TicketID: ticket.ID,
		Ticket:   NewTicketSnapshot(ticket),
	}
}

// NewTicketTransitionedEvent builds the event broadcast after a successful
// claim or resolve.
func NewTicketTransitionedEvent(ticket *Ticket) Event {
	return Event{
		Type:     EventTicketTransitioned,
		TicketID: ticket.ID,
		Ticket:   NewTicketSnapshot(ticket),
	}
}

// Key returns a stable identity string for logging.
func (e Event) Key() string {
	return string(e.Type) + ":" + strconv.FormatInt(e.TicketID, 10)
}
