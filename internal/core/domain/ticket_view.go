package domain

import "sort"

// TicketView is an observer's local replica of the ticket list. It is built
// from one full fetch and then kept current by applying fanout events.
//
// Apply is idempotent and tolerant of duplicates: a created event inserts
// only if the id is absent, a transitioned event replaces by id only when the
// incoming record's version is newer. Applying the same event twice, or an
// old record after a newer one, leaves the view unchanged.
type TicketView struct {
	tickets map[int64]TicketSnapshot
}

// NewTicketView creates an empty view.
func NewTicketView() *TicketView {
	return &TicketView{tickets: make(map[int64]TicketSnapshot)}
}

// Reset discards the view and replaces it with the result of a full fetch.
// Any events buffered from before the fetch must be dropped by the caller.
func (v *TicketView) Reset(tickets []TicketSnapshot) {
	v.tickets = make(map[int64]TicketSnapshot, len(tickets))
	for _, ticket := range tickets {
		v.tickets[ticket.ID] = ticket
	}
}

// Apply folds a fanout event into the view.
func (v *TicketView) Apply(event Event) {
	incoming := event.Ticket

	current, exists := v.tickets[incoming.ID]
	switch event.Type {
	case EventTicketCreated:
		if exists {
			return // duplicate delivery
		}
		v.tickets[incoming.ID] = incoming

	case EventTicketTransitioned:
		if exists && current.Version >= incoming.Version {
			return // duplicate or stale record
		}
		v.tickets[incoming.ID] = incoming
	}
}

// Get returns the ticket with the given id, if present.
func (v *TicketView) Get(id int64) (TicketSnapshot, bool) {
	ticket, ok := v.tickets[id]
	return ticket, ok
}

// Len returns the number of tickets in the view.
func (v *TicketView) Len() int {
	return len(v.tickets)
}

// List returns the tickets ordered newest first, ties broken by id, matching
// the store's List ordering so a rebuilt view renders identically.
func (v *TicketView) List() []TicketSnapshot {
	tickets := make([]TicketSnapshot, 0, len(v.tickets))
	for _, ticket := range v.tickets {
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt != tickets[j].CreatedAt {
			return tickets[i].CreatedAt > tickets[j].CreatedAt
		}
		return tickets[i].ID > tickets[j].ID
	})
	return tickets
}
