package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushq/help-queue-backend/internal/core/domain"
	apperrors "github.com/campushq/help-queue-backend/internal/core/errors"
	"github.com/campushq/help-queue-backend/internal/core/ports"
	"github.com/campushq/help-queue-backend/internal/core/utils"
)

// TicketRepository is the secondary adapter for ticket persistence.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, title, body, state, requester_id, responder_id, created_at, resolved_at, version`

// scanTicket maps a database row to a core domain model.
func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		body        pgtype.Text
		requesterID pgtype.UUID
		responderID pgtype.UUID
		createdAt   pgtype.Timestamptz
		resolvedAt  pgtype.Timestamptz
		state       string
	)

	err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&body,
		&state,
		&requesterID,
		&responderID,
		&createdAt,
		&resolvedAt,
		&ticket.Version,
	)
	if err != nil {
		return nil, err
	}

	ticket.Body = utils.FromText(body)
	ticket.State = domain.TicketState(state)
	ticket.CreatedAt = createdAt.Time
	if requesterID.Valid {
		ticket.RequesterID = uuid.UUID(requesterID.Bytes)
	}
	if responderID.Valid {
		responderUUID := uuid.UUID(responderID.Bytes)
		ticket.ResponderID = &responderUUID
	}
	if resolvedAt.Valid {
		resolvedTime := resolvedAt.Time
		ticket.ResolvedAt = &resolvedTime
	}

	return &ticket, nil
}

// Create persists a new ticket entity.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tickets (title, body, state, requester_id, version)
		VALUES ($1, $2, $3, $4, 1)
		RETURNING `+ticketColumns,
		ticket.Title,
		utils.ToText(ticket.Body),
		string(ticket.State),
		pgtype.UUID{Bytes: ticket.RequesterID, Valid: true},
	)
	return scanTicket(row)
}

// GetByID retrieves a single ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE id = $1`,
		id,
	)

	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// List retrieves all tickets, newest first. Ties on created_at are broken by
// id so the ordering is stable across fetches.
func (r *TicketRepository) List(ctx context.Context) ([]*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// CompareAndTransition applies a state change only if the stored state still
// equals the expected state. The precondition lives in the WHERE clause, so
// the check and the write are one atomic statement; two racing claims can
// never both match.
func (r *TicketRepository) CompareAndTransition(ctx context.Context, params ports.TransitionParams) (*domain.Ticket, error) {
	responderID := pgtype.UUID{}
	if params.ResponderID != nil {
		responderID = pgtype.UUID{Bytes: *params.ResponderID, Valid: true}
	}

	resolvedAt := pgtype.Timestamptz{}
	if params.ResolvedAt != nil {
		resolvedAt = pgtype.Timestamptz{Time: *params.ResolvedAt, Valid: true}
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE tickets
		SET state = $1,
		    responder_id = COALESCE($2, responder_id),
		    resolved_at = COALESCE($3, resolved_at),
		    version = version + 1
		WHERE id = $4 AND state = $5
		RETURNING `+ticketColumns,
		string(params.NewState),
		responderID,
		resolvedAt,
		params.TicketID,
		string(params.ExpectedState),
	)

	ticket, err := scanTicket(row)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// No row matched: distinguish a lost race from a missing ticket.
	var exists bool
	if checkErr := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`,
		params.TicketID,
	).Scan(&exists); checkErr != nil {
		return nil, checkErr
	}
	if !exists {
		return nil, apperrors.ErrTicketNotFound
	}
	return nil, apperrors.ErrTicketConflict
}
