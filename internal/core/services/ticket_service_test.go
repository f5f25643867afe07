package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campushq/help-queue-backend/internal/adapters/secondary/memory"
	"github.com/campushq/help-queue-backend/internal/core/domain"
	apperrors "github.com/campushq/help-queue-backend/internal/core/errors"
	"github.com/campushq/help-queue-backend/internal/core/mocks"
	"github.com/campushq/help-queue-backend/internal/core/ports"
	"github.com/campushq/help-queue-backend/internal/core/services"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTicketService_CreateTicket(t *testing.T) {
	ctx := context.Background()
	studentID := uuid.New()

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Ticket")).
			Return(&domain.Ticket{
				ID:          1,
				Title:       "Stuck on pointers",
				Body:        "Segfault in exercise 2",
				State:       domain.StatePending,
				RequesterID: studentID,
				Version:     1,
			}, nil)
		mockBroadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventTicketCreated && e.TicketID == 1
		})).Return(nil)

		params := ports.CreateTicketParams{
			Title:       "Stuck on pointers",
			Body:        "Segfault in exercise 2",
			RequesterID: studentID,
			ActorRole:   domain.RoleStudent,
		}

		ticket, err := svc.CreateTicket(ctx, params)

		require.NoError(t, err)
		assert.Equal(t, int64(1), ticket.ID)
		assert.Equal(t, domain.StatePending, ticket.State)

		mockRepo.AssertExpectations(t)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("mentors cannot open tickets", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		params := ports.CreateTicketParams{
			Title:       "Stuck on pointers",
			RequesterID: studentID,
			ActorRole:   domain.RoleMentor,
		}

		ticket, err := svc.CreateTicket(ctx, params)

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("validation error for empty title", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		params := ports.CreateTicketParams{
			Title:       "",
			RequesterID: studentID,
			ActorRole:   domain.RoleStudent,
		}

		ticket, err := svc.CreateTicket(ctx, params)

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrTitleRequired)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("broadcast failure does not fail the create", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Ticket")).
			Return(&domain.Ticket{ID: 1, Title: "T", State: domain.StatePending, RequesterID: studentID, Version: 1}, nil)
		mockBroadcaster.On("Broadcast", mock.Anything).Return(assert.AnError)

		ticket, err := svc.CreateTicket(ctx, ports.CreateTicketParams{
			Title:       "T",
			RequesterID: studentID,
			ActorRole:   domain.RoleStudent,
		})

		require.NoError(t, err)
		assert.NotNil(t, ticket)
	})
}

func TestTicketService_Claim(t *testing.T) {
	ctx := context.Background()
	mentorID := uuid.New()
	studentID := uuid.New()
	ticketID := int64(1)

	pendingTicket := func() *domain.Ticket {
		return &domain.Ticket{
			ID:          ticketID,
			Title:       "Help",
			State:       domain.StatePending,
			RequesterID: studentID,
			Version:     1,
		}
	}

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		claimed := pendingTicket()
		claimed.State = domain.StateClaimed
		claimed.ResponderID = &mentorID
		claimed.Version = 2

		mockRepo.On("GetByID", ctx, ticketID).Return(pendingTicket(), nil)
		mockRepo.On("CompareAndTransition", ctx, mock.MatchedBy(func(p ports.TransitionParams) bool {
			return p.TicketID == ticketID &&
				p.ExpectedState == domain.StatePending &&
				p.NewState == domain.StateClaimed &&
				p.ResponderID != nil && *p.ResponderID == mentorID
		})).Return(claimed, nil)
		mockBroadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventTicketTransitioned && e.Ticket.Version == 2
		})).Return(nil)

		ticket, err := svc.Claim(ctx, ports.ClaimTicketParams{
			TicketID:    ticketID,
			ResponderID: mentorID,
			ActorRole:   domain.RoleMentor,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StateClaimed, ticket.State)
		mockRepo.AssertExpectations(t)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("students cannot claim", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		ticket, err := svc.Claim(ctx, ports.ClaimTicketParams{
			TicketID:    ticketID,
			ResponderID: mentorID,
			ActorRole:   domain.RoleStudent,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "GetByID")
	})

	t.Run("fast reject when already claimed, no write attempted", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		otherMentor := uuid.New()
		claimedTicket := pendingTicket()
		claimedTicket.State = domain.StateClaimed
		claimedTicket.ResponderID = &otherMentor
		claimedTicket.Version = 2

		mockRepo.On("GetByID", ctx, ticketID).Return(claimedTicket, nil)

		ticket, err := svc.Claim(ctx, ports.ClaimTicketParams{
			TicketID:    ticketID,
			ResponderID: mentorID,
			ActorRole:   domain.RoleMentor,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrTicketAlreadyClaimed)
		mockRepo.AssertNotCalled(t, "CompareAndTransition")
		mockBroadcaster.AssertNotCalled(t, "Broadcast")
	})

	t.Run("lost race maps conflict to already claimed", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		mockRepo.On("GetByID", ctx, ticketID).Return(pendingTicket(), nil)
		mockRepo.On("CompareAndTransition", ctx, mock.Anything).
			Return(nil, apperrors.ErrTicketConflict)

		ticket, err := svc.Claim(ctx, ports.ClaimTicketParams{
			TicketID:    ticketID,
			ResponderID: mentorID,
			ActorRole:   domain.RoleMentor,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrTicketAlreadyClaimed)
		mockBroadcaster.AssertNotCalled(t, "Broadcast")
	})

	t.Run("ticket not found", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		mockRepo.On("GetByID", ctx, ticketID).Return(nil, apperrors.ErrTicketNotFound)

		ticket, err := svc.Claim(ctx, ports.ClaimTicketParams{
			TicketID:    ticketID,
			ResponderID: mentorID,
			ActorRole:   domain.RoleMentor,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})
}

func TestTicketService_Resolve(t *testing.T) {
	ctx := context.Background()
	mentorID := uuid.New()
	studentID := uuid.New()
	ticketID := int64(1)

	claimedTicket := func(responder uuid.UUID) *domain.Ticket {
		return &domain.Ticket{
			ID:          ticketID,
			Title:       "Help",
			State:       domain.StateClaimed,
			RequesterID: studentID,
			ResponderID: &responder,
			Version:     2,
		}
	}

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		resolved := claimedTicket(mentorID)
		resolved.State = domain.StateResolved
		resolved.Version = 3

		mockRepo.On("GetByID", ctx, ticketID).Return(claimedTicket(mentorID), nil)
		mockRepo.On("CompareAndTransition", ctx, mock.MatchedBy(func(p ports.TransitionParams) bool {
			return p.ExpectedState == domain.StateClaimed &&
				p.NewState == domain.StateResolved &&
				p.ResolvedAt != nil
		})).Return(resolved, nil)
		mockBroadcaster.On("Broadcast", mock.Anything).Return(nil)

		ticket, err := svc.Resolve(ctx, ports.ResolveTicketParams{
			TicketID:    ticketID,
			ResponderID: mentorID,
			ActorRole:   domain.RoleMentor,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StateResolved, ticket.State)
		mockRepo.AssertExpectations(t)
	})

	t.Run("only the claimer may resolve", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		mockRepo.On("GetByID", ctx, ticketID).Return(claimedTicket(uuid.New()), nil)

		ticket, err := svc.Resolve(ctx, ports.ResolveTicketParams{
			TicketID:    ticketID,
			ResponderID: mentorID,
			ActorRole:   domain.RoleMentor,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrNotClaimer)
		mockRepo.AssertNotCalled(t, "CompareAndTransition")
	})

	t.Run("resolving a pending ticket is an invalid transition", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		mockRepo.On("GetByID", ctx, ticketID).Return(&domain.Ticket{
			ID:          ticketID,
			State:       domain.StatePending,
			RequesterID: studentID,
			Version:     1,
		}, nil)

		ticket, err := svc.Resolve(ctx, ports.ResolveTicketParams{
			TicketID:    ticketID,
			ResponderID: mentorID,
			ActorRole:   domain.RoleMentor,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
	})

	t.Run("students cannot resolve", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewTicketService(mockRepo, mockBroadcaster, newTestLogger())

		ticket, err := svc.Resolve(ctx, ports.ResolveTicketParams{
			TicketID:    ticketID,
			ResponderID: studentID,
			ActorRole:   domain.RoleStudent,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

// TestTicketService_ConcurrentClaims drives real concurrency through the
// in-memory store: many mentors race to claim one ticket, and exactly one
// must win while every loser gets ErrTicketAlreadyClaimed.
func TestTicketService_ConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	const mentors = 50

	repo := memory.NewTicketRepository()
	mockBroadcaster := mocks.NewMockEventBroadcaster()
	mockBroadcaster.On("Broadcast", mock.Anything).Return(nil)

	svc := services.NewTicketService(repo, mockBroadcaster, newTestLogger())

	studentID := uuid.New()
	created, err := svc.CreateTicket(ctx, ports.CreateTicketParams{
		Title:       "Race me",
		RequesterID: studentID,
		ActorRole:   domain.RoleStudent,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	winners := make(chan uuid.UUID, mentors)
	losers := make(chan error, mentors)

	for i := 0; i < mentors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mentorID := uuid.New()
			_, err := svc.Claim(ctx, ports.ClaimTicketParams{
				TicketID:    created.ID,
				ResponderID: mentorID,
				ActorRole:   domain.RoleMentor,
			})
			if err == nil {
				winners <- mentorID
			} else {
				losers <- err
			}
		}()
	}
	wg.Wait()
	close(winners)
	close(losers)

	var winnerIDs []uuid.UUID
	for id := range winners {
		winnerIDs = append(winnerIDs, id)
	}
	require.Len(t, winnerIDs, 1, "exactly one claim must win")

	for err := range losers {
		assert.ErrorIs(t, err, apperrors.ErrTicketAlreadyClaimed)
	}

	// The committed record names the winner.
	final, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateClaimed, final.State)
	require.NotNil(t, final.ResponderID)
	assert.Equal(t, winnerIDs[0], *final.ResponderID)
	assert.Equal(t, int64(2), final.Version)
	assert.NoError(t, final.CheckInvariants())
}

// TestTicketService_FullLifecycle runs create, claim, resolve end to end
// against the in-memory store and checks the version trail.
func TestTicketService_FullLifecycle(t *testing.T) {
	ctx := context.Background()

	repo := memory.NewTicketRepository()
	mockBroadcaster := mocks.NewMockEventBroadcaster()

	var eventsMu sync.Mutex
	var events []domain.Event
	mockBroadcaster.On("Broadcast", mock.Anything).Run(func(args mock.Arguments) {
		eventsMu.Lock()
		defer eventsMu.Unlock()
		events = append(events, args.Get(0).(domain.Event))
	}).Return(nil)

	svc := services.NewTicketService(repo, mockBroadcaster, newTestLogger())

	studentID := uuid.New()
	mentorID := uuid.New()

	created, err := svc.CreateTicket(ctx, ports.CreateTicketParams{
		Title:       "Lifecycle",
		RequesterID: studentID,
		ActorRole:   domain.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	claimed, err := svc.Claim(ctx, ports.ClaimTicketParams{
		TicketID:    created.ID,
		ResponderID: mentorID,
		ActorRole:   domain.RoleMentor,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), claimed.Version)

	resolved, err := svc.Resolve(ctx, ports.ResolveTicketParams{
		TicketID:    created.ID,
		ResponderID: mentorID,
		ActorRole:   domain.RoleMentor,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resolved.Version)
	require.NotNil(t, resolved.ResolvedAt)
	assert.NoError(t, resolved.CheckInvariants())

	// A resolved ticket stays in the list; the queue never forgets history.
	tickets, err := svc.ListTickets(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.StateResolved, tickets[0].State)

	// Events were emitted in commit order with increasing versions.
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventTicketCreated, events[0].Type)
	assert.Equal(t, domain.EventTicketTransitioned, events[1].Type)
	assert.Equal(t, domain.EventTicketTransitioned, events[2].Type)
	assert.Equal(t, int64(1), events[0].Ticket.Version)
	assert.Equal(t, int64(2), events[1].Ticket.Version)
	assert.Equal(t, int64(3), events[2].Ticket.Version)

	// Resolve after resolve is rejected without touching the record.
	_, err = svc.Resolve(ctx, ports.ResolveTicketParams{
		TicketID:    created.ID,
		ResponderID: mentorID,
		ActorRole:   domain.RoleMentor,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
}
