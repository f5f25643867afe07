package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campushq/help-queue-backend/internal/core/domain"
	apperrors "github.com/campushq/help-queue-backend/internal/core/errors"
	"github.com/campushq/help-queue-backend/internal/core/mocks"
	"github.com/campushq/help-queue-backend/internal/core/services"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	validParams := domain.UserRegistrationParams{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "correct-horse",
		Role:     domain.RoleStudent,
	}

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, validParams.Email).
			Return(nil, apperrors.ErrUserNotFound)
		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
			Return(&domain.User{
				ID:    uuid.New(),
				Name:  validParams.Name,
				Email: validParams.Email,
				Role:  domain.RoleStudent,
			}, nil)

		user, err := svc.Register(ctx, validParams)

		require.NoError(t, err)
		assert.Equal(t, validParams.Email, user.Email)
		mockRepo.AssertExpectations(t)
	})

	t.Run("defaults empty role to student", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		params := validParams
		params.Role = ""

		mockRepo.On("GetByEmail", ctx, params.Email).
			Return(nil, apperrors.ErrUserNotFound)
		mockRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Role == domain.RoleStudent
		})).Return(&domain.User{Role: domain.RoleStudent}, nil)

		_, err := svc.Register(ctx, params)

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, validParams.Email).
			Return(&domain.User{Email: validParams.Email}, nil)

		user, err := svc.Register(ctx, validParams)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserExists)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("validation failure skips the repository", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		params := validParams
		params.Email = "not-an-email"

		user, err := svc.Register(ctx, params)

		assert.Nil(t, user)
		var validationErr *apperrors.ValidationErrors
		assert.ErrorAs(t, err, &validationErr)
		mockRepo.AssertNotCalled(t, "GetByEmail")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	password := "correct-horse"
	hashed, err := domain.HashPassword(password)
	require.NoError(t, err)

	storedUser := &domain.User{
		ID:             uuid.New(),
		Name:           "Ada Lovelace",
		Email:          "ada@example.com",
		HashedPassword: hashed,
		Role:           domain.RoleStudent,
	}

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, storedUser.Email).Return(storedUser, nil)

		user, err := svc.Login(ctx, storedUser.Email, password)

		require.NoError(t, err)
		assert.Equal(t, storedUser.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, storedUser.Email).Return(storedUser, nil)

		user, err := svc.Login(ctx, storedUser.Email, "wrong-password")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unknown email maps to invalid credentials", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, "nobody@example.com").
			Return(nil, apperrors.ErrUserNotFound)

		user, err := svc.Login(ctx, "nobody@example.com", password)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("empty email", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		_, err := svc.Login(ctx, "", password)

		assert.ErrorIs(t, err, apperrors.ErrEmailRequired)
		mockRepo.AssertNotCalled(t, "GetByEmail")
	})

	t.Run("empty password", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		_, err := svc.Login(ctx, storedUser.Email, "")

		assert.ErrorIs(t, err, apperrors.ErrPasswordRequired)
		mockRepo.AssertNotCalled(t, "GetByEmail")
	})
}
