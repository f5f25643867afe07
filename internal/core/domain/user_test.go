package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/help-queue-backend/internal/core/domain"
	apperrors "github.com/campushq/help-queue-backend/internal/core/errors"
)

func TestRole_IsValid(t *testing.T) {
	assert.True(t, domain.RoleStudent.IsValid())
	assert.True(t, domain.RoleMentor.IsValid())
	assert.False(t, domain.Role("").IsValid())
	assert.False(t, domain.Role("admin").IsValid())
	assert.False(t, domain.Role("Student").IsValid())
}

func TestUserRegistrationParams_Validate(t *testing.T) {
	valid := domain.UserRegistrationParams{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "correct-horse",
		Role:     domain.RoleStudent,
	}

	tests := []struct {
		name       string
		mutate     func(p *domain.UserRegistrationParams)
		errorField string
	}{
		{"valid params", func(p *domain.UserRegistrationParams) {}, ""},
		{"missing name", func(p *domain.UserRegistrationParams) { p.Name = "" }, "name"},
		{"name too long", func(p *domain.UserRegistrationParams) { p.Name = strings.Repeat("a", 256) }, "name"},
		{"missing email", func(p *domain.UserRegistrationParams) { p.Email = "" }, "email"},
		{"invalid email", func(p *domain.UserRegistrationParams) { p.Email = "not-an-email" }, "email"},
		{"short password", func(p *domain.UserRegistrationParams) { p.Password = "short" }, "password"},
		{"invalid role", func(p *domain.UserRegistrationParams) { p.Role = "admin" }, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := valid
			tt.mutate(&params)

			err := params.Validate()

			if tt.errorField == "" {
				assert.NoError(t, err)
				return
			}

			var validationErr *apperrors.ValidationErrors
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Errors, tt.errorField)
		})
	}
}

func TestNewUser(t *testing.T) {
	user, err := domain.NewUser(domain.UserRegistrationParams{
		Name:     "Grace Hopper",
		Email:    "grace@example.com",
		Password: "compilers4ever",
		Role:     domain.RoleMentor,
	})

	require.NoError(t, err)
	assert.NotEqual(t, "compilers4ever", user.HashedPassword)
	assert.True(t, user.CheckPassword("compilers4ever"))
	assert.False(t, user.CheckPassword("wrong-password"))
	assert.Equal(t, domain.RoleMentor, user.Role)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestHashPassword_RejectsWeakPasswords(t *testing.T) {
	_, err := domain.HashPassword("short")
	assert.ErrorIs(t, err, apperrors.ErrPasswordTooWeak)

	_, err = domain.HashPassword(strings.Repeat("a", domain.MaxPasswordLength+1))
	assert.ErrorIs(t, err, apperrors.ErrPasswordTooWeak)
}
