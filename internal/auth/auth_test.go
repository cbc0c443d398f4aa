package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/store"
)

type staffByUsername map[string]*models.Staff

func (f staffByUsername) GetByUsername(_ context.Context, username string) (*models.Staff, error) {
	staff, ok := f[username]
	if !ok {
		return nil, store.ErrStaffNotFound
	}
	return staff, nil
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.GenerateToken("staff-1", "admin")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.StaffID)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).GenerateToken("staff-1", "admin")
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	hasher := NewBcryptHasher(4)
	hash, err := hasher.Hash("letmein")
	require.NoError(t, err)

	accounts := staffByUsername{"kiran": {
		ID:           "staff-1",
		Username:     "kiran",
		Role:         "admin",
		PasswordHash: hash,
	}}
	svc := NewService(accounts, hasher, NewTokenService("test-secret", time.Hour), zap.NewNop())

	t.Run("success", func(t *testing.T) {
		token, staff, err := svc.Login(context.Background(), "  Kiran ", "letmein")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "staff-1", staff.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "kiran", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "ghost", "letmein")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty credentials", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
