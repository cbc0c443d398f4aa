package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/store"
)

// ErrInvalidCredentials represents login failure.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// StaffAccounts defines the storage contract used by the service.
type StaffAccounts interface {
	GetByUsername(ctx context.Context, username string) (*models.Staff, error)
}

// Service authenticates staff and issues tokens.
type Service struct {
	accounts  StaffAccounts
	hasher    Hasher
	tokenizer *TokenService
	logger    *zap.Logger
}

// NewService builds the auth service.
func NewService(accounts StaffAccounts, hasher Hasher, tokenizer *TokenService, logger *zap.Logger) *Service {
	return &Service{
		accounts:  accounts,
		hasher:    hasher,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// Login authenticates a staff account and produces a JWT.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.Staff, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	staff, err := s.accounts.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrStaffNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := s.hasher.Compare(staff.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokenizer.GenerateToken(staff.ID, staff.Role)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("staff logged in", zap.String("staff_id", staff.ID), zap.String("username", staff.Username))
	return token, staff, nil
}
