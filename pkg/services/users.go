package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// MinPasswordLength is the shortest password accepted for new accounts.
const MinPasswordLength = 8

// UserService defines the interface for user operations.
type UserService interface {
	Create(ctx context.Context, username, password string) (*models.User, error)
	// Authenticate returns ErrUnauthorized for an unknown user or a wrong password.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	ChangePassword(ctx context.Context, id int64, current, next string) error
}

// userService implements UserService.
type userService struct {
	userRepo repositories.UserRepository
	cost     int
	logger   *zap.Logger
}

// NewUserService creates a new user service with dependencies.
func NewUserService(userRepo repositories.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		cost:     bcrypt.DefaultCost,
		logger:   logger.Named("users"),
	}
}

var _ UserService = (*userService)(nil)

func (s *userService) Create(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.Validation("username is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperrors.Validation("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, PasswordHash: string(hash)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Created user", zap.Int64("user_id", user.ID), zap.String("username", username))
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("Password mismatch", zap.String("username", user.Username))
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return apperrors.ErrUnauthorized
	}
	if len(next) < MinPasswordLength {
		return apperrors.Validation("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, id, string(hash))
}
