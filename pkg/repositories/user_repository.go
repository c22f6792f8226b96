package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByUsername returns ErrNotFound for an unknown username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// userRepository implements UserRepository using PostgreSQL.
type userRepository struct{}

// NewUserRepository creates a new user repository.
func NewUserRepository() UserRepository {
	return &userRepository{}
}

// Create inserts a user. A taken username surfaces as ErrDuplicate.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		user.Username, user.PasswordHash, time.Now(),
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return apperrors.FromPg(err, "create user "+user.Username)
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

// GetByUsername retrieves a user by login name.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username)
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user %d", id)
	}
	return nil
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	var u models.User
	err = q.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("user %v", arg)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
