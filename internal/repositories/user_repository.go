package repositories

import (
	"context"
	"errors"

	"agribuddy/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
)

// UserRepository defines the interface for user data access. An implementation is
// bound to a single store connection for the duration of one operation.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
	// GetAll returns every user ordered by creation time.
	GetAll() ([]models.User, error)
	// The update and delete methods report how many rows matched.
	UpdateInfo(id, fullName, email, country string) (int64, error)
	UpdatePassword(id, passwordHash string) (int64, error)
	Delete(id string) (int64, error)
}

// UserStore opens a repository session. The repository passed to fn must not be
// used after fn returns.
type UserStore interface {
	Session(ctx context.Context, fn func(repo UserRepository) error) error
}
