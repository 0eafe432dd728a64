package repositories

import (
	"context"
	"errors"
	"fmt"

	"agribuddy/internal/database"
	"agribuddy/internal/models"

	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create inserts a new user. The caller assigns UserID.
func (r *GORMUserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("userid = ?", id).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// GetAll lists every user, oldest first.
func (r *GORMUserRepository) GetAll() ([]models.User, error) {
	var users []models.User
	if err := r.db.Order("created_at, userid").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateInfo overwrites the profile fields and reports how many rows matched.
func (r *GORMUserRepository) UpdateInfo(id, fullName, email, country string) (int64, error) {
	res := r.db.Model(&models.User{}).Where("userid = ?", id).Updates(map[string]any{
		"full_name": fullName,
		"email":     email,
		"country":   country,
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("failed to update user %s: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// UpdatePassword stores a new password hash.
func (r *GORMUserRepository) UpdatePassword(id, passwordHash string) (int64, error) {
	res := r.db.Model(&models.User{}).Where("userid = ?", id).Update("password", passwordHash)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update password for user %s: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes a user by ID.
func (r *GORMUserRepository) Delete(id string) (int64, error) {
	res := r.db.Where("userid = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete user %s: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// GORMUserStore opens one connection per session through the database provider.
type GORMUserStore struct {
	provider *database.Provider
}

// NewGORMUserStore creates a new GORMUserStore.
func NewGORMUserStore(provider *database.Provider) *GORMUserStore {
	return &GORMUserStore{provider: provider}
}

// Session runs fn with a repository bound to one connection.
func (s *GORMUserStore) Session(ctx context.Context, fn func(repo UserRepository) error) error {
	return s.provider.WithConnection(ctx, func(conn *gorm.DB) error {
		return fn(NewGORMUserRepository(conn))
	})
}
