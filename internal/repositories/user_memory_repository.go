package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"agribuddy/internal/database"
	"agribuddy/internal/models"
)

// MemoryUserStore is an in-memory implementation of UserStore and UserRepository.
// It enforces the same email uniqueness as the SQL schema.
type MemoryUserStore struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMemoryUserStore creates a new instance of MemoryUserStore.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]models.User),
	}
}

// Session runs fn against the store itself. A done ctx fails like an unreachable store.
func (s *MemoryUserStore) Session(ctx context.Context, fn func(repo UserRepository) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return fn(s)
}

// Create adds a user to the in-memory store.
func (s *MemoryUserStore) Create(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.UserID]; ok {
		return fmt.Errorf("user with ID %s already exists", user.UserID)
	}
	if s.emailOwnerLocked(user.Email) != "" {
		return ErrEmailTaken
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.users[user.UserID] = *user
	return nil
}

// GetByEmail retrieves a user by email from the in-memory store.
func (s *MemoryUserStore) GetByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := s.emailOwnerLocked(email)
	if id == "" {
		return nil, ErrUserNotFound
	}
	user := s.users[id]
	return &user, nil
}

// GetByID retrieves a user by ID from the in-memory store.
func (s *MemoryUserStore) GetByID(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// GetAll lists every user, oldest first.
func (s *MemoryUserStore) GetAll() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userList := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		userList = append(userList, u)
	}
	sort.Slice(userList, func(i, j int) bool {
		if !userList[i].CreatedAt.Equal(userList[j].CreatedAt) {
			return userList[i].CreatedAt.Before(userList[j].CreatedAt)
		}
		return userList[i].UserID < userList[j].UserID
	})
	return userList, nil
}

// UpdateInfo overwrites the profile fields of a user.
func (s *MemoryUserStore) UpdateInfo(id, fullName, email, country string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	if owner := s.emailOwnerLocked(email); owner != "" && owner != id {
		return 0, ErrEmailTaken
	}
	user.FullName = fullName
	user.Email = email
	user.Country = country
	s.users[id] = user
	return 1, nil
}

// UpdatePassword stores a new password hash.
func (s *MemoryUserStore) UpdatePassword(id, passwordHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	user.Password = passwordHash
	s.users[id] = user
	return 1, nil
}

// Delete removes a user from the in-memory store.
func (s *MemoryUserStore) Delete(id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return 0, nil
	}
	delete(s.users, id)
	return 1, nil
}

// emailOwnerLocked returns the ID owning email, or "". Callers hold mu.
func (s *MemoryUserStore) emailOwnerLocked(email string) string {
	for id, u := range s.users {
		if u.Email == email {
			return id
		}
	}
	return ""
}
