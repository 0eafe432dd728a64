package repositories_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"agribuddy/internal/database"
	"agribuddy/internal/database/databasetest"
	"agribuddy/internal/logging"
	"agribuddy/internal/models"
	"agribuddy/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]repositories.UserStore {
	return map[string]repositories.UserStore{
		"gorm":   repositories.NewGORMUserStore(databasetest.New(t)),
		"memory": repositories.NewMemoryUserStore(),
	}
}

func newUser(email string) *models.User {
	return &models.User{
		UserID:   uuid.NewString(),
		Email:    email,
		Password: "$2a$04$hash",
		FullName: "Asha",
		Country:  "India",
	}
}

// session runs fn in a store session and fails the test on a session error.
func session(t *testing.T, store repositories.UserStore, fn func(repo repositories.UserRepository)) {
	t.Helper()
	require.NoError(t, store.Session(context.Background(), func(repo repositories.UserRepository) error {
		fn(repo)
		return nil
	}))
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			session(t, store, func(repo repositories.UserRepository) {
				u := newUser("a@x.com")
				require.NoError(t, repo.Create(u))

				byEmail, err := repo.GetByEmail("a@x.com")
				require.NoError(t, err)
				assert.Equal(t, u.UserID, byEmail.UserID)
				assert.Equal(t, "$2a$04$hash", byEmail.Password)
				assert.False(t, byEmail.CreatedAt.IsZero())

				byID, err := repo.GetByID(u.UserID)
				require.NoError(t, err)
				assert.Equal(t, "Asha", byID.FullName)
				assert.Equal(t, "India", byID.Country)

				_, err = repo.GetByEmail("nobody@x.com")
				assert.ErrorIs(t, err, repositories.ErrUserNotFound)
				_, err = repo.GetByID(uuid.NewString())
				assert.ErrorIs(t, err, repositories.ErrUserNotFound)
			})
		})
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			session(t, store, func(repo repositories.UserRepository) {
				require.NoError(t, repo.Create(newUser("a@x.com")))
				err := repo.Create(newUser("a@x.com"))
				assert.ErrorIs(t, err, repositories.ErrEmailTaken)

				all, err := repo.GetAll()
				require.NoError(t, err)
				assert.Len(t, all, 1)
			})
		})
	}
}

func TestUserRepository_GetAllOrdered(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			session(t, store, func(repo repositories.UserRepository) {
				base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
				first := newUser("first@x.com")
				first.CreatedAt = base
				second := newUser("second@x.com")
				second.CreatedAt = base.Add(time.Hour)

				require.NoError(t, repo.Create(second))
				require.NoError(t, repo.Create(first))

				all, err := repo.GetAll()
				require.NoError(t, err)
				require.Len(t, all, 2)
				assert.Equal(t, first.UserID, all[0].UserID)
				assert.Equal(t, second.UserID, all[1].UserID)
			})
		})
	}
}

func TestUserRepository_UpdateInfo(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			session(t, store, func(repo repositories.UserRepository) {
				a := newUser("a@x.com")
				b := newUser("b@x.com")
				require.NoError(t, repo.Create(a))
				require.NoError(t, repo.Create(b))

				n, err := repo.UpdateInfo(a.UserID, "Asha Devi", "asha@x.com", "Nepal")
				require.NoError(t, err)
				assert.EqualValues(t, 1, n)

				got, err := repo.GetByID(a.UserID)
				require.NoError(t, err)
				assert.Equal(t, "Asha Devi", got.FullName)
				assert.Equal(t, "asha@x.com", got.Email)
				assert.Equal(t, "Nepal", got.Country)
				assert.Equal(t, a.Password, got.Password)

				_, err = repo.UpdateInfo(a.UserID, "Asha", "b@x.com", "India")
				assert.ErrorIs(t, err, repositories.ErrEmailTaken)

				n, err = repo.UpdateInfo(uuid.NewString(), "Ghost", "ghost@x.com", "India")
				require.NoError(t, err)
				assert.EqualValues(t, 0, n)
			})
		})
	}
}

func TestUserRepository_UpdatePasswordAndDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			session(t, store, func(repo repositories.UserRepository) {
				u := newUser("a@x.com")
				require.NoError(t, repo.Create(u))

				n, err := repo.UpdatePassword(u.UserID, "$2a$04$other")
				require.NoError(t, err)
				assert.EqualValues(t, 1, n)

				got, err := repo.GetByID(u.UserID)
				require.NoError(t, err)
				assert.Equal(t, "$2a$04$other", got.Password)

				n, err = repo.Delete(u.UserID)
				require.NoError(t, err)
				assert.EqualValues(t, 1, n)

				_, err = repo.GetByID(u.UserID)
				assert.ErrorIs(t, err, repositories.ErrUserNotFound)

				n, err = repo.Delete(u.UserID)
				require.NoError(t, err)
				assert.EqualValues(t, 0, n)
			})
		})
	}
}

func TestUserStore_ConcurrentCreateSameEmail(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errs := make(chan error, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- store.Session(context.Background(), func(repo repositories.UserRepository) error {
						return repo.Create(newUser("race@x.com"))
					})
				}()
			}
			wg.Wait()
			close(errs)

			ok := 0
			for err := range errs {
				if err == nil {
					ok++
				} else {
					assert.ErrorIs(t, err, repositories.ErrEmailTaken)
				}
			}
			assert.Equal(t, 1, ok)

			session(t, store, func(repo repositories.UserRepository) {
				users, err := repo.GetAll()
				require.NoError(t, err)
				assert.Len(t, users, 1)
			})
		})
	}
}

func TestGORMUserStore_SessionUnavailable(t *testing.T) {
	p, err := database.Open(databasetest.Config(), logging.Discard())
	require.NoError(t, err)
	require.NoError(t, p.Close())

	called := false
	err = repositories.NewGORMUserStore(p).Session(context.Background(), func(repositories.UserRepository) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.ErrorIs(t, err, database.ErrStoreUnavailable)
}

func TestMemoryUserStore_SessionCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repositories.NewMemoryUserStore().Session(ctx, func(repositories.UserRepository) error {
		t.Fatal("session callback must not run")
		return nil
	})
	assert.ErrorIs(t, err, database.ErrStoreUnavailable)
}
