package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"agribuddy/internal/database/databasetest"
	"agribuddy/internal/logging"
	"agribuddy/internal/repositories"
	"agribuddy/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newStoreBackedService runs AuthService against a migrated SQLite store.
func newStoreBackedService(t *testing.T) *services.AuthService {
	t.Helper()
	store := repositories.NewGORMUserStore(databasetest.New(t))
	return services.NewAuthService(store, logging.Discard(), services.WithBcryptCost(bcrypt.MinCost))
}

func TestAuthService_GORMStore_AccountLifecycle(t *testing.T) {
	svc := newStoreBackedService(t)
	ctx := context.Background()

	profile, err := svc.Register(ctx, services.RegisterInput{Email: "a@x.com", Password: "pw1", FullName: "Asha", Country: "India"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, services.RegisterInput{Email: "a@x.com", Password: "pw2"})
	assert.ErrorIs(t, err, services.ErrDuplicateEmail)

	result, err := svc.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, profile.UserID, result.User.UserID)

	got, err := svc.GetUserByID(ctx, profile.UserID)
	require.NoError(t, err)
	assert.Equal(t, profile, got)

	err = svc.UpdatePassword(ctx, services.UpdatePasswordInput{UserID: profile.UserID, OldPassword: "wrong", NewPassword: "pw2"})
	assert.ErrorIs(t, err, services.ErrOldPasswordIncorrect)
	require.NoError(t, svc.UpdatePassword(ctx, services.UpdatePasswordInput{UserID: profile.UserID, OldPassword: "pw1", NewPassword: "pw2"}))

	_, err = svc.Login(ctx, "a@x.com", "pw1")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "a@x.com", "pw2")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateInfo(ctx, services.UpdateInfoInput{UserID: profile.UserID, FullName: "Asha K", Email: "asha@x.com", Country: "Nepal"}))
	got, err = svc.GetUserByID(ctx, profile.UserID)
	require.NoError(t, err)
	assert.Equal(t, "asha@x.com", got.Email)
	assert.Equal(t, "Asha K", got.FullName)
	assert.Equal(t, "Nepal", got.Country)

	require.NoError(t, svc.DeleteUser(ctx, profile.UserID))
	_, err = svc.GetUserByID(ctx, profile.UserID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAuthService_GORMStore_UppercaseUserID(t *testing.T) {
	svc := newStoreBackedService(t)
	ctx := context.Background()

	profile, err := svc.Register(ctx, services.RegisterInput{Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)
	upper := strings.ToUpper(profile.UserID)

	got, err := svc.GetUserByID(ctx, upper)
	require.NoError(t, err)
	assert.Equal(t, profile.UserID, got.UserID)

	require.NoError(t, svc.UpdatePassword(ctx, services.UpdatePasswordInput{UserID: upper, OldPassword: "pw1", NewPassword: "pw2"}))
	require.NoError(t, svc.UpdateInfo(ctx, services.UpdateInfoInput{UserID: upper, FullName: "Asha", Email: "a@x.com", Country: "India"}))
	require.NoError(t, svc.DeleteUser(ctx, upper))

	_, err = svc.GetUserByID(ctx, profile.UserID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAuthService_GORMStore_ConcurrentRegisterSameEmail(t *testing.T) {
	svc := newStoreBackedService(t)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, services.RegisterInput{Email: "race@x.com", Password: "pw1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, services.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, ok)

	users, err := svc.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "race@x.com", users[0].Email)
}
