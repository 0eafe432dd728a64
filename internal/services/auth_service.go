package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agribuddy/internal/models"
	"agribuddy/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt rejects passwords longer than this.
const maxPasswordBytes = 72

var errPasswordTooLong = fmt.Errorf("%w: password exceeds %d bytes", ErrInvalidInput, maxPasswordBytes)

// EventPublisher receives account lifecycle events.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, event models.UserEvent) error
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Email    string `json:"email" form:"email" query:"email" validate:"required,email,max=255"`
	Password string `json:"password" form:"password" query:"password" validate:"required"`
	FullName string `json:"name" form:"name" query:"name" validate:"max=255"`
	Country  string `json:"country" form:"country" query:"country" validate:"max=100"`
}

// UpdateInfoInput is the payload for UpdateInfo. Every field is required.
type UpdateInfoInput struct {
	UserID   string `json:"userId" form:"userId" query:"userId" validate:"required,uuid"`
	FullName string `json:"name" form:"name" query:"name" validate:"required,max=255"`
	Email    string `json:"email" form:"email" query:"email" validate:"required,email,max=255"`
	Country  string `json:"country" form:"country" query:"country" validate:"required,max=100"`
}

// UpdatePasswordInput is the payload for UpdatePassword.
type UpdatePasswordInput struct {
	UserID      string `json:"userId" form:"userId" query:"userId" validate:"required,uuid"`
	OldPassword string `json:"old_password" form:"old_password" query:"old_password" validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" query:"new_password" validate:"required"`
}

// LoginResult is returned by a successful Login. Token is empty when tokens are disabled.
type LoginResult struct {
	User  models.UserProfile
	Token string
}

// AuthService handles registration, login and profile maintenance.
// It holds no per-request state and is safe for concurrent use.
type AuthService struct {
	store      repositories.UserStore
	tokens     *TokenService
	events     EventPublisher
	validate   *validator.Validate
	bcryptCost int
	dummyHash  []byte
	logger     *slog.Logger
	now        func() time.Time
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithTokens enables login tokens. A nil issuer leaves them disabled.
func WithTokens(tokens *TokenService) AuthOption {
	return func(s *AuthService) { s.tokens = tokens }
}

// WithEvents sets the publisher for account events. A nil publisher disables them.
func WithEvents(events EventPublisher) AuthOption {
	return func(s *AuthService) { s.events = events }
}

// WithBcryptCost sets the bcrypt work factor for new hashes.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.bcryptCost = cost }
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repositories.UserStore, logger *slog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		store:      store,
		validate:   validator.New(),
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Compared against on unknown emails so both login failures cost one hash.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.bcryptCost)
	return s
}

// Register creates a new user with a freshly salted password hash.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.UserProfile, error) {
	if err := s.validateInput(in); err != nil {
		return models.UserProfile{}, err
	}
	if len(in.Password) > maxPasswordBytes {
		return models.UserProfile{}, errPasswordTooLong
	}

	var user models.User
	err := s.session(ctx, "register", func(repo repositories.UserRepository) error {
		if _, err := repo.GetByEmail(in.Email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, repositories.ErrUserNotFound) {
			return err
		}

		hash, err := s.hash(in.Password)
		if err != nil {
			return err
		}

		user = models.User{
			UserID:    uuid.NewString(),
			Email:     in.Email,
			Password:  hash,
			FullName:  in.FullName,
			Country:   in.Country,
			CreatedAt: s.now().UTC(),
		}
		if err := repo.Create(&user); err != nil {
			// Lost a race with a concurrent register for the same email.
			if errors.Is(err, repositories.ErrEmailTaken) {
				return ErrDuplicateEmail
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.UserProfile{}, err
	}

	s.logger.InfoContext(ctx, "user registered", "userId", user.UserID)
	s.publish(ctx, models.UserRegistered, user.UserID, user.Email)
	return user.Profile(), nil
}

// Login verifies credentials. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	var user *models.User
	err := s.session(ctx, "login", func(repo repositories.UserRepository) error {
		u, err := repo.GetByEmail(email)
		if errors.Is(err, repositories.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
		user = u
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}

	result := LoginResult{User: user.Profile()}
	if s.tokens != nil {
		token, err := s.tokens.Issue(result.User)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to issue token", "userId", user.UserID, "error", err)
			return LoginResult{}, err
		}
		result.Token = token
	}
	return result, nil
}

// UpdatePassword replaces the password hash after verifying the old password.
func (s *AuthService) UpdatePassword(ctx context.Context, in UpdatePasswordInput) error {
	in.UserID = normalizeID(in.UserID)
	if err := s.validateInput(in); err != nil {
		return err
	}
	if len(in.NewPassword) > maxPasswordBytes {
		return errPasswordTooLong
	}

	var email string
	err := s.session(ctx, "update_password", func(repo repositories.UserRepository) error {
		u, err := repo.GetByID(in.UserID)
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.OldPassword)); err != nil {
			return ErrOldPasswordIncorrect
		}

		hash, err := s.hash(in.NewPassword)
		if err != nil {
			return err
		}
		n, err := repo.UpdatePassword(in.UserID, hash)
		if err != nil {
			return err
		}
		if n == 0 {
			// deleted between read and write
			return ErrNotFound
		}
		email = u.Email
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, models.UserPasswordChanged, in.UserID, email)
	return nil
}

// UpdateInfo overwrites name, email and country. A userId with no record is
// not an error; the call affects nothing and reports success.
func (s *AuthService) UpdateInfo(ctx context.Context, in UpdateInfoInput) error {
	in.UserID = normalizeID(in.UserID)
	if err := s.validateInput(in); err != nil {
		return err
	}

	var affected int64
	err := s.session(ctx, "update_info", func(repo repositories.UserRepository) error {
		n, err := repo.UpdateInfo(in.UserID, in.FullName, in.Email, in.Country)
		if errors.Is(err, repositories.ErrEmailTaken) {
			return ErrDuplicateEmail
		}
		affected = n
		return err
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		s.logger.WarnContext(ctx, "update info matched no user", "userId", in.UserID)
		return nil
	}
	s.publish(ctx, models.UserInfoUpdated, in.UserID, in.Email)
	return nil
}

// DeleteUser hard-deletes the user. Deleting an unknown userId succeeds.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	userID = normalizeID(userID)
	if err := s.validateID(userID); err != nil {
		return err
	}

	var affected int64
	err := s.session(ctx, "delete_user", func(repo repositories.UserRepository) error {
		n, err := repo.Delete(userID)
		affected = n
		return err
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		s.logger.WarnContext(ctx, "delete matched no user", "userId", userID)
		return nil
	}
	s.publish(ctx, models.UserDeleted, userID, "")
	return nil
}

// GetUserByID returns the profile stored under userID.
func (s *AuthService) GetUserByID(ctx context.Context, userID string) (models.UserProfile, error) {
	userID = normalizeID(userID)
	if err := s.validateID(userID); err != nil {
		return models.UserProfile{}, err
	}

	var profile models.UserProfile
	err := s.session(ctx, "get_user", func(repo repositories.UserRepository) error {
		u, err := repo.GetByID(userID)
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		profile = u.Profile()
		return nil
	})
	return profile, err
}

// GetAllUsers returns every user ordered by creation time.
func (s *AuthService) GetAllUsers(ctx context.Context) ([]models.UserProfile, error) {
	profiles := []models.UserProfile{}
	err := s.session(ctx, "get_all_users", func(repo repositories.UserRepository) error {
		users, err := repo.GetAll()
		if err != nil {
			return err
		}
		for i := range users {
			profiles = append(profiles, users[i].Profile())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// session runs fn on one store connection and sorts its error into the service
// taxonomy. Infrastructure failures are logged here with full detail.
func (s *AuthService) session(ctx context.Context, op string, fn func(repo repositories.UserRepository) error) error {
	err := s.store.Session(ctx, fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, ErrStoreUnavailable):
		s.logger.ErrorContext(ctx, "credential store unavailable", "op", op, "error", err)
		return err
	default:
		s.logger.ErrorContext(ctx, "credential store operation failed", "op", op, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
	}
}

func (s *AuthService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", errPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) publish(ctx context.Context, typ models.UserEventType, userID, email string) {
	if s.events == nil {
		return
	}
	event := models.UserEvent{
		Type:       typ,
		UserID:     userID,
		Email:      email,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.PublishUserEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish user event", "type", typ, "userId", userID, "error", err)
	}
}

// normalizeID lowercases a userId. Ids are stored in the canonical lowercase form.
func normalizeID(userID string) string {
	return strings.ToLower(strings.TrimSpace(userID))
}

func (s *AuthService) validateID(userID string) error {
	return invalidInput(s.validate.Var(userID, "required,uuid"))
}

func (s *AuthService) validateInput(in any) error {
	return invalidInput(s.validate.Struct(in))
}

// invalidInput turns validator output into an ErrInvalidInput naming each failed field.
func invalidInput(err error) error {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		if field == "" {
			field = "userId"
		}
		msgs = append(msgs, fmt.Sprintf("field '%s' failed on the '%s' tag", field, e.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}
