package services

import (
	"errors"
	"fmt"

	"agribuddy/internal/database"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEmail     = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrNotFound           = errors.New("user not found")
	ErrPersistence        = errors.New("persistence failure")

	// ErrOldPasswordIncorrect is a credential failure with its own message.
	ErrOldPasswordIncorrect = fmt.Errorf("old password is incorrect: %w", ErrInvalidCredentials)

	// ErrStoreUnavailable is raised when no store connection could be acquired.
	ErrStoreUnavailable = database.ErrStoreUnavailable
)

// Advisory errors.
var (
	ErrAdvisoryUnavailable = errors.New("advisory service is not configured")
	ErrNoResponse          = errors.New("no response generated")
	ErrInvalidModelOutput  = errors.New("model did not return valid JSON")
)
