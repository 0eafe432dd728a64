package handlers

import (
	"errors"
	"log/slog"

	"agribuddy/internal/services"

	"github.com/gofiber/fiber/v2"
)

// bind reads request parameters from the query string and then from the body,
// so clients may send either. Body values win.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return err
	}
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(dst)
}

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// authErrors maps service errors to responses. Order matters: the first match wins.
var authErrors = []errorMapping{
	{services.ErrInvalidInput, fiber.StatusBadRequest, "invalid_input", "Invalid input."},
	{services.ErrDuplicateEmail, fiber.StatusConflict, "duplicate_email", "User with this email already exists."},
	{services.ErrOldPasswordIncorrect, fiber.StatusUnauthorized, "invalid_credentials", "Old password is incorrect."},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect."},
	{services.ErrNotFound, fiber.StatusNotFound, "not_found", "User not found."},
	{services.ErrStoreUnavailable, fiber.StatusInternalServerError, "store_unavailable", "Try again later!"},
	{services.ErrPersistence, fiber.StatusInternalServerError, "persistence_error", "Try again later!"},
}

// respondAuthError writes the response for a credential operation failure.
// Errors outside the table go to the app's ErrorHandler.
func respondAuthError(c *fiber.Ctx, err error) error {
	for _, m := range authErrors {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(fiber.Map{
				"success": false,
				"code":    m.code,
				"message": m.message,
			})
		}
	}
	return err
}

func invalidInput(c *fiber.Ctx) error {
	return respondAuthError(c, services.ErrInvalidInput)
}

// ErrorHandler is the catch-all for errors returned by handlers and middleware.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"success": false,
				"code":    "request_error",
				"message": fe.Message,
			})
		}

		logger.ErrorContext(c.UserContext(), "unhandled request error",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"code":    "internal_error",
			"message": "Try again later!",
		})
	}
}
