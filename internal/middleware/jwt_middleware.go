package middleware

import (
	"log/slog"
	"strings"

	"agribuddy/internal/services"

	"github.com/gofiber/fiber/v2"
)

// LocalUserID is the Locals key holding the authenticated userId.
const LocalUserID = "userId"

type userIDParams struct {
	UserID string `json:"userId" form:"userId" query:"userId"`
}

// AuthRequired is a Fiber middleware to check for a valid bearer token. When the
// request names a userId it must be the token's subject.
func AuthRequired(tokens *services.TokenService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer")) {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			logger.DebugContext(c.UserContext(), "token validation failed", "error", err)
			return unauthorized(c, "Invalid or expired token")
		}

		var params userIDParams
		_ = c.QueryParser(&params)
		if params.UserID == "" && len(c.Body()) > 0 {
			_ = c.BodyParser(&params)
		}
		if params.UserID != "" && !strings.EqualFold(params.UserID, claims.Subject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"code":    "forbidden",
				"message": "Token does not belong to this user.",
			})
		}

		c.Locals(LocalUserID, claims.Subject)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"code":    "unauthorized",
		"message": message,
	})
}
