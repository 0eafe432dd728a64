package handlers

import (
	"log/slog"

	"agribuddy/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for accounts.
type AuthHandler struct {
	authService *services.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers the account routes. userScoped runs before the
// handlers that act on a single userId.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, userScoped ...fiber.Handler) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
	router.Get("/getAllUsers", h.HandleGetAllUsers)

	scoped := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, userScoped...), handler)
	}
	router.Put("/updateInfo", scoped(h.HandleUpdateInfo)...)
	router.Put("/updatePassword", scoped(h.HandleUpdatePassword)...)
	router.Delete("/deleteUser", scoped(h.HandleDeleteUser)...)
	router.Get("/getUserInfo", scoped(h.HandleGetUserInfo)...)
}

// LoginRequest represents the parameters for login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" query:"email"`
	Password string `json:"password" form:"password" query:"password"`
}

// UserIDRequest carries the userId of user-scoped requests.
type UserIDRequest struct {
	UserID string `json:"userId" form:"userId" query:"userId"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := bind(c, &req); err != nil {
		h.logger.DebugContext(c.UserContext(), "failed to parse register request", "error", err)
		return invalidInput(c)
	}

	profile, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		return respondAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully.",
		"user":    profile,
	})
}

// HandleLogin verifies credentials and returns the profile, plus a token when enabled.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return respondAuthError(c, services.ErrInvalidCredentials)
	}

	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondAuthError(c, err)
	}

	resp := fiber.Map{
		"success": true,
		"message": "Login successful.",
		"user":    result.User,
	}
	if result.Token != "" {
		resp["token"] = result.Token
	}
	return c.JSON(resp)
}

// HandleUpdateInfo replaces a user's name, email and country.
func (h *AuthHandler) HandleUpdateInfo(c *fiber.Ctx) error {
	var req services.UpdateInfoInput
	if err := bind(c, &req); err != nil {
		return invalidInput(c)
	}

	if err := h.authService.UpdateInfo(c.UserContext(), req); err != nil {
		return respondAuthError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User information updated successfully.",
	})
}

// HandleUpdatePassword changes a password after checking the old one.
func (h *AuthHandler) HandleUpdatePassword(c *fiber.Ctx) error {
	var req services.UpdatePasswordInput
	if err := bind(c, &req); err != nil {
		return invalidInput(c)
	}

	if err := h.authService.UpdatePassword(c.UserContext(), req); err != nil {
		return respondAuthError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password updated successfully.",
	})
}

// HandleDeleteUser removes a user.
func (h *AuthHandler) HandleDeleteUser(c *fiber.Ctx) error {
	var req UserIDRequest
	if err := bind(c, &req); err != nil {
		return invalidInput(c)
	}

	if err := h.authService.DeleteUser(c.UserContext(), req.UserID); err != nil {
		return respondAuthError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User deleted successfully.",
	})
}

// HandleGetUserInfo returns one user's profile.
func (h *AuthHandler) HandleGetUserInfo(c *fiber.Ctx) error {
	var req UserIDRequest
	if err := bind(c, &req); err != nil {
		return invalidInput(c)
	}

	profile, err := h.authService.GetUserByID(c.UserContext(), req.UserID)
	if err != nil {
		return respondAuthError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    profile,
	})
}

// HandleGetAllUsers lists every profile.
func (h *AuthHandler) HandleGetAllUsers(c *fiber.Ctx) error {
	users, err := h.authService.GetAllUsers(c.UserContext())
	if err != nil {
		return respondAuthError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
	})
}
