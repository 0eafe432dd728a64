package handlers

import (
	"errors"
	"fmt"
	"io"

	"agribuddy/internal/models"
	"agribuddy/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AdvisoryHandler serves the chat, weather and crop photo endpoints.
type AdvisoryHandler struct {
	advisory       *services.AdvisoryService
	crops          *services.CropService
	uploadMaxBytes int64
}

// NewAdvisoryHandler creates a new AdvisoryHandler.
func NewAdvisoryHandler(advisory *services.AdvisoryService, crops *services.CropService, uploadMaxBytes int64) *AdvisoryHandler {
	return &AdvisoryHandler{
		advisory:       advisory,
		crops:          crops,
		uploadMaxBytes: uploadMaxBytes,
	}
}

// RegisterRoutes registers the advisory routes.
func (h *AdvisoryHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/chat", h.HandleChat)
	// The misspelled path is what existing clients call.
	router.Get("/weather-discription", h.HandleWeather)
	router.Get("/weather-description", h.HandleWeather)
	router.Post("/crop-image", h.HandleCropImage)
}

// ChatRequest represents the parameters for chat.
type ChatRequest struct {
	UserInput   string `json:"user_input" form:"user_input" query:"user_input"`
	UserHistory string `json:"user_history" form:"user_history" query:"user_history"`
}

// HandleChat answers a farmer's question.
func (h *AdvisoryHandler) HandleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := bind(c, &req); err != nil {
		return advisoryError(c, fmt.Errorf("%w: %v", services.ErrInvalidInput, err))
	}

	reply, err := h.advisory.Chat(c.UserContext(), req.UserInput, req.UserHistory)
	if err != nil {
		return advisoryError(c, err)
	}
	return c.JSON(reply)
}

// HandleWeather suggests actions for the described weather.
func (h *AdvisoryHandler) HandleWeather(c *fiber.Ctx) error {
	var req ChatRequest
	if err := bind(c, &req); err != nil {
		return advisoryError(c, fmt.Errorf("%w: %v", services.ErrInvalidInput, err))
	}

	reply, err := h.advisory.Weather(c.UserContext(), req.UserInput)
	if err != nil {
		return advisoryError(c, err)
	}
	return c.JSON(reply)
}

// HandleCropImage accepts a multipart upload in the "file" field.
func (h *AdvisoryHandler) HandleCropImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return cropError(c, fiber.StatusBadRequest, "Error: an image must be uploaded in the 'file' field.")
	}
	if h.uploadMaxBytes > 0 && fh.Size > h.uploadMaxBytes {
		return cropError(c, fiber.StatusRequestEntityTooLarge, "Error: image is too large.")
	}

	f, err := fh.Open()
	if err != nil {
		return cropError(c, fiber.StatusBadRequest, "Error: Could not open image - "+err.Error())
	}
	defer f.Close()

	image, err := io.ReadAll(f)
	if err != nil {
		return cropError(c, fiber.StatusBadRequest, "Error: Could not open image - "+err.Error())
	}

	analysis, err := h.crops.Classify(c.UserContext(), image)
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return cropError(c, fiber.StatusBadRequest, "Error: the uploaded file is not an image.")
	case errors.Is(err, services.ErrAdvisoryUnavailable):
		return cropError(c, fiber.StatusServiceUnavailable, "Error: advisory service is not configured.")
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(analysis.Report)
	}

	if !analysis.Structured {
		return c.Type("txt").SendString(analysis.Raw)
	}
	return c.JSON(analysis.Report)
}

func cropError(c *fiber.Ctx, status int, description string) error {
	return c.Status(status).JSON(models.CropReport{
		CropName:    "unknown",
		Description: description,
	})
}

// advisoryError writes the {status, message} error body of the chat endpoints.
func advisoryError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status, message = fiber.StatusBadRequest, "Invalid input."
	case errors.Is(err, services.ErrNoResponse):
		message = "No response generated."
	case errors.Is(err, services.ErrAdvisoryUnavailable):
		status, message = fiber.StatusServiceUnavailable, "Advisory service is not configured."
	}
	return c.Status(status).JSON(models.AdvisoryReply{Status: "error", Message: message})
}
