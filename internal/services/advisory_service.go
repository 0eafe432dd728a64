package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"agribuddy/internal/models"
)

// ContentGenerator is a hosted generative model.
type ContentGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string, jsonOutput bool) (string, error)
}

// AdvisoryService answers farmer chat and weather questions.
type AdvisoryService struct {
	generator ContentGenerator
	logger    *slog.Logger
}

// NewAdvisoryService creates a new AdvisoryService. A nil generator makes every
// call fail with ErrAdvisoryUnavailable.
func NewAdvisoryService(generator ContentGenerator, logger *slog.Logger) *AdvisoryService {
	return &AdvisoryService{
		generator: generator,
		logger:    logger,
	}
}

// Chat answers input, taking the earlier conversation into account.
func (s *AdvisoryService) Chat(ctx context.Context, input, history string) (models.AdvisoryReply, error) {
	if err := requireInput(input); err != nil {
		return models.AdvisoryReply{}, err
	}
	prompt, err := render(chatPrompt, promptData{Input: input, History: history})
	if err != nil {
		return models.AdvisoryReply{}, fmt.Errorf("failed to render chat prompt: %w", err)
	}
	return s.ask(ctx, "chat", prompt)
}

// Weather suggests farm actions for the weather described in input.
func (s *AdvisoryService) Weather(ctx context.Context, input string) (models.AdvisoryReply, error) {
	if err := requireInput(input); err != nil {
		return models.AdvisoryReply{}, err
	}
	prompt, err := render(weatherPrompt, promptData{Input: input})
	if err != nil {
		return models.AdvisoryReply{}, fmt.Errorf("failed to render weather prompt: %w", err)
	}
	return s.ask(ctx, "weather", prompt)
}

func requireInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: user_input is required", ErrInvalidInput)
	}
	return nil
}

func (s *AdvisoryService) ask(ctx context.Context, kind, prompt string) (models.AdvisoryReply, error) {
	if s.generator == nil {
		return models.AdvisoryReply{}, ErrAdvisoryUnavailable
	}

	text, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		s.logger.ErrorContext(ctx, "model call failed", "kind", kind, "error", err)
		return models.AdvisoryReply{}, err
	}
	if strings.TrimSpace(text) == "" {
		s.logger.WarnContext(ctx, "model returned no text", "kind", kind)
		return models.AdvisoryReply{}, ErrNoResponse
	}
	return models.AdvisoryReply{Status: "success", Message: text}, nil
}
