package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agribuddy/internal/logging"
	"agribuddy/internal/models"
	"agribuddy/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockContentGenerator is a mock implementation of services.ContentGenerator
type MockContentGenerator struct {
	mock.Mock
}

func (m *MockContentGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockContentGenerator) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string, jsonOutput bool) (string, error) {
	args := m.Called(ctx, prompt, image, mimeType, jsonOutput)
	return args.String(0), args.Error(1)
}

func promptContains(parts ...string) interface{} {
	return mock.MatchedBy(func(prompt string) bool {
		for _, p := range parts {
			if !strings.Contains(prompt, p) {
				return false
			}
		}
		return true
	})
}

func TestAdvisoryService_Chat(t *testing.T) {
	gen := new(MockContentGenerator)
	svc := services.NewAdvisoryService(gen, logging.Discard())
	ctx := context.Background()

	gen.On("GenerateText", ctx, promptContains("AgriBuddy", "When should I sow wheat?", "farmer: hello")).
		Return("Namaste! Sow wheat in early November.", nil).Once()

	reply, err := svc.Chat(ctx, "When should I sow wheat?", "farmer: hello")
	require.NoError(t, err)
	assert.Equal(t, models.AdvisoryReply{Status: "success", Message: "Namaste! Sow wheat in early November."}, reply)
	gen.AssertExpectations(t)
}

func TestAdvisoryService_Weather(t *testing.T) {
	gen := new(MockContentGenerator)
	svc := services.NewAdvisoryService(gen, logging.Discard())
	ctx := context.Background()

	gen.On("GenerateText", ctx, promptContains("weather", "heavy rain tomorrow")).Return("Clear the drainage channels.", nil).Once()

	reply, err := svc.Weather(ctx, "heavy rain tomorrow")
	require.NoError(t, err)
	assert.Equal(t, "Clear the drainage channels.", reply.Message)
	gen.AssertExpectations(t)
}

func TestAdvisoryService_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("empty response", func(t *testing.T) {
		gen := new(MockContentGenerator)
		gen.On("GenerateText", ctx, mock.Anything).Return("  ", nil).Once()

		_, err := services.NewAdvisoryService(gen, logging.Discard()).Chat(ctx, "hi", "")
		assert.ErrorIs(t, err, services.ErrNoResponse)
	})

	t.Run("model error", func(t *testing.T) {
		gen := new(MockContentGenerator)
		boom := errors.New("quota exceeded")
		gen.On("GenerateText", ctx, mock.Anything).Return("", boom).Once()

		_, err := services.NewAdvisoryService(gen, logging.Discard()).Weather(ctx, "sunny")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty input", func(t *testing.T) {
		gen := new(MockContentGenerator)
		svc := services.NewAdvisoryService(gen, logging.Discard())

		_, err := svc.Chat(ctx, "   ", "farmer: hello")
		assert.ErrorIs(t, err, services.ErrInvalidInput)
		_, err = svc.Weather(ctx, "")
		assert.ErrorIs(t, err, services.ErrInvalidInput)
		gen.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := services.NewAdvisoryService(nil, logging.Discard()).Chat(ctx, "hi", "")
		assert.ErrorIs(t, err, services.ErrAdvisoryUnavailable)
	})
}
