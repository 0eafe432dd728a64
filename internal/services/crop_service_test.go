package services_test

import (
	"context"
	"errors"
	"testing"

	"agribuddy/internal/logging"
	"agribuddy/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func TestCropService_Classify(t *testing.T) {
	gen := new(MockContentGenerator)
	svc := services.NewCropService(gen, true, logging.Discard())
	ctx := context.Background()

	gen.On("GenerateWithImage", ctx, mock.AnythingOfType("string"), pngImage, "image/png", true).
		Return("```json\n{\"crop_name\":\"wheat\",\"growth_stage\":\"mature\",\"health_status\":\"healthy\",\"recommendations\":\"harvest soon\"}\n```", nil).Once()

	analysis, err := svc.Classify(ctx, pngImage)
	require.NoError(t, err)
	assert.True(t, analysis.Structured)
	assert.Equal(t, "wheat", analysis.Report.CropName)
	assert.Equal(t, "mature", analysis.Report.GrowthStage)
	assert.Equal(t, "harvest soon", analysis.Report.Recommendations)
	gen.AssertExpectations(t)
}

func TestCropService_Classify_Unrecognised(t *testing.T) {
	gen := new(MockContentGenerator)
	svc := services.NewCropService(gen, true, logging.Discard())
	ctx := context.Background()

	gen.On("GenerateWithImage", ctx, mock.Anything, pngImage, "image/png", true).
		Return(`{"crop_name":"unknown","description":"crop not recognized"}`, nil).Once()

	analysis, err := svc.Classify(ctx, pngImage)
	require.NoError(t, err)
	assert.Equal(t, "unknown", analysis.Report.CropName)
	assert.Equal(t, "crop not recognized", analysis.Report.Description)
}

func TestCropService_Classify_InvalidJSON(t *testing.T) {
	gen := new(MockContentGenerator)
	svc := services.NewCropService(gen, true, logging.Discard())
	ctx := context.Background()

	gen.On("GenerateWithImage", ctx, mock.Anything, pngImage, "image/png", true).Return("looks like wheat", nil).Once()

	analysis, err := svc.Classify(ctx, pngImage)
	assert.ErrorIs(t, err, services.ErrInvalidModelOutput)
	assert.Equal(t, "unknown", analysis.Report.CropName)
	assert.Equal(t, "Model did not return valid JSON.", analysis.Report.Description)
	assert.Equal(t, "looks like wheat", analysis.Report.RawResponse)
}

func TestCropService_Classify_PlainTextMode(t *testing.T) {
	gen := new(MockContentGenerator)
	svc := services.NewCropService(gen, false, logging.Discard())
	ctx := context.Background()

	gen.On("GenerateWithImage", ctx, mock.Anything, pngImage, "image/png", false).Return("wheat, mature", nil).Once()

	analysis, err := svc.Classify(ctx, pngImage)
	require.NoError(t, err)
	assert.False(t, analysis.Structured)
	assert.Equal(t, "wheat, mature", analysis.Raw)
}

func TestCropService_Classify_ModelError(t *testing.T) {
	gen := new(MockContentGenerator)
	svc := services.NewCropService(gen, true, logging.Discard())
	ctx := context.Background()

	boom := errors.New("deadline exceeded")
	gen.On("GenerateWithImage", ctx, mock.Anything, pngImage, "image/png", true).Return("", boom).Once()

	analysis, err := svc.Classify(ctx, pngImage)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Error: API call failed - deadline exceeded", analysis.Report.Description)
}

func TestCropService_Classify_RejectsNonImages(t *testing.T) {
	gen := new(MockContentGenerator)
	svc := services.NewCropService(gen, true, logging.Discard())

	_, err := svc.Classify(context.Background(), []byte("just some text"))
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = svc.Classify(context.Background(), nil)
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	gen.AssertNotCalled(t, "GenerateWithImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
