package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"agribuddy/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

// CropAnalysis is the outcome of a crop photo request. When Structured is false
// the model was asked for plain text and Raw holds its unparsed answer.
type CropAnalysis struct {
	Report     models.CropReport
	Structured bool
	Raw        string
}

// CropService identifies crops and their condition from photos.
type CropService struct {
	generator  ContentGenerator
	structured bool
	logger     *slog.Logger
}

// NewCropService creates a new CropService. With structured set the model is
// asked for JSON and its answer is parsed into a CropReport.
func NewCropService(generator ContentGenerator, structured bool, logger *slog.Logger) *CropService {
	return &CropService{
		generator:  generator,
		structured: structured,
		logger:     logger,
	}
}

// Classify sends image to the model. On model failures the returned analysis
// still carries a report describing the failure.
func (s *CropService) Classify(ctx context.Context, image []byte) (CropAnalysis, error) {
	if len(image) == 0 {
		return CropAnalysis{}, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	mt := mimetype.Detect(image)
	if !strings.HasPrefix(mt.String(), "image/") {
		return CropAnalysis{}, fmt.Errorf("%w: unsupported file type %s", ErrInvalidInput, mt.String())
	}
	if s.generator == nil {
		return CropAnalysis{}, ErrAdvisoryUnavailable
	}

	text, err := s.generator.GenerateWithImage(ctx, cropPrompt, image, mt.String(), s.structured)
	if err != nil {
		s.logger.ErrorContext(ctx, "crop model call failed", "mime", mt.String(), "error", err)
		return CropAnalysis{
			Structured: true,
			Report: models.CropReport{
				CropName:    "unknown",
				Description: "Error: API call failed - " + err.Error(),
			},
		}, err
	}

	if !s.structured {
		return CropAnalysis{Raw: text}, nil
	}

	var report models.CropReport
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &report); err != nil || report.CropName == "" {
		s.logger.WarnContext(ctx, "crop model returned invalid JSON", "error", err)
		return CropAnalysis{
			Structured: true,
			Report: models.CropReport{
				CropName:    "unknown",
				Description: "Model did not return valid JSON.",
				RawResponse: text,
			},
		}, ErrInvalidModelOutput
	}
	return CropAnalysis{Report: report, Structured: true}, nil
}

// stripCodeFence removes a ```json fence some models wrap around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
