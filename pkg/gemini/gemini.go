package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Config holds the model client settings.
type Config struct {
	APIKey      string
	TextModel   string
	VisionModel string
	// BaseURL overrides the API endpoint. Empty uses the public Gemini API.
	BaseURL string
}

// Client generates content with the Gemini API.
type Client struct {
	client      *genai.Client
	textModel   string
	visionModel string
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		client:      client,
		textModel:   cfg.TextModel,
		visionModel: cfg.VisionModel,
	}, nil
}

// GenerateText sends a single text prompt to the text model.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", c.textModel, err)
	}
	return responseText(resp), nil
}

// GenerateWithImage sends prompt and an inline image to the vision model. With
// jsonOutput set the model is asked to answer in application/json.
func (c *Client) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string, jsonOutput bool) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var config *genai.GenerateContentConfig
	if jsonOutput {
		config = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.visionModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", c.visionModel, err)
	}
	return responseText(resp), nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
