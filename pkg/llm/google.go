package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type googleClient struct {
	client *genai.Client
	model  string
}

// NewGoogleClient creates a client for the Gemini API.
func NewGoogleClient(ctx context.Context, apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: google API key is missing", ErrNotConfigured)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: google model is required", ErrNotConfigured)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &googleClient{client: client, model: model}, nil
}

func (c *googleClient) Generate(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens(req)),
		Temperature:     genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", ClassifyError(ProviderGoogle, c.model, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", emptyResponse(ProviderGoogle, c.model)
	}
	return text, nil
}

func (c *googleClient) Provider() string { return ProviderGoogle }
func (c *googleClient) Model() string    { return c.model }
