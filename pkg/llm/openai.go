package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// openAIClient talks to OpenAI and OpenAI-compatible endpoints (Ollama, the Apollo gateway).
type openAIClient struct {
	client   *openai.Client
	provider string
	model    string
}

// NewOpenAICompatibleClient creates a client for an OpenAI-compatible chat completions endpoint.
// An empty baseURL keeps the public OpenAI endpoint. httpClient may be nil.
func NewOpenAICompatibleClient(provider, baseURL, apiKey, model string, httpClient *http.Client) (Client, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: %s model is required", ErrNotConfigured, provider)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	return &openAIClient{
		client:   openai.NewClientWithConfig(cfg),
		provider: provider,
		model:    model,
	}, nil
}

func (c *openAIClient) Generate(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens(req),
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", ClassifyError(c.provider, c.model, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", emptyResponse(c.provider, c.model)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) Provider() string { return c.provider }
func (c *openAIClient) Model() string    { return c.model }
