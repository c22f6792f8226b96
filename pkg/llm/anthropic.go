package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

type anthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a client for the Anthropic Messages API.
func NewAnthropicClient(apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is missing", ErrNotConfigured)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: anthropic model is required", ErrNotConfigured)
	}
	return &anthropicClient{client: anthropic.NewClient(apiKey), model: model}, nil
}

func (c *anthropicClient) Generate(ctx context.Context, req Request) (string, error) {
	temperature := req.Temperature
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      req.System,
		MaxTokens:   maxTokens(req),
		Temperature: &temperature,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &req.Prompt},
			}},
		},
	})
	if err != nil {
		return "", ClassifyError(ProviderAnthropic, c.model, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			sb.WriteString(*block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", emptyResponse(ProviderAnthropic, c.model)
	}
	return sb.String(), nil
}

func (c *anthropicClient) Provider() string { return ProviderAnthropic }
func (c *anthropicClient) Model() string    { return c.model }
