package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/metrics"
)

// instrumentedClient logs and measures every call of the wrapped client.
type instrumentedClient struct {
	Client
	logger *zap.Logger
}

// NewInstrumentedClient wraps client with request logging and Prometheus metrics.
func NewInstrumentedClient(client Client, logger *zap.Logger) Client {
	return &instrumentedClient{Client: client, logger: logger}
}

func (c *instrumentedClient) Generate(ctx context.Context, req Request) (string, error) {
	provider := c.Provider()
	c.logger.Debug("LLM request",
		zap.String("provider", provider),
		zap.String("model", c.Model()),
		zap.Int("prompt_len", len(req.Prompt)))

	start := time.Now()
	text, err := c.Client.Generate(ctx, req)
	elapsed := time.Since(start)
	metrics.LLMRequestDuration.WithLabelValues(provider).Observe(elapsed.Seconds())

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(provider, string(GetErrorType(err))).Inc()
		c.logger.Error("LLM request failed",
			zap.String("provider", provider),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", err
	}

	metrics.LLMRequestsTotal.WithLabelValues(provider, "ok").Inc()
	c.logger.Info("LLM request completed",
		zap.String("provider", provider),
		zap.Int("response_len", len(text)),
		zap.Duration("elapsed", elapsed))
	return text, nil
}
