package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// Anthropic completes prompts against the Anthropic Messages API.
type Anthropic struct {
	llm         *anthropic.LLM
	timeout     time.Duration
	maxTokens   int
	temperature float64
}

// AnthropicOption configures the client.
type AnthropicOption func(*Anthropic)

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) AnthropicOption {
	return func(a *Anthropic) { a.maxTokens = n }
}

// WithTemperature sets the sampling temperature. Verdict scoring uses 0 for
// stable judgments.
func WithTemperature(t float64) AnthropicOption {
	return func(a *Anthropic) { a.temperature = t }
}

func NewAnthropic(apiKey, model string, timeout time.Duration, opts ...AnthropicOption) (*Anthropic, error) {
	llm, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}

	a := &Anthropic{
		llm:         llm,
		timeout:     timeout,
		maxTokens:   4096,
		temperature: 0.3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt,
		llms.WithMaxTokens(a.maxTokens),
		llms.WithTemperature(a.temperature),
	)
	if err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", err)
	}
	return out, nil
}
