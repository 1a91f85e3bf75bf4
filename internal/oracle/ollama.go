package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Ollama completes prompts against a local model server, for running the
// whole pipeline without a hosted API.
type Ollama struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

func NewOllama(model string, timeout time.Duration) (*Ollama, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama model cannot be empty")
	}

	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	return &Ollama{client: client, model: model, timeout: timeout}, nil
}

func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: new(bool),
	}

	var out strings.Builder
	respFunc := func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	}

	if err := o.client.Generate(ctx, req, respFunc); err != nil {
		return "", fmt.Errorf("ollama completion failed: %w", err)
	}
	return out.String(), nil
}
