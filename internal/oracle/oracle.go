package oracle

import "context"

// Client is a text-completion handle shared read-only across pipeline stages
// and filter workers. Implementations are safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
