package cache

import (
	"context"

	"briefcast/internal/types"
)

// Store is the fetch cache: content-addressed by query fingerprint, with a
// short staleness threshold. The cache is advisory — a miss (including any
// corrupt or unreadable entry) just means the caller refetches, and writes
// are whole-entry overwrites, so concurrent runs can race without corrupting
// anything.
type Store interface {
	// Get returns the cached newsletters for a fingerprint, or false if the
	// entry is missing, stale, or unreadable.
	Get(ctx context.Context, fingerprint string) ([]types.Newsletter, bool)

	// Put overwrites the entry for a fingerprint.
	Put(ctx context.Context, fingerprint string, items []types.Newsletter) error
}
