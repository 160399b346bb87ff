package domain

import (
	"context"
	"sync/atomic"
)

type usageKey struct{}

// Usage collects provider token usage for a single request.
// The handler puts a pointer into the context, services add to it, the handler
// reports it in response headers. Safe for concurrent use.
type Usage struct {
	embedding  atomic.Int64
	generation atomic.Int64
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the collector or nil.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbedding records embedding tokens. Safe on a nil receiver.
func (u *Usage) AddEmbedding(n int) {
	if u != nil {
		u.embedding.Add(int64(n))
	}
}

// AddGeneration records generation tokens. Safe on a nil receiver.
func (u *Usage) AddGeneration(n int) {
	if u != nil {
		u.generation.Add(int64(n))
	}
}

// EmbeddingTokens returns the embedding tokens recorded so far.
func (u *Usage) EmbeddingTokens() int64 {
	if u == nil {
		return 0
	}
	return u.embedding.Load()
}

// GenerationTokens returns the generation tokens recorded so far.
func (u *Usage) GenerationTokens() int64 {
	if u == nil {
		return 0
	}
	return u.generation.Load()
}
