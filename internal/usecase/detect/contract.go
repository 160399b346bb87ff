package detect

import (
	"context"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/filter"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/generation"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
)

// Index answers nearest-neighbour queries over indexed topics.
type Index interface {
	Query(ctx context.Context, vector []float32, k int, expr filter.Expression) ([]verdict.Candidate, error)
}

// Embedder vectorizes the comparison document.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Advisor explains a duplicate verdict and suggests how to fix it.
type Advisor interface {
	Analyze(ctx context.Context, document string, candidates []verdict.Candidate) (generation.Analysis, error)
}
