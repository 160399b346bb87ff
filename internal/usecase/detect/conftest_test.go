package detect

import (
	"context"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/filter"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/generation"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
)

type mockIndex struct {
	queryFn func(ctx context.Context, vector []float32, k int, expr filter.Expression) ([]verdict.Candidate, error)
	calls   []filter.Expression
}

func (m *mockIndex) Query(
	ctx context.Context,
	vector []float32,
	k int,
	expr filter.Expression,
) ([]verdict.Candidate, error) {
	m.calls = append(m.calls, expr)
	if m.queryFn != nil {
		return m.queryFn(ctx, vector, k, expr)
	}
	return nil, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0, 0}}, nil
}

type mockAdvisor struct {
	analyzeFn func(ctx context.Context, document string, candidates []verdict.Candidate) (generation.Analysis, error)
}

func (m *mockAdvisor) Analyze(
	ctx context.Context,
	document string,
	candidates []verdict.Candidate,
) (generation.Analysis, error) {
	return m.analyzeFn(ctx, document, candidates)
}

func cand(id string, sim float64, title string) verdict.Candidate {
	return verdict.Candidate{ID: id, Similarity: sim, Metadata: verdict.Metadata{Title: title}}
}

func results(c ...verdict.Candidate) func(context.Context, []float32, int, filter.Expression) ([]verdict.Candidate, error) {
	return func(context.Context, []float32, int, filter.Expression) ([]verdict.Candidate, error) {
		return c, nil
	}
}
