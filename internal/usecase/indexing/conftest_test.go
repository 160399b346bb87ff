package indexing

import (
	"context"
	"fmt"
	"sync"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/filter"
	domtopic "github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/repository/topicindex"
)

type mockIndex struct {
	mu           sync.Mutex
	upserted     []topicindex.Entry
	upsertFn     func(ctx context.Context, e topicindex.Entry) error
	upsertManyFn func(ctx context.Context, entries []topicindex.Entry) error
	deleteFn     func(ctx context.Context, id string) error
	listFn       func(ctx context.Context, expr filter.Expression, offset, limit int) (topicindex.ListResult, error)
	statsFn      func(ctx context.Context) (topicindex.Stats, error)
	resetFn      func(ctx context.Context) error
	resets       int
}

func (m *mockIndex) Upsert(ctx context.Context, e topicindex.Entry) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, e)
	}
	m.mu.Lock()
	m.upserted = append(m.upserted, e)
	m.mu.Unlock()
	return nil
}

func (m *mockIndex) UpsertMany(ctx context.Context, entries []topicindex.Entry) error {
	if m.upsertManyFn != nil {
		return m.upsertManyFn(ctx, entries)
	}
	m.mu.Lock()
	m.upserted = append(m.upserted, entries...)
	m.mu.Unlock()
	return nil
}

func (m *mockIndex) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockIndex) List(ctx context.Context, expr filter.Expression, offset, limit int) (topicindex.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, expr, offset, limit)
	}
	return topicindex.ListResult{}, nil
}

func (m *mockIndex) Stats(ctx context.Context) (topicindex.Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return topicindex.Stats{}, nil
}

func (m *mockIndex) Reset(ctx context.Context) error {
	m.resets++
	if m.resetFn != nil {
		return m.resetFn(ctx)
	}
	return nil
}

func (m *mockIndex) entries() []topicindex.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]topicindex.Entry(nil), m.upserted...)
}

// mockEmbedder supports both single and batch calls.
type mockEmbedder struct {
	mu         sync.Mutex
	err        error
	failOn     string
	batchCalls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, text := range texts {
		if m.failOn != "" && text == m.failOn {
			return domain.BatchEmbeddingResult{}, domain.ErrEmbeddingProviderError
		}
		out.Embeddings[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

// singleEmbedder hides BatchEmbed.
type singleEmbedder struct{ calls int }

func (s *singleEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.calls++
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

type mockSource struct {
	topics    []domtopic.Topic
	err       error
	listAllFn func(ctx context.Context, offset, limit int) ([]domtopic.Topic, error)
}

func (m *mockSource) ListAll(ctx context.Context, offset, limit int) ([]domtopic.Topic, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, offset, limit)
	}
	if m.err != nil {
		return nil, m.err
	}
	if offset >= len(m.topics) {
		return nil, nil
	}
	return m.topics[offset:min(offset+limit, len(m.topics))], nil
}

func topics(n int) []domtopic.Topic {
	out := make([]domtopic.Topic, n)
	for i := range out {
		out[i] = domtopic.Topic{
			ID:      int64(i + 1),
			Content: domtopic.Content{Title: fmt.Sprintf("Topic %d", i+1), SemesterID: 1},
		}
	}
	return out
}
