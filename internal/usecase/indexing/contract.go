package indexing

import (
	"context"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/filter"
	domtopic "github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/repository/topicindex"
)

// Index is the write side of the similarity index.
type Index interface {
	Upsert(ctx context.Context, e topicindex.Entry) error
	UpsertMany(ctx context.Context, entries []topicindex.Entry) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, expr filter.Expression, offset, limit int) (topicindex.ListResult, error)
	Stats(ctx context.Context) (topicindex.Stats, error)
	Reset(ctx context.Context) error
}

// Embedder vectorizes comparison documents.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Source pages through the persisted topics for a rebuild.
type Source interface {
	ListAll(ctx context.Context, offset, limit int) ([]domtopic.Topic, error)
}
