// Package indexing keeps the similarity index in step with the topic repository.
package indexing

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/filter"
	domtopic "github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
	"github.com/SimondaVinciii/capbot-agent/internal/logger"
	"github.com/SimondaVinciii/capbot-agent/internal/repository/topicindex"
)

// Defaults for Config.
const (
	DefaultWorkers   = 4
	DefaultPageSize  = 200
	DefaultBatchSize = 32
)

// Config tunes bulk indexing.
type Config struct {
	Workers   int
	PageSize  int
	BatchSize int
}

// RebuildReport summarises a rebuild.
type RebuildReport struct {
	Indexed int
	Failed  int
}

// Service indexes topics.
type Service struct {
	index  Index
	embed  Embedder
	source Source
	cfg    Config
}

// New creates an indexing service. source may be nil when Rebuild is not used.
func New(index Index, embed Embedder, source Source, cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Service{index: index, embed: embed, source: source, cfg: cfg}
}

// IndexTopic embeds and upserts one topic. A positive versionID yields a
// versioned index id. Returns the index id.
func (s *Service) IndexTopic(ctx context.Context, t domtopic.Topic, versionID int64) (string, error) {
	if err := t.Content.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidTopic, err)
	}
	doc := t.Content.ComparisonDocument()

	emb, err := s.embed.Embed(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("embed topic %d: %w", t.ID, err)
	}

	e := entry(t, versionID, doc, emb.Embedding)
	if err := s.index.Upsert(ctx, e); err != nil {
		return "", fmt.Errorf("upsert topic %d: %w", t.ID, err)
	}
	return e.ID, nil
}

// IndexBatch embeds topics in one call when the embedder supports it and
// upserts them in a single pipeline.
func (s *Service) IndexBatch(ctx context.Context, topics []domtopic.Topic) (int, error) {
	if len(topics) == 0 {
		return 0, nil
	}
	docs := make([]string, len(topics))
	for i, t := range topics {
		if err := t.Content.Validate(); err != nil {
			return 0, fmt.Errorf("%w: topic %d: %w", domain.ErrInvalidTopic, t.ID, err)
		}
		docs[i] = t.Content.ComparisonDocument()
	}

	var (
		res domain.BatchEmbeddingResult
		err error
	)
	if be, ok := s.embed.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, docs)
	} else {
		res, err = domain.BatchFallback(ctx, s.embed, docs)
	}
	if err != nil {
		return 0, fmt.Errorf("embed %d topics: %w", len(topics), err)
	}
	if len(res.Embeddings) != len(topics) {
		return 0, fmt.Errorf("embed %d topics: got %d vectors: %w",
			len(topics), len(res.Embeddings), domain.ErrEmbeddingProviderError)
	}

	entries := make([]topicindex.Entry, len(topics))
	for i, t := range topics {
		entries[i] = entry(t, 0, docs[i], res.Embeddings[i])
	}
	if err := s.index.UpsertMany(ctx, entries); err != nil {
		return 0, fmt.Errorf("upsert %d topics: %w", len(entries), err)
	}
	return len(entries), nil
}

// Remove deletes an index entry.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

// List pages through the index, optionally restricted to one semester.
func (s *Service) List(ctx context.Context, semesterID, offset, limit int) (topicindex.ListResult, error) {
	var expr filter.Expression
	if semesterID > 0 {
		var err error
		expr, err = filter.AnyOf(filter.KeySemesterID, []int{semesterID})
		if err != nil {
			return topicindex.ListResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidTopic, err)
		}
	}
	res, err := s.index.List(ctx, expr, offset, limit)
	if err != nil {
		return topicindex.ListResult{}, fmt.Errorf("list index: %w", err)
	}
	return res, nil
}

// Stats describes the index.
func (s *Service) Stats(ctx context.Context) (topicindex.Stats, error) {
	st, err := s.index.Stats(ctx)
	if err != nil {
		return topicindex.Stats{}, fmt.Errorf("index stats: %w", err)
	}
	return st, nil
}

// Reset drops every entry and recreates the empty index.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	return nil
}

// Rebuild resets the index and reindexes every topic from the source with
// bounded concurrency. Failed batches are counted and skipped; configuration
// errors abort the rebuild.
func (s *Service) Rebuild(ctx context.Context) (RebuildReport, error) {
	if s.source == nil {
		return RebuildReport{}, fmt.Errorf("rebuild without topic source: %w", domain.ErrConfiguration)
	}
	log := logger.FromContext(ctx)

	if err := s.Reset(ctx); err != nil {
		return RebuildReport{}, err
	}

	var indexed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for offset := 0; ; offset += s.cfg.PageSize {
		page, err := s.source.ListAll(gctx, offset, s.cfg.PageSize)
		if err != nil {
			// A worker failure cancels gctx and is the root cause of the list error.
			if werr := g.Wait(); werr != nil {
				return RebuildReport{}, fmt.Errorf("rebuild: %w", werr)
			}
			return RebuildReport{}, fmt.Errorf("list topics at %d: %w", offset, err)
		}

		for start := 0; start < len(page); start += s.cfg.BatchSize {
			batch := page[start:min(start+s.cfg.BatchSize, len(page))]
			g.Go(func() error {
				n, err := s.IndexBatch(gctx, batch)
				if err != nil {
					if domain.IsFatal(err) {
						return err
					}
					failed.Add(int64(len(batch)))
					log.Warn("Rebuild batch failed",
						zap.Int64("first_topic_id", batch[0].ID),
						zap.Int("size", len(batch)),
						zap.Error(err),
					)
					return nil
				}
				indexed.Add(int64(n))
				return nil
			})
		}

		if len(page) < s.cfg.PageSize {
			break
		}
	}

	if err := g.Wait(); err != nil {
		return RebuildReport{}, fmt.Errorf("rebuild: %w", err)
	}

	report := RebuildReport{Indexed: int(indexed.Load()), Failed: int(failed.Load())}
	log.Info("Index rebuilt", zap.Int("indexed", report.Indexed), zap.Int("failed", report.Failed))
	return report, nil
}

func entry(t domtopic.Topic, versionID int64, doc string, vector []float32) topicindex.Entry {
	return topicindex.Entry{
		ID:     domtopic.IndexID(t.ID, versionID),
		Vector: vector,
		Text:   doc,
		Metadata: verdict.Metadata{
			Title:        t.Content.Title,
			SemesterID:   t.Content.SemesterID,
			CategoryID:   t.Content.CategoryID,
			SupervisorID: t.Content.SupervisorID,
			CreatedAt:    t.CreatedAt,
		},
	}
}
