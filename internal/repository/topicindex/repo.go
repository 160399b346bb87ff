// Package topicindex stores topic embeddings in a Redis/Valkey vector index
// and answers nearest-neighbour queries over them.
package topicindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SimondaVinciii/capbot-agent/internal/db"
	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/filter"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
)

// store is the consumer interface for the index (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, q *db.ListQuery) (int, error)
}

// Config describes the index layout.
type Config struct {
	IndexName          string
	KeyPrefix          string
	Dimension          int
	HNSWM              int
	HNSWEFConstruction int
}

// Entry is one indexed topic.
type Entry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata verdict.Metadata
}

// ListResult is one page of entries. Vectors are not returned.
type ListResult struct {
	Entries    []Entry
	Total      int
	NextOffset int
	HasMore    bool
}

// Stats summarises the index.
type Stats struct {
	Count     int
	IndexName string
	Dimension int
}

// Repo implements the similarity index over db.Store.
type Repo struct {
	store store
	cfg   Config
}

// New creates an index repository. Empty name and prefix get defaults under domain.KeyPrefix.
func New(s store, cfg Config) *Repo {
	if cfg.IndexName == "" {
		cfg.IndexName = domain.KeyPrefix + "topics"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = domain.KeyPrefix + "topic:"
	}
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the index when it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return nil
	}
	return r.create(ctx)
}

func (r *Repo) create(ctx context.Context) error {
	def, err := db.NewIndex(r.cfg.IndexName).
		Prefix(r.cfg.KeyPrefix).
		Text(fieldTitle).
		Tag(filter.KeySemesterID).
		Tag(filter.KeyCategoryID).
		Tag(filter.KeySupervisorID).
		Numeric(fieldCreatedAt).
		Vector(fieldVector, r.cfg.Dimension, db.DistanceCosine, r.cfg.HNSWM, r.cfg.HNSWEFConstruction).
		Build()
	if err != nil {
		return fmt.Errorf("index definition: %w: %w", domain.ErrConfiguration, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return nil
}

// Upsert writes an entry; re-upserting the same id overwrites it.
func (r *Repo) Upsert(ctx context.Context, e Entry) error {
	if err := r.validate(e); err != nil {
		return err
	}
	key := r.key(e.ID)
	if err := r.store.HSet(ctx, key, buildFields(e)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// UpsertMany writes entries in one pipeline. Nothing is written when any entry is invalid.
func (r *Repo) UpsertMany(ctx context.Context, entries []Entry) error {
	items := make([]db.HashSetItem, 0, len(entries))
	for _, e := range entries {
		if err := r.validate(e); err != nil {
			return fmt.Errorf("entry %s: %w", e.ID, err)
		}
		items = append(items, db.HashSetItem{Key: r.key(e.ID), Fields: buildFields(e)})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset batch of %d: %w", len(items), err)
	}
	return nil
}

// Delete removes an entry. A missing id yields domain.ErrTopicNotFound.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.key(id)
	existed, err := r.store.Del(ctx, key)
	if err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if !existed {
		return domain.ErrTopicNotFound
	}
	return nil
}

// Query returns the k nearest entries to vector, optionally restricted by expr.
func (r *Repo) Query(ctx context.Context, vector []float32, k int, expr filter.Expression) ([]verdict.Candidate, error) {
	if err := domain.CheckDimension(vector, r.cfg.Dimension); err != nil {
		return nil, err
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		VectorField:  fieldVector,
		Filters:      expr,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w: %w", r.cfg.IndexName, domain.ErrIndexUnavailable, err)
	}

	out := make([]verdict.Candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, verdict.Candidate{
			ID:         r.id(e.Key),
			Document:   e.Fields[fieldContent],
			Similarity: e.Score,
			Metadata:   parseMetadata(e.Fields),
		})
	}
	return out, nil
}

// List returns a page of entries ordered by creation time.
func (r *Repo) List(ctx context.Context, expr filter.Expression, offset, limit int) (ListResult, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    r.cfg.IndexName,
		Filters:      expr,
		Offset:       offset,
		Limit:        limit,
		ReturnFields: returnFields,
		SortBy:       fieldCreatedAt,
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list %s: %w: %w", r.cfg.IndexName, domain.ErrIndexUnavailable, err)
	}

	out := ListResult{Total: res.Total, Entries: make([]Entry, 0, len(res.Entries))}
	for _, e := range res.Entries {
		out.Entries = append(out.Entries, Entry{
			ID:       r.id(e.Key),
			Text:     e.Fields[fieldContent],
			Metadata: parseMetadata(e.Fields),
		})
	}
	if next := offset + len(res.Entries); next < res.Total && len(res.Entries) > 0 {
		out.NextOffset, out.HasMore = next, true
	}
	return out, nil
}

// Stats returns the entry count and the index layout.
func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	n, err := r.store.SearchCount(ctx, &db.ListQuery{IndexName: r.cfg.IndexName})
	if err != nil {
		return Stats{}, fmt.Errorf("count %s: %w: %w", r.cfg.IndexName, domain.ErrIndexUnavailable, err)
	}
	return Stats{Count: n, IndexName: r.cfg.IndexName, Dimension: r.cfg.Dimension}, nil
}

// Reset drops the index with all its entries and recreates it empty.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.cfg.IndexName, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.cfg.IndexName, err)
	}
	return r.create(ctx)
}

func (r *Repo) validate(e Entry) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: index id is required", domain.ErrInvalidTopic)
	}
	return domain.CheckDimension(e.Vector, r.cfg.Dimension)
}

func (r *Repo) key(id string) string {
	return r.cfg.KeyPrefix + id
}

func (r *Repo) id(key string) string {
	return strings.TrimPrefix(key, r.cfg.KeyPrefix)
}
