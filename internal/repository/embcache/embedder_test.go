package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/SimondaVinciii/capbot-agent/internal/db"
	"github.com/SimondaVinciii/capbot-agent/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	var setKey string
	ms.setFn = func(_ context.Context, key string, _ []byte) error {
		setKey = key
		return nil
	}

	res, err := ce.Embed(context.Background(), "topic text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 3 || res.TotalTokens != 10 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.HasPrefix(setKey, "capbot:emb_cache:") {
		t.Errorf("unexpected cache key %q", setKey)
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) {
		return vectorToCacheBytes([]float32{0.4, 0.5, 0.6}), nil
	}

	res, err := ce.Embed(context.Background(), "topic text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embedding[0] != 0.4 || res.TotalTokens != 0 {
		t.Fatalf("expected cached vector with zero tokens, got %+v", res)
	}
	if inner.calls != 0 {
		t.Error("inner embedder must not be called on a hit")
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	ce, _ := newTestCachedEmbedder(t, inner)

	_, err := ce.Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestEmbed_StoreErrorsDegradeToMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) { return nil, errors.New("conn reset") }
	ms.setFn = func(context.Context, string, []byte) error { return errors.New("conn reset") }

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("cache failures must not fail the request: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(context.Context, string) ([]byte, error) { return []byte{1, 2, 3}, nil }

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Error("corrupt entry must fall through to the inner embedder")
	}
}

func TestEmbed_TTL(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ms := &mockKVStore{}
	ce := New(inner, ms, "m", time.Hour, nil, zap.NewNop())

	var gotTTL time.Duration
	ms.setWithTTLFn = func(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
		gotTTL = ttl
		return nil
	}
	ms.setFn = func(context.Context, string, []byte) error {
		t.Error("Set must not be used when a TTL is configured")
		return nil
	}

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if gotTTL != time.Hour {
		t.Errorf("ttl = %v, want 1h", gotTTL)
	}
}

func TestCacheKey_DependsOnModel(t *testing.T) {
	a := New(nil, nil, "model-a", 0, nil, zap.NewNop())
	b := New(nil, nil, "model-b", 0, nil, zap.NewNop())
	if a.cacheKey("same") == b.cacheKey("same") {
		t.Error("different models must not share cache keys")
	}
	if a.cacheKey("same") != a.cacheKey("same") {
		t.Error("cache key must be deterministic")
	}
}

func TestCacheMetrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ms := &mockKVStore{}
	ce := New(inner, ms, "m", 0, counter, zap.NewNop())

	_, _ = ce.Embed(context.Background(), "x")
	ms.getFn = func(context.Context, string) ([]byte, error) { return vectorToCacheBytes([]float32{1}), nil }
	_, _ = ce.Embed(context.Background(), "x")

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit = %v, want 1", got)
	}
}

// --- BatchEmbed ---

func TestBatchEmbed_PartialHits(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2},
		PromptTokens: 5,
		TotalTokens:  5,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	hitKey := ce.cacheKey("cached")

	ms.getFn = func(_ context.Context, key string) ([]byte, error) {
		if key == hitKey {
			return vectorToCacheBytes([]float32{0.9, 0.8}), nil
		}
		return nil, db.ErrKeyNotFound
	}
	var puts int
	ms.setFn = func(context.Context, string, []byte) error {
		puts++
		return nil
	}

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "cached", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 || res.Embeddings[1][0] != 0.9 || res.Embeddings[0][0] != 0.1 {
		t.Fatalf("unexpected embeddings: %v", res.Embeddings)
	}
	if inner.batchCalls != 1 || len(inner.batchTexts) != 2 {
		t.Errorf("expected one batch call with 2 misses, got %d calls %v", inner.batchCalls, inner.batchTexts)
	}
	if puts != 2 || res.TotalTokens != 10 {
		t.Errorf("puts=%d tokens=%d", puts, res.TotalTokens)
	}
}

func TestBatchEmbed_AllHits(t *testing.T) {
	inner := &mockEmbedder{}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(context.Context, string) ([]byte, error) { return vectorToCacheBytes([]float32{0.9}), nil }

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.batchCalls != 0 || res.TotalTokens != 0 || len(res.Embeddings) != 2 {
		t.Errorf("unexpected: calls=%d res=%+v", inner.batchCalls, res)
	}
}

func TestBatchEmbed_FallbackForSingleEmbedder(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 2}}
	ce, _ := newTestCachedEmbedder(t, singleOnly{inner})

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 3 || res.TotalTokens != 6 {
		t.Errorf("calls=%d tokens=%d", inner.calls, res.TotalTokens)
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: domain.ErrRateLimited}
	ce, _ := newTestCachedEmbedder(t, inner)

	_, err := ce.BatchEmbed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}
