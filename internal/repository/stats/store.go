// Package stats persists the processing counters as Redis integers (INCRBY + MGET).
package stats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
)

const keyPrefix = domain.KeyPrefix + "stats:"

// store is the consumer interface for counter operations (ISP).
type store interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
}

// Snapshot is a point-in-time read of all counters.
type Snapshot map[resolution.Counter]int64

// Store keeps processing counters in the key-value store.
type Store struct {
	store store
}

// New creates a counter store.
func New(s store) *Store {
	return &Store{store: s}
}

// Incr adds one to each of the given counters.
func (s *Store) Incr(ctx context.Context, counters ...resolution.Counter) error {
	for _, c := range counters {
		if _, err := s.store.IncrBy(ctx, key(c), 1); err != nil {
			return fmt.Errorf("stats INCRBY %s: %w", c, err)
		}
	}
	return nil
}

// Snapshot returns every counter. Missing keys read as zero.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	keys := make([]string, len(resolution.Counters))
	for i, c := range resolution.Counters {
		keys[i] = key(c)
	}

	values, err := s.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("stats MGET: %w", err)
	}
	if len(values) != len(keys) {
		return nil, fmt.Errorf("stats MGET: got %d values for %d keys", len(values), len(keys))
	}

	snap := make(Snapshot, len(resolution.Counters))
	for i, c := range resolution.Counters {
		if values[i] == nil {
			snap[c] = 0
			continue
		}
		n, err := strconv.ParseInt(string(values[i]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stats %s parse: %w", c, err)
		}
		snap[c] = n
	}
	return snap, nil
}

func key(c resolution.Counter) string {
	return keyPrefix + string(c)
}
