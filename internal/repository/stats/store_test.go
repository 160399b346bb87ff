package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
)

type mockStore struct {
	incrByFn func(ctx context.Context, key string, val int64) (int64, error)
	mgetFn   func(ctx context.Context, keys []string) ([][]byte, error)
}

func (m *mockStore) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	if m.incrByFn != nil {
		return m.incrByFn(ctx, key, val)
	}
	return val, nil
}

func (m *mockStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if m.mgetFn != nil {
		return m.mgetFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func TestIncr(t *testing.T) {
	var got []string
	ms := &mockStore{incrByFn: func(_ context.Context, key string, val int64) (int64, error) {
		if val != 1 {
			t.Errorf("increment = %d, want 1", val)
		}
		got = append(got, key)
		return 1, nil
	}}

	if err := New(ms).Incr(context.Background(), resolution.CounterTotalRequests, resolution.CounterDuplicatesFound); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"capbot:stats:total_requests", "capbot:stats:duplicates_found"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestIncr_Error(t *testing.T) {
	ms := &mockStore{incrByFn: func(context.Context, string, int64) (int64, error) {
		return 0, errors.New("conn refused")
	}}
	if err := New(ms).Incr(context.Background(), resolution.CounterTotalRequests); err == nil {
		t.Fatal("expected error")
	}
}

func TestSnapshot(t *testing.T) {
	ms := &mockStore{mgetFn: func(_ context.Context, keys []string) ([][]byte, error) {
		if len(keys) != len(resolution.Counters) {
			t.Fatalf("keys = %d, want %d", len(keys), len(resolution.Counters))
		}
		return [][]byte{[]byte("7"), []byte("3"), nil, []byte("2"), []byte("1")}, nil
	}}

	snap, err := New(ms).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		counter resolution.Counter
		want    int64
	}{
		{resolution.CounterTotalRequests, 7},
		{resolution.CounterDuplicatesFound, 3},
		{resolution.CounterPotentialDuplicates, 0},
		{resolution.CounterModificationsMade, 2},
		{resolution.CounterFallbackProposals, 1},
	}
	for _, tt := range tests {
		if snap[tt.counter] != tt.want {
			t.Errorf("%s = %d, want %d", tt.counter, snap[tt.counter], tt.want)
		}
	}
}

func TestSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, []string) ([][]byte, error)
	}{
		{"store error", func(context.Context, []string) ([][]byte, error) { return nil, errors.New("boom") }},
		{"short reply", func(context.Context, []string) ([][]byte, error) { return [][]byte{nil}, nil }},
		{"not a number", func(_ context.Context, keys []string) ([][]byte, error) {
			out := make([][]byte, len(keys))
			out[0] = []byte("abc")
			return out, nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(&mockStore{mgetFn: tt.fn}).Snapshot(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
