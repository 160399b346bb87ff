package submit

import (
	"context"
	"time"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
	domtopic "github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
)

type mockResolver struct {
	resolveFn func(ctx context.Context, req resolution.Request) (resolution.Outcome, error)
	calls     int
}

func (m *mockResolver) Resolve(ctx context.Context, req resolution.Request) (resolution.Outcome, error) {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, req)
	}
	return resolution.Outcome{}, nil
}

type mockTopicStore struct {
	existsFn func(ctx context.Context, title string, semesterID int) (bool, error)
	createFn func(ctx context.Context, c domtopic.Content) (domtopic.Topic, error)
	created  []domtopic.Content
}

func (m *mockTopicStore) TopicExistsByTitle(ctx context.Context, title string, semesterID int) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, title, semesterID)
	}
	return false, nil
}

func (m *mockTopicStore) CreateTopic(ctx context.Context, c domtopic.Content) (domtopic.Topic, error) {
	m.created = append(m.created, c)
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return domtopic.Topic{ID: int64(len(m.created)), Content: c, CreatedAt: time.Unix(1700000000, 0).UTC()}, nil
}

type mockIndexer struct {
	indexFn func(ctx context.Context, t domtopic.Topic, versionID int64) (string, error)
	indexed []domtopic.Topic
}

func (m *mockIndexer) IndexTopic(ctx context.Context, t domtopic.Topic, versionID int64) (string, error) {
	m.indexed = append(m.indexed, t)
	if m.indexFn != nil {
		return m.indexFn(ctx, t, versionID)
	}
	return domtopic.IndexID(t.ID, versionID), nil
}
