package submit

import (
	"context"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
	domtopic "github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
)

// Resolver runs the duplicate check and optional modification.
type Resolver interface {
	Resolve(ctx context.Context, req resolution.Request) (resolution.Outcome, error)
}

// TopicStore persists accepted topics.
type TopicStore interface {
	TopicExistsByTitle(ctx context.Context, title string, semesterID int) (bool, error)
	CreateTopic(ctx context.Context, c domtopic.Content) (domtopic.Topic, error)
}

// Indexer adds a persisted topic to the similarity index.
type Indexer interface {
	IndexTopic(ctx context.Context, t domtopic.Topic, versionID int64) (string, error)
}
