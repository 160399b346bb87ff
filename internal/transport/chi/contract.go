package chi

import (
	"context"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/generation"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/proposal"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/strategy"
	domtopic "github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
	"github.com/SimondaVinciii/capbot-agent/internal/repository/stats"
	"github.com/SimondaVinciii/capbot-agent/internal/repository/topicindex"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/detect"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/health"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/indexing"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/submit"
)

// Checker classifies one topic against the index.
type Checker interface {
	Check(ctx context.Context, req detect.Request) (verdict.Verdict, error)
}

// Resolver runs the check, modify and recheck cycle.
type Resolver interface {
	Resolve(ctx context.Context, req resolution.Request) (resolution.Outcome, error)
}

// Modifier proposes rewrites and alternative directions.
type Modifier interface {
	Propose(
		ctx context.Context, original domtopic.Content, v verdict.Verdict, preserveCoreIdea bool,
	) (proposal.Proposal, strategy.Strategy)
	Alternatives(ctx context.Context, c domtopic.Content) []generation.Alternative
}

// Submitter stores new topics.
type Submitter interface {
	Submit(ctx context.Context, req submit.Request) (submit.Result, error)
}

// TopicReader reads persisted topics.
type TopicReader interface {
	GetTopicByID(ctx context.Context, id int64) (domtopic.Topic, error)
	ListTopicsBySemester(ctx context.Context, semesterID int) ([]domtopic.Topic, error)
}

// Indexer maintains the similarity index.
type Indexer interface {
	IndexTopic(ctx context.Context, t domtopic.Topic, versionID int64) (string, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context, semesterID, offset, limit int) (topicindex.ListResult, error)
	Stats(ctx context.Context) (topicindex.Stats, error)
	Reset(ctx context.Context) error
	Rebuild(ctx context.Context) (indexing.RebuildReport, error)
}

// StatsReader reads the processing counters.
type StatsReader interface {
	Snapshot(ctx context.Context) (stats.Snapshot, error)
}

// HealthChecker reports backend availability.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}
