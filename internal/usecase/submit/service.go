// Package submit accepts a new topic: it checks and optionally rewrites it,
// stores it and indexes it for future checks.
package submit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
	domtopic "github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
	"github.com/SimondaVinciii/capbot-agent/internal/logger"
)

// Request is one submission.
type Request struct {
	resolution.Request
	// SkipCheck stores the topic without a duplicate check.
	SkipCheck bool
}

// Result is the stored topic plus what happened on the way.
type Result struct {
	Topic domtopic.Topic
	// Outcome is zero when the check was skipped.
	Outcome  resolution.Outcome
	Indexed  bool
	Messages []string
}

// Service handles topic submissions.
type Service struct {
	resolver Resolver
	topics   TopicStore
	indexer  Indexer
}

// New creates a submission service.
func New(resolver Resolver, topics TopicStore, indexer Indexer) *Service {
	return &Service{resolver: resolver, topics: topics, indexer: indexer}
}

// Submit resolves, stores and indexes a topic. A title already used in the
// semester yields domain.ErrTopicExists. Indexing failures are logged and
// reported in the messages only.
func (s *Service) Submit(ctx context.Context, req Request) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result

	content := req.Content
	if req.SkipCheck {
		if err := content.Validate(); err != nil {
			return Result{}, fmt.Errorf("%w: %w", domain.ErrInvalidTopic, err)
		}
	} else {
		out, err := s.resolver.Resolve(ctx, req.Request)
		if err != nil {
			return Result{}, fmt.Errorf("resolve submission: %w", err)
		}
		res.Outcome = out
		res.Messages = outcomeMessages(out)
		content = out.FinalContent(req.Content)
	}

	exists, err := s.topics.TopicExistsByTitle(ctx, content.Title, content.SemesterID)
	if err != nil {
		return Result{}, fmt.Errorf("check title: %w", err)
	}
	if exists {
		return Result{}, fmt.Errorf("title %q in semester %d: %w", content.Title, content.SemesterID, domain.ErrTopicExists)
	}

	t, err := s.topics.CreateTopic(ctx, content)
	if err != nil {
		return Result{}, fmt.Errorf("create topic: %w", err)
	}
	res.Topic = t
	res.Messages = append(res.Messages, fmt.Sprintf("Topic created with id %d", t.ID))

	if _, err := s.indexer.IndexTopic(ctx, t, 0); err != nil {
		log.Warn("Failed to index new topic", zap.Int64("topic_id", t.ID), zap.Error(err))
		res.Messages = append(res.Messages, "Topic could not be indexed yet; it will be picked up by the next rebuild")
	} else {
		res.Indexed = true
		res.Messages = append(res.Messages, "Topic indexed for future duplicate checks")
	}

	log.Info("Topic submitted",
		zap.Int64("topic_id", t.ID),
		zap.Bool("modified", res.Outcome.Modified()),
		zap.Bool("indexed", res.Indexed),
	)
	return res, nil
}

func outcomeMessages(out resolution.Outcome) []string {
	v0 := out.InitialVerdict
	if v0.Degraded {
		return []string{"Duplicate check unavailable; the topic was accepted without comparison"}
	}

	var msgs []string
	switch v0.Status {
	case verdict.DuplicateFound:
		msgs = append(msgs, fmt.Sprintf("Duplicate detected with similarity %s", percent(v0.Similarity)))
	case verdict.PotentialDuplicate:
		msgs = append(msgs, fmt.Sprintf("Potential duplicate detected with similarity %s", percent(v0.Similarity)))
	default:
		msgs = append(msgs, "Topic is original, no duplicates detected")
	}

	if out.Modified() {
		msgs = append(msgs, "Topic was modified automatically to reduce duplication")
		msgs = append(msgs, fmt.Sprintf("Similarity after modification: %s", percent(out.FinalVerdict.Similarity)))
	}
	return msgs
}

func percent(sim float64) string {
	return fmt.Sprintf("%.2f%%", sim*100)
}
