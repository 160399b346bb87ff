package resolve

import (
	"context"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/proposal"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/strategy"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/detect"
)

// Checker classifies a proposal against the index.
type Checker interface {
	Check(ctx context.Context, req detect.Request) (verdict.Verdict, error)
}

// Modifier proposes a rewrite for a duplicate.
type Modifier interface {
	Propose(
		ctx context.Context, original topic.Content, v verdict.Verdict, preserveCoreIdea bool,
	) (proposal.Proposal, strategy.Strategy)
}

// Recorder persists processing statistics.
type Recorder interface {
	Incr(ctx context.Context, counters ...resolution.Counter) error
}
