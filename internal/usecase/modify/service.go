// Package modify turns a duplicate verdict into a concrete rewrite proposal.
package modify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/generation"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/proposal"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/strategy"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
	"github.com/SimondaVinciii/capbot-agent/internal/logger"
	"github.com/SimondaVinciii/capbot-agent/internal/metrics"
)

// DefaultTimeout bounds a single generator call.
const DefaultTimeout = 30 * time.Second

// Service proposes modifications. It never fails: any generator problem
// yields the deterministic fallback proposal.
type Service struct {
	gen     Generator
	timeout time.Duration
}

// New creates a modify service. gen may be nil, in which case every proposal is the fallback.
func New(gen Generator, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{gen: gen, timeout: timeout}
}

// Propose picks a strategy for v and asks the generator for a rewrite of original.
func (s *Service) Propose(
	ctx context.Context,
	original topic.Content,
	v verdict.Verdict,
	preserveCoreIdea bool,
) (proposal.Proposal, strategy.Strategy) {
	strat := strategy.ForVerdict(v)
	log := logger.FromContext(ctx).With(zap.String("strategy", string(strat)))

	top := v.Candidates
	if len(top) > generation.MaxPromptCandidates {
		top = top[:generation.MaxPromptCandidates]
	}

	p := s.generate(ctx, log, original, generation.Request{
		Original:         original,
		Strategy:         strat,
		Similarity:       v.Similarity,
		TopCandidates:    top,
		PreserveCoreIdea: preserveCoreIdea,
	})
	metrics.ProposalsTotal.WithLabelValues(metrics.ProposalSource(p.Fallback)).Inc()
	return p, strat
}

func (s *Service) generate(
	ctx context.Context,
	log *zap.Logger,
	original topic.Content,
	req generation.Request,
) proposal.Proposal {
	if s.gen == nil {
		return proposal.Fallback(original)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.gen.Generate(genCtx, req)
	if err != nil {
		log.Warn("Generator failed, using fallback proposal", zap.Error(err))
		return proposal.Fallback(original)
	}

	p, err := proposal.Parse(raw, original)
	if err != nil {
		log.Warn("Generator reply unusable, using fallback proposal",
			zap.Error(err),
			zap.Int("reply_len", len(raw)),
		)
		return proposal.Fallback(original)
	}
	return p
}

// Alternatives suggests other directions for c. Failures yield an empty list.
func (s *Service) Alternatives(ctx context.Context, c topic.Content) []generation.Alternative {
	if s.gen == nil {
		return []generation.Alternative{}
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	alts, err := s.gen.Alternatives(genCtx, c)
	if err != nil {
		logger.FromContext(ctx).Warn("Alternative approaches unavailable", zap.Error(err))
		return []generation.Alternative{}
	}
	return alts
}
