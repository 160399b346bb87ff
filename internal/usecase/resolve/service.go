// Package resolve runs the check, modify and recheck cycle for one proposal.
package resolve

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/proposal"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
	"github.com/SimondaVinciii/capbot-agent/internal/logger"
	"github.com/SimondaVinciii/capbot-agent/internal/metrics"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/detect"
)

// Service orchestrates at most one modification cycle per request.
type Service struct {
	checker  Checker
	modifier Modifier
	recorder Recorder
}

// New creates a resolve service. recorder may be nil.
func New(checker Checker, modifier Modifier, recorder Recorder) *Service {
	return &Service{checker: checker, modifier: modifier, recorder: recorder}
}

// Resolve checks req.Content and, when it is a duplicate and AutoModify is set,
// applies one proposal and rechecks it. Only invalid input and configuration
// errors are returned; backend outages surface as degraded verdicts.
func (s *Service) Resolve(ctx context.Context, req resolution.Request) (resolution.Outcome, error) {
	if err := req.Validate(); err != nil {
		return resolution.Outcome{}, fmt.Errorf("%w: %w", domain.ErrInvalidTopic, err)
	}

	out := resolution.Outcome{RunID: uuid.NewString(), State: resolution.StateChecking}
	ctx, log := logger.With(ctx, zap.String("run_id", out.RunID))
	s.record(ctx, log, resolution.CounterTotalRequests)

	initial, err := s.checker.Check(ctx, s.checkRequest(req, req.Content))
	if err != nil {
		return resolution.Outcome{}, fmt.Errorf("initial check: %w", err)
	}
	out.InitialVerdict = initial
	out.FinalVerdict = initial
	s.recordVerdict(ctx, log, initial)

	if !initial.IsDuplicate() || !req.AutoModify {
		out.State = resolution.StateDone
		log.Debug("Resolution finished without modification",
			zap.String("status", string(initial.Status)),
			zap.Bool("auto_modify", req.AutoModify),
		)
		return out, nil
	}

	out.State = resolution.StateModifying
	p, strat := s.modifier.Propose(ctx, req.Content, initial, req.PreserveCoreIdea)
	out.Strategy = strat
	out.AppliedProposal = &p
	s.record(ctx, log, resolution.CounterModificationsMade)
	if p.Fallback {
		s.record(ctx, log, resolution.CounterFallbackProposals)
	}

	rechecked, err := s.checker.Check(ctx, s.checkRequest(req, p.Content))
	if err != nil {
		return resolution.Outcome{}, fmt.Errorf("recheck: %w", err)
	}
	out.State = resolution.StateRechecked
	out.FinalVerdict = rechecked
	out.EstimatedImprovement = proposal.EstimateImprovement(initial.Similarity, len(p.ModificationsMade))
	// A degraded recheck scored nothing, so there is no measured improvement.
	if !rechecked.Degraded {
		out.Improvement = initial.Similarity - rechecked.Similarity
		metrics.ResolutionImprovement.Observe(out.Improvement)
	}

	log.Info("Resolution completed",
		zap.String("strategy", string(strat)),
		zap.String("initial_status", string(initial.Status)),
		zap.String("final_status", string(rechecked.Status)),
		zap.Float64("improvement", out.Improvement),
		zap.Bool("fallback_proposal", p.Fallback),
		zap.Bool("recheck_degraded", rechecked.Degraded),
	)
	out.State = resolution.StateDone
	return out, nil
}

func (s *Service) checkRequest(req resolution.Request, content topic.Content) detect.Request {
	return detect.Request{
		Content:       content,
		Threshold:     req.Threshold,
		ExcludeID:     req.ExcludeID,
		SemesterScope: req.SemesterScope,
	}
}

func (s *Service) recordVerdict(ctx context.Context, log *zap.Logger, v verdict.Verdict) {
	switch v.Status {
	case verdict.DuplicateFound:
		s.record(ctx, log, resolution.CounterDuplicatesFound)
	case verdict.PotentialDuplicate:
		s.record(ctx, log, resolution.CounterPotentialDuplicates)
	}
}

func (s *Service) record(ctx context.Context, log *zap.Logger, c resolution.Counter) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Incr(ctx, c); err != nil {
		log.Warn("Failed to record statistic", zap.String("counter", string(c)), zap.Error(err))
	}
}
