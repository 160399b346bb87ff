// Package detect screens a topic proposal against the similarity index.
package detect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/filter"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
	"github.com/SimondaVinciii/capbot-agent/internal/logger"
	"github.com/SimondaVinciii/capbot-agent/internal/metrics"
)

// Defaults for Config.
const (
	DefaultCandidateK             = 10
	DefaultMinCandidateSimilarity = 0.3
	DefaultAdvisorTimeout         = 30 * time.Second
)

// Config tunes the neighbour query.
type Config struct {
	// CandidateK is how many neighbours to request.
	CandidateK int
	// MinCandidateSimilarity drops weak neighbours before classification.
	MinCandidateSimilarity float64
	// AdvisorTimeout bounds the advisor call; on expiry the fixed
	// recommendations are used.
	AdvisorTimeout time.Duration
}

// Request is one duplicate check.
type Request struct {
	Content   topic.Content
	Threshold float64
	ExcludeID string
	// SemesterScope restricts the first query to these semesters.
	SemesterScope []int
}

// Service checks proposals for near-duplicates.
type Service struct {
	index   Index
	embed   Embedder
	advisor Advisor
	cfg     Config
}

// New creates a detect service. advisor may be nil.
func New(index Index, embed Embedder, advisor Advisor, cfg Config) *Service {
	if cfg.CandidateK <= 0 {
		cfg.CandidateK = DefaultCandidateK
	}
	if cfg.MinCandidateSimilarity < 0 {
		cfg.MinCandidateSimilarity = 0
	}
	if cfg.AdvisorTimeout <= 0 {
		cfg.AdvisorTimeout = DefaultAdvisorTimeout
	}
	return &Service{index: index, embed: embed, advisor: advisor, cfg: cfg}
}

// Check classifies req.Content. Embedding and index failures are absorbed into
// a degraded NO_DUPLICATE verdict; configuration errors are returned.
func (s *Service) Check(ctx context.Context, req Request) (verdict.Verdict, error) {
	if err := req.Content.Validate(); err != nil {
		return verdict.Verdict{}, fmt.Errorf("%w: %w", domain.ErrInvalidTopic, err)
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return verdict.Verdict{}, fmt.Errorf("%w: threshold must be in [0, 1], got %v",
			domain.ErrInvalidTopic, req.Threshold)
	}
	log := logger.FromContext(ctx)

	doc := req.Content.ComparisonDocument()
	emb, err := s.embed.Embed(ctx, doc)
	if err != nil {
		return s.degrade(ctx, req.Threshold, "embedding unavailable", err)
	}

	candidates, err := s.queryScoped(ctx, emb.Embedding, req)
	if err != nil {
		return s.degrade(ctx, req.Threshold, "similarity index unavailable", err)
	}

	v := verdict.Classify(verdict.Input{
		Title:      req.Content.Title,
		Candidates: candidates,
		Threshold:  req.Threshold,
		ExcludeID:  req.ExcludeID,
	})

	if len(v.DuplicateCandidates) > 0 {
		s.recommend(ctx, doc, &v)
	}

	metrics.VerdictsTotal.WithLabelValues(string(v.Status), "false").Inc()
	metrics.MaxSimilarity.Observe(v.Similarity)
	log.Debug("Duplicate check completed",
		zap.String("status", string(v.Status)),
		zap.Float64("similarity", v.Similarity),
		zap.Int("candidates", len(v.Candidates)),
	)
	return v, nil
}

// queryScoped runs the semester-scoped query first and falls back to the whole
// index when the scoped one has nothing left after exclusion and pre-filtering.
func (s *Service) queryScoped(ctx context.Context, vector []float32, req Request) ([]verdict.Candidate, error) {
	if len(req.SemesterScope) > 0 {
		expr, err := filter.AnyOf(filter.KeySemesterID, req.SemesterScope)
		if err != nil {
			return nil, fmt.Errorf("%w: semester scope: %w", domain.ErrInvalidTopic, err)
		}
		scoped, err := s.query(ctx, vector, expr, req)
		if err != nil {
			return nil, err
		}
		if len(scoped) > 0 {
			return scoped, nil
		}
		logger.FromContext(ctx).Debug("Scoped query empty, querying whole index",
			zap.Ints("semesters", req.SemesterScope))
	}
	return s.query(ctx, vector, filter.Expression{}, req)
}

func (s *Service) query(
	ctx context.Context,
	vector []float32,
	expr filter.Expression,
	req Request,
) ([]verdict.Candidate, error) {
	raw, err := s.index.Query(ctx, vector, s.cfg.CandidateK, expr)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	kept := verdict.Exclude(raw, req.Content.Title, req.ExcludeID)
	out := kept[:0]
	for _, c := range kept {
		if c.Similarity >= s.cfg.MinCandidateSimilarity {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) recommend(ctx context.Context, doc string, v *verdict.Verdict) {
	if s.advisor != nil {
		actx, cancel := context.WithTimeout(ctx, s.cfg.AdvisorTimeout)
		analysis, err := s.advisor.Analyze(actx, doc, v.DuplicateCandidates)
		cancel()
		if err == nil {
			if analysis.Summary != "" {
				v.Message += " Analysis: " + analysis.Summary
			}
			if len(analysis.Recommendations) > 0 {
				v.Recommendations = analysis.Recommendations
				return
			}
		} else {
			logger.FromContext(ctx).Warn("Advisor failed, using fixed recommendations", zap.Error(err))
		}
	}
	v.Recommendations = verdict.FallbackRecommendations(v.DuplicateCandidates)
}

func (s *Service) degrade(ctx context.Context, threshold float64, reason string, err error) (verdict.Verdict, error) {
	if domain.IsFatal(err) || errors.Is(err, domain.ErrInvalidTopic) {
		return verdict.Verdict{}, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return verdict.Verdict{}, fmt.Errorf("duplicate check: %w", ctxErr)
	}
	logger.FromContext(ctx).Warn("Duplicate check degraded",
		zap.String("reason", reason),
		zap.Error(err),
	)
	metrics.VerdictsTotal.WithLabelValues(string(verdict.NoDuplicate), "true").Inc()
	return verdict.Degraded(threshold, reason), nil
}
