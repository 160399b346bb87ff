package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/proposal"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
	"github.com/SimondaVinciii/capbot-agent/internal/logger"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/detect"
	healthuc "github.com/SimondaVinciii/capbot-agent/internal/usecase/health"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/submit"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Services are the use cases behind the API. Stats and Health may be nil.
type Services struct {
	Checker   Checker
	Resolver  Resolver
	Modifier  Modifier
	Submitter Submitter
	Topics    TopicReader
	Indexer   Indexer
	Stats     StatsReader
	Health    HealthChecker
}

// Options are request defaults.
type Options struct {
	DefaultThreshold float64
	PreserveCoreIdea bool
	DefaultPageSize  int
	MaxPageSize      int
}

// Server implements the HTTP API.
type Server struct {
	svc           Services
	opts          Options
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, opts Options) *Server {
	if opts.DefaultThreshold == 0 {
		opts.DefaultThreshold = 0.8
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	s := &Server{svc: svc, opts: opts}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidTopic, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrTopicNotFound, http.StatusNotFound, ErrorCodeTopicNotFound),
		sentinelHandler(domain.ErrTopicExists, http.StatusConflict, ErrorCodeTopicExists),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusInternalServerError, ErrorCodeConfigurationError),
		sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError, ErrorCodeConfigurationError),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrGeneratorError, http.StatusBadGateway, ErrorCodeGeneratorError),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorCodeIndexUnavailable),
	}
	return s
}

// CheckDuplicates handles POST /v1/duplicates/check.
func (s *Server) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	v, err := s.svc.Checker.Check(ctx, s.detectRequest(req))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, verdictToDTO(v))
}

// Resolve handles POST /v1/resolutions.
func (s *Server) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	out, err := s.svc.Resolver.Resolve(ctx, s.resolutionRequest(req))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, outcomeToDTO(out))
}

// ProposeModification handles POST /v1/modifications: check, then propose a
// rewrite without rechecking it.
func (s *Server) ProposeModification(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	v, err := s.svc.Checker.Check(ctx, s.detectRequest(req.CheckRequest))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	original := req.Topic.toDomain()
	p, strat := s.svc.Modifier.Propose(ctx, original, v, boolOr(req.PreserveCoreIdea, s.opts.PreserveCoreIdea))

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, ModificationResponse{
		Verdict:              verdictToDTO(v),
		Strategy:             strat,
		Proposal:             proposalToDTO(p),
		EstimatedImprovement: proposal.EstimateImprovement(v.Similarity, len(p.ModificationsMade)),
	})
}

// SuggestAlternatives handles POST /v1/alternatives.
func (s *Server) SuggestAlternatives(w http.ResponseWriter, r *http.Request) {
	var req AlternativesRequest
	if !decode(w, r, &req) {
		return
	}
	c := req.Topic.toDomain()
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	alts := s.svc.Modifier.Alternatives(ctx, c)

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, AlternativesResponse{Alternatives: alts})
}

// SubmitTopic handles POST /v1/topics.
func (s *Server) SubmitTopic(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.svc.Submitter.Submit(ctx, submit.Request{
		Request:   s.resolutionRequest(req.ResolveRequest),
		SkipCheck: !boolOr(req.CheckDuplicates, true),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := SubmitResponse{
		Topic:    topicToDTO(res.Topic),
		Indexed:  res.Indexed,
		Messages: res.Messages,
	}
	if res.Outcome.RunID != "" {
		out := outcomeToDTO(res.Outcome)
		resp.Outcome = &out
	}

	setUsageHeaders(w, usage)
	w.Header().Set("Location", fmt.Sprintf("/v1/topics/%d", res.Topic.ID))
	writeJSON(w, http.StatusCreated, resp)
}

// GetTopic handles GET /v1/topics/{id}.
func (s *Server) GetTopic(w http.ResponseWriter, r *http.Request, id int64) {
	t, err := s.svc.Topics.GetTopicByID(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topicToDTO(t))
}

// ListSemesterTopics handles GET /v1/semesters/{id}/topics.
func (s *Server) ListSemesterTopics(w http.ResponseWriter, r *http.Request, semesterID int) {
	topics, err := s.svc.Topics.ListTopicsBySemester(r.Context(), semesterID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]TopicResponse, len(topics))
	for i, t := range topics {
		items[i] = topicToDTO(t)
	}
	writeJSON(w, http.StatusOK, TopicListResponse{Items: items})
}

// IndexTopic handles PUT /v1/index/topics/{id}: (re)indexes a persisted topic.
func (s *Server) IndexTopic(w http.ResponseWriter, r *http.Request, id int64, versionID *int64) {
	t, err := s.svc.Topics.GetTopicByID(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var version int64
	if versionID != nil {
		version = *versionID
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	indexID, err := s.svc.Indexer.IndexTopic(ctx, t, version)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, IndexedResponse{ID: indexID})
}

// RemoveIndexEntry handles DELETE /v1/index/topics/{id}.
func (s *Server) RemoveIndexEntry(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.svc.Indexer.Remove(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListIndexEntries handles GET /v1/index/topics.
func (s *Server) ListIndexEntries(w http.ResponseWriter, r *http.Request, semesterID, offset, limit *int) {
	page := s.opts.DefaultPageSize
	if limit != nil {
		page = *limit
	}
	if page <= 0 || page > s.opts.MaxPageSize {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("limit must be between 1 and %d", s.opts.MaxPageSize))
		return
	}
	from := 0
	if offset != nil {
		from = *offset
	}
	if from < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "offset must not be negative")
		return
	}
	semester := 0
	if semesterID != nil {
		semester = *semesterID
	}

	res, err := s.svc.Indexer.List(r.Context(), semester, from, page)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, indexListToDTO(res))
}

// IndexStats handles GET /v1/index/stats.
func (s *Server) IndexStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Indexer.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IndexStatsResponse{Count: st.Count, IndexName: st.IndexName, Dimension: st.Dimension})
}

// ResetIndex handles POST /v1/index/reset.
func (s *Server) ResetIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Indexer.Reset(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RebuildIndex handles POST /v1/index/rebuild.
func (s *Server) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	report, err := s.svc.Indexer.Rebuild(ctx)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, RebuildResponse{Indexed: report.Indexed, Failed: report.Failed})
}

// GetStats handles GET /v1/stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Counters: map[string]int64{}}
	if s.svc.Stats != nil {
		snap, err := s.svc.Stats.Snapshot(r.Context())
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		for c, v := range snap {
			resp.Counters[string(c)] = v
		}
	}

	if st, err := s.svc.Indexer.Stats(r.Context()); err == nil {
		resp.IndexedTopics = &st.Count
	} else {
		logger.FromContext(r.Context()).Warn("Index count unavailable", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: string(healthuc.Healthy), Checks: map[string]string{}})
		return
	}
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	// Degraded still answers checks, so only an unhealthy index fails the probe.
	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) detectRequest(req CheckRequest) detect.Request {
	return detect.Request{
		Content:       req.Topic.toDomain(),
		Threshold:     floatOr(req.Threshold, s.opts.DefaultThreshold),
		ExcludeID:     req.ExcludeID,
		SemesterScope: req.SemesterScope,
	}
}

func (s *Server) resolutionRequest(req ResolveRequest) resolution.Request {
	return resolution.Request{
		Content:          req.Topic.toDomain(),
		Threshold:        floatOr(req.Threshold, s.opts.DefaultThreshold),
		ExcludeID:        req.ExcludeID,
		SemesterScope:    req.SemesterScope,
		AutoModify:       boolOr(req.AutoModify, true),
		PreserveCoreIdea: boolOr(req.PreserveCoreIdea, s.opts.PreserveCoreIdea),
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if n := usage.EmbeddingTokens(); n > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.FormatInt(n, 10))
	}
	if n := usage.GenerationTokens(); n > 0 {
		w.Header().Set("X-Generation-Tokens", strconv.FormatInt(n, 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidTopic,
		domain.ErrTopicNotFound,
		domain.ErrTopicExists,
		domain.ErrVectorDimMismatch,
		domain.ErrConfiguration,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrGeneratorError,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			// Validation details are the caller's own input and safe to echo.
			if s == domain.ErrInvalidTopic {
				return err.Error()
			}
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			if domain.IsFatal(err) {
				log.Error("configuration error", zap.Error(err))
			} else {
				log.Warn("domain error", zap.Error(err))
			}
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
