package chi

import (
	"time"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/generation"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/proposal"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/strategy"
	domtopic "github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
	"github.com/SimondaVinciii/capbot-agent/internal/repository/topicindex"
)

// ErrorCode is a machine-readable error class.
type ErrorCode string

const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeTopicNotFound          ErrorCode = "topic_not_found"
	ErrorCodeTopicExists            ErrorCode = "topic_exists"
	ErrorCodeConfigurationError     ErrorCode = "configuration_error"
	ErrorCodeRateLimited            ErrorCode = "rate_limited"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeGeneratorError         ErrorCode = "generator_error"
	ErrorCodeIndexUnavailable       ErrorCode = "index_unavailable"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// TopicContent is the wire form of a topic proposal.
type TopicContent struct {
	Title          string `json:"title"`
	LocalizedTitle string `json:"localized_title,omitempty"`
	Problem        string `json:"problem,omitempty"`
	Context        string `json:"context,omitempty"`
	Content        string `json:"content,omitempty"`
	Description    string `json:"description,omitempty"`
	Objectives     string `json:"objectives,omitempty"`
	SupervisorID   int    `json:"supervisor_id"`
	SemesterID     int    `json:"semester_id"`
	CategoryID     int    `json:"category_id,omitempty"`
	MaxStudents    int    `json:"max_students,omitempty"`
}

// CheckRequest is the body of POST /v1/duplicates/check.
type CheckRequest struct {
	Topic         TopicContent `json:"topic"`
	Threshold     *float64     `json:"threshold,omitempty"`
	ExcludeID     string       `json:"exclude_id,omitempty"`
	SemesterScope []int        `json:"semester_scope,omitempty"`
}

// ResolveRequest is the body of POST /v1/resolutions and /v1/modifications.
type ResolveRequest struct {
	CheckRequest
	AutoModify       *bool `json:"auto_modify,omitempty"`
	PreserveCoreIdea *bool `json:"preserve_core_idea,omitempty"`
}

// SubmitRequest is the body of POST /v1/topics.
type SubmitRequest struct {
	ResolveRequest
	CheckDuplicates *bool `json:"check_duplicates,omitempty"`
}

// AlternativesRequest is the body of POST /v1/alternatives.
type AlternativesRequest struct {
	Topic TopicContent `json:"topic"`
}

// CandidateResponse is one similar indexed topic.
type CandidateResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Similarity   float64   `json:"similarity"`
	Document     string    `json:"document,omitempty"`
	SemesterID   int       `json:"semester_id,omitempty"`
	CategoryID   int       `json:"category_id,omitempty"`
	SupervisorID int       `json:"supervisor_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

// VerdictResponse is a duplicate check result.
type VerdictResponse struct {
	Status          verdict.Status      `json:"status"`
	Similarity      float64             `json:"similarity_score"`
	Threshold       float64             `json:"threshold"`
	Candidates      []CandidateResponse `json:"similar_topics"`
	Message         string              `json:"message"`
	Recommendations []string            `json:"recommendations"`
	Degraded        bool                `json:"degraded"`
}

// ProposalResponse is an applied or suggested rewrite.
type ProposalResponse struct {
	Topic             TopicContent `json:"modified_topic"`
	ModificationsMade []string     `json:"modifications_made"`
	Rationale         string       `json:"rationale"`
	Fallback          bool         `json:"fallback"`
}

// OutcomeResponse is a resolution result.
type OutcomeResponse struct {
	RunID                string            `json:"run_id"`
	State                resolution.State  `json:"state"`
	InitialVerdict       VerdictResponse   `json:"initial_check"`
	FinalVerdict         VerdictResponse   `json:"final_check"`
	Modified             bool              `json:"modified"`
	Strategy             strategy.Strategy `json:"strategy,omitempty"`
	Proposal             *ProposalResponse `json:"proposal,omitempty"`
	Improvement          float64           `json:"similarity_improvement"`
	EstimatedImprovement float64           `json:"estimated_improvement"`
}

// ModificationResponse is the body of POST /v1/modifications.
type ModificationResponse struct {
	Verdict  VerdictResponse   `json:"duplicate_check"`
	Strategy strategy.Strategy `json:"strategy"`
	Proposal ProposalResponse  `json:"proposal"`
	// EstimatedImprovement is a heuristic; no recheck runs.
	EstimatedImprovement float64 `json:"estimated_improvement"`
}

// AlternativesResponse lists alternative directions for a topic.
type AlternativesResponse struct {
	Alternatives []generation.Alternative `json:"alternatives"`
}

// TopicResponse is a persisted topic.
type TopicResponse struct {
	ID         int64        `json:"id"`
	Topic      TopicContent `json:"topic"`
	IsApproved bool         `json:"is_approved"`
	CreatedAt  time.Time    `json:"created_at"`
}

// TopicListResponse lists persisted topics.
type TopicListResponse struct {
	Items []TopicResponse `json:"items"`
}

// SubmitResponse is the body of a successful POST /v1/topics.
type SubmitResponse struct {
	Topic    TopicResponse    `json:"topic"`
	Outcome  *OutcomeResponse `json:"outcome,omitempty"`
	Indexed  bool             `json:"indexed"`
	Messages []string         `json:"messages"`
}

// IndexEntryResponse is one similarity index entry.
type IndexEntryResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Document     string    `json:"document"`
	SemesterID   int       `json:"semester_id,omitempty"`
	CategoryID   int       `json:"category_id,omitempty"`
	SupervisorID int       `json:"supervisor_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

// IndexListResponse is one page of index entries.
type IndexListResponse struct {
	Items      []IndexEntryResponse `json:"items"`
	Total      int                  `json:"total"`
	HasMore    bool                 `json:"has_more"`
	NextOffset *int                 `json:"next_offset,omitempty"`
}

// IndexedResponse is the body of PUT /v1/index/topics/{id}.
type IndexedResponse struct {
	ID string `json:"id"`
}

// IndexStatsResponse describes the similarity index.
type IndexStatsResponse struct {
	Count     int    `json:"count"`
	IndexName string `json:"index_name"`
	Dimension int    `json:"dimension"`
}

// RebuildResponse summarises a rebuild.
type RebuildResponse struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// StatsResponse holds the processing counters.
type StatsResponse struct {
	Counters      map[string]int64 `json:"counters"`
	IndexedTopics *int             `json:"indexed_topics,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (t TopicContent) toDomain() domtopic.Content {
	return domtopic.Content{
		Title:          t.Title,
		LocalizedTitle: t.LocalizedTitle,
		Problem:        t.Problem,
		Context:        t.Context,
		Body:           t.Content,
		Description:    t.Description,
		Objectives:     t.Objectives,
		SupervisorID:   t.SupervisorID,
		SemesterID:     t.SemesterID,
		CategoryID:     t.CategoryID,
		MaxStudents:    t.MaxStudents,
	}
}

func contentToDTO(c domtopic.Content) TopicContent {
	return TopicContent{
		Title:          c.Title,
		LocalizedTitle: c.LocalizedTitle,
		Problem:        c.Problem,
		Context:        c.Context,
		Content:        c.Body,
		Description:    c.Description,
		Objectives:     c.Objectives,
		SupervisorID:   c.SupervisorID,
		SemesterID:     c.SemesterID,
		CategoryID:     c.CategoryID,
		MaxStudents:    c.MaxStudents,
	}
}

func topicToDTO(t domtopic.Topic) TopicResponse {
	return TopicResponse{
		ID:         t.ID,
		Topic:      contentToDTO(t.Content),
		IsApproved: t.IsApproved,
		CreatedAt:  t.CreatedAt,
	}
}

func verdictToDTO(v verdict.Verdict) VerdictResponse {
	cands := make([]CandidateResponse, len(v.Candidates))
	for i, c := range v.Candidates {
		cands[i] = CandidateResponse{
			ID:           c.ID,
			Title:        c.Metadata.Title,
			Similarity:   c.Similarity,
			Document:     c.Document,
			SemesterID:   c.Metadata.SemesterID,
			CategoryID:   c.Metadata.CategoryID,
			SupervisorID: c.Metadata.SupervisorID,
			CreatedAt:    c.Metadata.CreatedAt,
		}
	}
	recs := v.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return VerdictResponse{
		Status:          v.Status,
		Similarity:      v.Similarity,
		Threshold:       v.Threshold,
		Candidates:      cands,
		Message:         v.Message,
		Recommendations: recs,
		Degraded:        v.Degraded,
	}
}

func proposalToDTO(p proposal.Proposal) ProposalResponse {
	return ProposalResponse{
		Topic:             contentToDTO(p.Content),
		ModificationsMade: p.ModificationsMade,
		Rationale:         p.Rationale,
		Fallback:          p.Fallback,
	}
}

func outcomeToDTO(o resolution.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		RunID:                o.RunID,
		State:                o.State,
		InitialVerdict:       verdictToDTO(o.InitialVerdict),
		FinalVerdict:         verdictToDTO(o.FinalVerdict),
		Modified:             o.Modified(),
		Strategy:             o.Strategy,
		Improvement:          o.Improvement,
		EstimatedImprovement: o.EstimatedImprovement,
	}
	if o.AppliedProposal != nil {
		p := proposalToDTO(*o.AppliedProposal)
		resp.Proposal = &p
	}
	return resp
}

func indexListToDTO(res topicindex.ListResult) IndexListResponse {
	items := make([]IndexEntryResponse, len(res.Entries))
	for i, e := range res.Entries {
		items[i] = IndexEntryResponse{
			ID:           e.ID,
			Title:        e.Metadata.Title,
			Document:     e.Text,
			SemesterID:   e.Metadata.SemesterID,
			CategoryID:   e.Metadata.CategoryID,
			SupervisorID: e.Metadata.SupervisorID,
			CreatedAt:    e.Metadata.CreatedAt,
		}
	}
	resp := IndexListResponse{Items: items, Total: res.Total, HasMore: res.HasMore}
	if res.HasMore {
		next := res.NextOffset
		resp.NextOffset = &next
	}
	return resp
}
