package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

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

type mockChecker struct {
	checkFn func(ctx context.Context, req detect.Request) (verdict.Verdict, error)
	last    detect.Request
}

func (m *mockChecker) Check(ctx context.Context, req detect.Request) (verdict.Verdict, error) {
	m.last = req
	if m.checkFn != nil {
		return m.checkFn(ctx, req)
	}
	return verdict.Verdict{Status: verdict.NoDuplicate, Threshold: req.Threshold}, nil
}

type mockResolver struct {
	resolveFn func(ctx context.Context, req resolution.Request) (resolution.Outcome, error)
	last      resolution.Request
}

func (m *mockResolver) Resolve(ctx context.Context, req resolution.Request) (resolution.Outcome, error) {
	m.last = req
	if m.resolveFn != nil {
		return m.resolveFn(ctx, req)
	}
	return resolution.Outcome{RunID: "run-1", State: resolution.StateDone}, nil
}

type mockModifier struct {
	proposeFn      func(ctx context.Context, c domtopic.Content, v verdict.Verdict, preserve bool) (proposal.Proposal, strategy.Strategy)
	alternativesFn func(ctx context.Context, c domtopic.Content) []generation.Alternative
	lastPreserve   bool
}

func (m *mockModifier) Propose(
	ctx context.Context, c domtopic.Content, v verdict.Verdict, preserve bool,
) (proposal.Proposal, strategy.Strategy) {
	m.lastPreserve = preserve
	if m.proposeFn != nil {
		return m.proposeFn(ctx, c, v, preserve)
	}
	return proposal.Fallback(c), strategy.ForVerdict(v)
}

func (m *mockModifier) Alternatives(ctx context.Context, c domtopic.Content) []generation.Alternative {
	if m.alternativesFn != nil {
		return m.alternativesFn(ctx, c)
	}
	return []generation.Alternative{}
}

type mockSubmitter struct {
	submitFn func(ctx context.Context, req submit.Request) (submit.Result, error)
	last     submit.Request
}

func (m *mockSubmitter) Submit(ctx context.Context, req submit.Request) (submit.Result, error) {
	m.last = req
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return submit.Result{Topic: domtopic.Topic{ID: 1, Content: req.Content}}, nil
}

type mockTopics struct {
	getFn  func(ctx context.Context, id int64) (domtopic.Topic, error)
	listFn func(ctx context.Context, semesterID int) ([]domtopic.Topic, error)
}

func (m *mockTopics) GetTopicByID(ctx context.Context, id int64) (domtopic.Topic, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domtopic.Topic{ID: id, Content: domtopic.Content{Title: "Topic"}}, nil
}

func (m *mockTopics) ListTopicsBySemester(ctx context.Context, semesterID int) ([]domtopic.Topic, error) {
	if m.listFn != nil {
		return m.listFn(ctx, semesterID)
	}
	return nil, nil
}

type mockIndexer struct {
	indexFn   func(ctx context.Context, t domtopic.Topic, versionID int64) (string, error)
	removeFn  func(ctx context.Context, id string) error
	listFn    func(ctx context.Context, semesterID, offset, limit int) (topicindex.ListResult, error)
	statsFn   func(ctx context.Context) (topicindex.Stats, error)
	resetFn   func(ctx context.Context) error
	rebuildFn func(ctx context.Context) (indexing.RebuildReport, error)
}

func (m *mockIndexer) IndexTopic(ctx context.Context, t domtopic.Topic, versionID int64) (string, error) {
	if m.indexFn != nil {
		return m.indexFn(ctx, t, versionID)
	}
	return domtopic.IndexID(t.ID, versionID), nil
}

func (m *mockIndexer) Remove(ctx context.Context, id string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, id)
	}
	return nil
}

func (m *mockIndexer) List(ctx context.Context, semesterID, offset, limit int) (topicindex.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, semesterID, offset, limit)
	}
	return topicindex.ListResult{}, nil
}

func (m *mockIndexer) Stats(ctx context.Context) (topicindex.Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return topicindex.Stats{}, nil
}

func (m *mockIndexer) Reset(ctx context.Context) error {
	if m.resetFn != nil {
		return m.resetFn(ctx)
	}
	return nil
}

func (m *mockIndexer) Rebuild(ctx context.Context) (indexing.RebuildReport, error) {
	if m.rebuildFn != nil {
		return m.rebuildFn(ctx)
	}
	return indexing.RebuildReport{}, nil
}

type mockStats struct {
	snapshotFn func(ctx context.Context) (stats.Snapshot, error)
}

func (m *mockStats) Snapshot(ctx context.Context) (stats.Snapshot, error) {
	if m.snapshotFn != nil {
		return m.snapshotFn(ctx)
	}
	return stats.Snapshot{}, nil
}

type mockHealth struct {
	report health.Report
}

func (m *mockHealth) Check(context.Context) health.Report { return m.report }

type testEnv struct {
	checker   *mockChecker
	resolver  *mockResolver
	modifier  *mockModifier
	submitter *mockSubmitter
	topics    *mockTopics
	indexer   *mockIndexer
	stats     *mockStats
	health    *mockHealth
	router    http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		checker:   &mockChecker{},
		resolver:  &mockResolver{},
		modifier:  &mockModifier{},
		submitter: &mockSubmitter{},
		topics:    &mockTopics{},
		indexer:   &mockIndexer{},
		stats:     &mockStats{},
		health:    &mockHealth{report: health.Report{Status: health.Healthy}},
	}
	srv := NewServer(Services{
		Checker:   env.checker,
		Resolver:  env.resolver,
		Modifier:  env.modifier,
		Submitter: env.submitter,
		Topics:    env.topics,
		Indexer:   env.indexer,
		Stats:     env.stats,
		Health:    env.health,
	}, Options{DefaultThreshold: 0.8, PreserveCoreIdea: true, DefaultPageSize: 20, MaxPageSize: 100})

	r := chi.NewRouter()
	Routes(r, srv)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}
