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

type mockChecker struct {
	checkFn func(ctx context.Context, req detect.Request) (verdict.Verdict, error)
	calls   []detect.Request
}

func (m *mockChecker) Check(ctx context.Context, req detect.Request) (verdict.Verdict, error) {
	m.calls = append(m.calls, req)
	return m.checkFn(ctx, req)
}

type mockModifier struct {
	proposeFn func(ctx context.Context, original topic.Content, v verdict.Verdict, preserve bool) (proposal.Proposal, strategy.Strategy)
	calls     int
}

func (m *mockModifier) Propose(
	ctx context.Context,
	original topic.Content,
	v verdict.Verdict,
	preserve bool,
) (proposal.Proposal, strategy.Strategy) {
	m.calls++
	return m.proposeFn(ctx, original, v, preserve)
}

type mockRecorder struct {
	counts map[resolution.Counter]int
	err    error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{counts: make(map[resolution.Counter]int)}
}

func (m *mockRecorder) Incr(_ context.Context, counters ...resolution.Counter) error {
	for _, c := range counters {
		m.counts[c]++
	}
	return m.err
}

// similarityByTitle returns a checker whose verdict depends only on the checked title.
func similarityByTitle(sims map[string]float64) *mockChecker {
	return &mockChecker{checkFn: func(_ context.Context, req detect.Request) (verdict.Verdict, error) {
		sim := sims[req.Content.Title]
		return verdict.Classify(verdict.Input{
			Title:      req.Content.Title,
			Candidates: []verdict.Candidate{{ID: "x", Similarity: sim, Metadata: verdict.Metadata{Title: "Existing"}}},
			Threshold:  req.Threshold,
		}), nil
	}}
}

func renaming(title string) *mockModifier {
	return &mockModifier{proposeFn: func(_ context.Context, original topic.Content, v verdict.Verdict, _ bool) (proposal.Proposal, strategy.Strategy) {
		c := original
		c.Title = title
		return proposal.Proposal{
			Content:           c,
			ModificationsMade: []string{"Renamed", "Refocused"},
			Rationale:         "r",
		}, strategy.ForVerdict(v)
	}}
}
