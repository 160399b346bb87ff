package resolve

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/proposal"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/strategy"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/detect"
)

func request(title string, autoModify bool) resolution.Request {
	return resolution.Request{
		Content:          topic.Content{Title: title},
		Threshold:        0.8,
		ExcludeID:        "42",
		SemesterScope:    []int{5},
		AutoModify:       autoModify,
		PreserveCoreIdea: true,
	}
}

// The recheck runs against the modified content.
func TestResolve_ModifiesAndRechecks(t *testing.T) {
	checker := similarityByTitle(map[string]float64{"Original": 0.92, "Rewritten": 0.55})
	rec := newMockRecorder()
	svc := New(checker, renaming("Rewritten"), rec)

	out, err := svc.Resolve(context.Background(), request("Original", true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(checker.calls) != 2 || checker.calls[1].Content.Title != "Rewritten" {
		t.Fatalf("recheck must use the modified content, calls: %+v", checker.calls)
	}
	second := checker.calls[1]
	if second.Threshold != 0.8 || second.ExcludeID != "42" || len(second.SemesterScope) != 1 {
		t.Errorf("recheck must keep threshold, exclude id and scope: %+v", second)
	}

	if out.InitialVerdict.Status != verdict.DuplicateFound || out.FinalVerdict.Status != verdict.NoDuplicate {
		t.Errorf("unexpected verdicts: %s -> %s", out.InitialVerdict.Status, out.FinalVerdict.Status)
	}
	if out.Strategy != strategy.SignificantChanges {
		t.Errorf("strategy = %s, want significant_changes", out.Strategy)
	}
	if math.Abs(out.Improvement-0.37) > 1e-9 {
		t.Errorf("improvement = %v, want 0.37", out.Improvement)
	}
	if out.EstimatedImprovement != proposal.EstimateImprovement(0.92, 2) {
		t.Errorf("estimated improvement = %v", out.EstimatedImprovement)
	}
	if !out.Modified() || out.FinalContent(topic.Content{Title: "Original"}).Title != "Rewritten" {
		t.Error("outcome must carry the applied proposal")
	}
	if out.State != resolution.StateDone || out.RunID == "" {
		t.Errorf("unexpected state %q run id %q", out.State, out.RunID)
	}

	want := map[resolution.Counter]int{
		resolution.CounterTotalRequests:     1,
		resolution.CounterDuplicatesFound:   1,
		resolution.CounterModificationsMade: 1,
	}
	for c, n := range want {
		if rec.counts[c] != n {
			t.Errorf("%s = %d, want %d", c, rec.counts[c], n)
		}
	}
	if rec.counts[resolution.CounterFallbackProposals] != 0 {
		t.Error("no fallback proposal was used")
	}
}

func TestResolve_DegradedRecheckHasNoImprovement(t *testing.T) {
	calls := 0
	checker := &mockChecker{checkFn: func(_ context.Context, req detect.Request) (verdict.Verdict, error) {
		calls++
		if calls == 1 {
			return verdict.Classify(verdict.Input{
				Title:      req.Content.Title,
				Candidates: []verdict.Candidate{{ID: "x", Similarity: 0.92, Metadata: verdict.Metadata{Title: "Existing"}}},
				Threshold:  req.Threshold,
			}), nil
		}
		return verdict.Degraded(req.Threshold, "similarity index unavailable"), nil
	}}

	out, err := New(checker, renaming("Rewritten"), nil).Resolve(context.Background(), request("Original", true))
	if err != nil {
		t.Fatal(err)
	}
	if !out.FinalVerdict.Degraded {
		t.Fatalf("final verdict must be the degraded recheck: %+v", out.FinalVerdict)
	}
	if out.Improvement != 0 {
		t.Errorf("improvement = %v, want 0 for a degraded recheck", out.Improvement)
	}
	if out.EstimatedImprovement != proposal.EstimateImprovement(0.92, 2) {
		t.Errorf("estimated improvement = %v", out.EstimatedImprovement)
	}
	if !out.Modified() || out.State != resolution.StateDone {
		t.Errorf("unexpected outcome: %+v", out)
	}
}

func TestResolve_NoDuplicateStopsAfterCheck(t *testing.T) {
	checker := similarityByTitle(map[string]float64{"Fresh": 0.2})
	mod := renaming("unused")

	out, err := New(checker, mod, nil).Resolve(context.Background(), request("Fresh", true))
	if err != nil {
		t.Fatal(err)
	}
	if mod.calls != 0 || len(checker.calls) != 1 {
		t.Errorf("expected a single check, modifier calls=%d checks=%d", mod.calls, len(checker.calls))
	}
	if out.Modified() || out.FinalVerdict.Status != verdict.NoDuplicate || out.Improvement != 0 {
		t.Errorf("unexpected outcome: %+v", out)
	}
}

func TestResolve_AutoModifyOff(t *testing.T) {
	checker := similarityByTitle(map[string]float64{"Original": 0.95})
	mod := renaming("unused")

	out, err := New(checker, mod, nil).Resolve(context.Background(), request("Original", false))
	if err != nil {
		t.Fatal(err)
	}
	if mod.calls != 0 || out.Modified() || out.State != resolution.StateDone {
		t.Errorf("auto modify off must not modify: %+v", out)
	}
	if out.FinalVerdict.Status != verdict.DuplicateFound {
		t.Errorf("final verdict must be the initial one, got %s", out.FinalVerdict.Status)
	}
}

func TestResolve_PotentialDuplicateIsModified(t *testing.T) {
	checker := similarityByTitle(map[string]float64{"Original": 0.65, "Rewritten": 0.3})
	rec := newMockRecorder()

	out, err := New(checker, renaming("Rewritten"), rec).Resolve(context.Background(), request("Original", true))
	if err != nil {
		t.Fatal(err)
	}
	if out.Strategy != strategy.MinorAdjustments || !out.Modified() {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if rec.counts[resolution.CounterPotentialDuplicates] != 1 {
		t.Error("potential duplicate must be counted")
	}
}

func TestResolve_AtMostOneCycle(t *testing.T) {
	checker := similarityByTitle(map[string]float64{"Original": 0.97, "Still Close": 0.96})
	mod := renaming("Still Close")

	out, err := New(checker, mod, nil).Resolve(context.Background(), request("Original", true))
	if err != nil {
		t.Fatal(err)
	}
	if mod.calls != 1 || len(checker.calls) != 2 {
		t.Errorf("expected one cycle, modifier calls=%d checks=%d", mod.calls, len(checker.calls))
	}
	if out.FinalVerdict.Status != verdict.DuplicateFound {
		t.Errorf("final status = %s", out.FinalVerdict.Status)
	}
}

func TestResolve_FallbackCounted(t *testing.T) {
	checker := similarityByTitle(map[string]float64{"Original": 0.9})
	mod := &mockModifier{proposeFn: func(_ context.Context, original topic.Content, v verdict.Verdict, _ bool) (proposal.Proposal, strategy.Strategy) {
		return proposal.Fallback(original), strategy.ForVerdict(v)
	}}
	rec := newMockRecorder()

	if _, err := New(checker, mod, rec).Resolve(context.Background(), request("Original", true)); err != nil {
		t.Fatal(err)
	}
	if rec.counts[resolution.CounterFallbackProposals] != 1 {
		t.Error("fallback proposal must be counted")
	}
}

func TestResolve_RecorderErrorsAreIgnored(t *testing.T) {
	checker := similarityByTitle(map[string]float64{"Original": 0.1})
	rec := newMockRecorder()
	rec.err = errors.New("redis down")

	if _, err := New(checker, renaming("x"), rec).Resolve(context.Background(), request("Original", true)); err != nil {
		t.Fatalf("statistics failures must not fail the request: %v", err)
	}
}

func TestResolve_Errors(t *testing.T) {
	fatal := &mockChecker{checkFn: func(context.Context, detect.Request) (verdict.Verdict, error) {
		return verdict.Verdict{}, domain.NewDimensionError(4, 3)
	}}
	if _, err := New(fatal, renaming("x"), nil).Resolve(context.Background(), request("T", true)); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}

	bad := request("T", true)
	bad.Threshold = 2
	if _, err := New(fatal, renaming("x"), nil).Resolve(context.Background(), bad); !errors.Is(err, domain.ErrInvalidTopic) {
		t.Errorf("expected ErrInvalidTopic, got %v", err)
	}
}

func TestResolve_RunIDsAreUnique(t *testing.T) {
	checker := similarityByTitle(nil)
	svc := New(checker, renaming("x"), nil)

	a, _ := svc.Resolve(context.Background(), request("T", false))
	b, _ := svc.Resolve(context.Background(), request("T", false))
	if a.RunID == b.RunID {
		t.Error("run ids must differ")
	}
}
