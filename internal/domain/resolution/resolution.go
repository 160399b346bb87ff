// Package resolution holds the request and outcome of a check, modify and
// recheck cycle.
package resolution

import (
	"fmt"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/proposal"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/strategy"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
)

// State is a step of the resolution cycle.
type State string

const (
	StateChecking  State = "checking"
	StateModifying State = "modifying"
	StateRechecked State = "rechecked"
	StateDone      State = "done"
)

// Request is one resolution call.
type Request struct {
	Content   topic.Content
	Threshold float64
	// ExcludeID skips the topic's own index entry when rechecking an existing topic.
	ExcludeID        string
	SemesterScope    []int
	AutoModify       bool
	PreserveCoreIdea bool
}

// Validate checks the request. A zero threshold is valid.
func (r Request) Validate() error {
	if err := r.Content.Validate(); err != nil {
		return err
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0, 1], got %v", r.Threshold)
	}
	return nil
}

// Outcome is the result of at most one modify/recheck cycle.
type Outcome struct {
	RunID          string
	InitialVerdict verdict.Verdict
	// FinalVerdict is the recheck verdict when a modification ran, else the initial one.
	FinalVerdict    verdict.Verdict
	AppliedProposal *proposal.Proposal
	Strategy        strategy.Strategy
	// Improvement is the measured similarity drop; zero unless Modified.
	Improvement          float64
	EstimatedImprovement float64
	State                State
}

// Modified reports whether a proposal was applied and rechecked.
func (o Outcome) Modified() bool {
	return o.AppliedProposal != nil
}

// FinalContent returns the content the caller should persist.
func (o Outcome) FinalContent(original topic.Content) topic.Content {
	if o.AppliedProposal != nil {
		return o.AppliedProposal.Content
	}
	return original
}

// Counter names a processing statistic.
type Counter string

// Processing statistics kept across requests.
const (
	CounterTotalRequests       Counter = "total_requests"
	CounterDuplicatesFound     Counter = "duplicates_found"
	CounterPotentialDuplicates Counter = "potential_duplicates"
	CounterModificationsMade   Counter = "modifications_made"
	CounterFallbackProposals   Counter = "fallback_proposals"
)

// Counters lists every processing statistic in report order.
var Counters = []Counter{
	CounterTotalRequests,
	CounterDuplicatesFound,
	CounterPotentialDuplicates,
	CounterModificationsMade,
	CounterFallbackProposals,
}
