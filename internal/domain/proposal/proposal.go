// Package proposal validates modification proposals produced by a text
// generator and builds the deterministic fallback when nothing usable comes back.
package proposal

import (
	"errors"
	"math"
	"strings"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
)

var (
	// ErrNoJSON is returned when the raw output contains no JSON object.
	ErrNoJSON = errors.New("no JSON object in generator output")
	// ErrUnrecoverable is returned when the JSON object cannot be repaired or
	// carries none of the accepted fields.
	ErrUnrecoverable = errors.New("generator output is not a usable proposal")
)

// Placeholders used when the generator omits the bookkeeping fields.
const (
	DefaultModification = "Adjusted the topic to reduce overlap with existing topics"
	DefaultRationale    = "The topic was revised to increase originality and reduce duplication."
)

// Proposal is a full replacement topic content plus what was changed and why.
type Proposal struct {
	Content           topic.Content
	ModificationsMade []string
	Rationale         string
	// Fallback is true when the proposal was built heuristically instead of
	// coming from the generator.
	Fallback bool
}

// Parse extracts and validates a proposal from raw generator output. Missing
// fields are backfilled from original.
func Parse(raw string, original topic.Content) (Proposal, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return Proposal{}, err
	}
	fields, err := decodeLenient(obj)
	if err != nil {
		return Proposal{}, err
	}
	return fromFields(fields, original)
}

// FromGenerator is Parse that never fails: unusable output yields Fallback(original).
func FromGenerator(raw string, original topic.Content) Proposal {
	p, err := Parse(raw, original)
	if err != nil {
		return Fallback(original)
	}
	return p
}

const (
	fallbackObjectives = "Special emphasis on distinctiveness and practical value in the current context."
	fallbackBody       = "The topic focuses on a distinctive approach with strong practical applicability."
	fallbackRationale  = "The topic was adjusted to reduce similarity with existing topics in the database."
)

// Fallback builds a proposal from simple textual heuristics.
func Fallback(original topic.Content) Proposal {
	c := original
	c.Title = fallbackTitle(original.Title)
	c.Objectives = appendSentence(original.Objectives, fallbackObjectives)
	c.Body = appendSentence(original.Body, fallbackBody)
	if c.MaxStudents <= 0 {
		c.MaxStudents = defaultMaxStudents
	}

	return Proposal{
		Content: c,
		ModificationsMade: []string{
			"Adjusted the title to increase distinctiveness",
			"Added a distinctive methodological approach",
			"Clarified the objectives and practical applicability",
		},
		Rationale: fallbackRationale,
		Fallback:  true,
	}
}

func fallbackTitle(title string) string {
	title = strings.TrimSpace(title)
	lower := strings.ToLower(title)
	switch {
	case !strings.Contains(lower, "system"):
		return "System " + title
	case !strings.Contains(lower, "application"):
		return "Application " + title
	default:
		return title + " - Enhanced Edition"
	}
}

func appendSentence(text, sentence string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return sentence
	}
	return text + " " + sentence
}

// EstimateImprovement is the heuristic similarity drop expected from a
// proposal with nMods modifications against a verdict of origSim.
func EstimateImprovement(origSim float64, nMods int) float64 {
	var extra float64
	switch {
	case origSim >= 0.9:
		extra = 0.3
	case origSim >= 0.8:
		extra = 0.2
	case origSim >= 0.7:
		extra = 0.15
	default:
		extra = 0.1
	}
	est := math.Min(0.1+0.05*float64(nMods)+extra, origSim*0.6)
	return math.Round(est*1000) / 1000
}
