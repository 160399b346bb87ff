// Package strategy maps a duplicate verdict onto a remediation intensity.
package strategy

import "github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"

// Strategy is a remediation intensity tag.
type Strategy string

const (
	MajorRedesign        Strategy = "major_redesign"
	SignificantChanges   Strategy = "significant_changes"
	ModerateChanges      Strategy = "moderate_changes"
	DifferentiationFocus Strategy = "differentiation_focus"
	MinorAdjustments     Strategy = "minor_adjustments"
	EnhancementOnly      Strategy = "enhancement_only"
)

// Similarity cut-offs inside DUPLICATE_FOUND.
const (
	majorRedesignFloor      = 0.95
	significantChangesFloor = 0.85
	// crowdedCandidateCount is the candidate count above which a potential
	// duplicate needs explicit differentiation.
	crowdedCandidateCount = 3
)

// Select picks a strategy from the verdict status, its max similarity and the
// number of candidates attached to it. Unknown statuses get EnhancementOnly.
func Select(status verdict.Status, similarity float64, candidateCount int) Strategy {
	switch status {
	case verdict.DuplicateFound:
		switch {
		case similarity >= majorRedesignFloor:
			return MajorRedesign
		case similarity >= significantChangesFloor:
			return SignificantChanges
		default:
			return ModerateChanges
		}
	case verdict.PotentialDuplicate:
		if candidateCount > crowdedCandidateCount {
			return DifferentiationFocus
		}
		return MinorAdjustments
	default:
		return EnhancementOnly
	}
}

// ForVerdict is Select applied to a verdict.
func ForVerdict(v verdict.Verdict) Strategy {
	return Select(v.Status, v.Similarity, len(v.Candidates))
}

var descriptions = map[Strategy]string{
	MajorRedesign:        "Redesign the topic completely with a clearly different approach",
	SignificantChanges:   "Make significant changes to the objectives, methodology or scope",
	ModerateChanges:      "Adjust several parts of the topic to increase its distinctiveness",
	DifferentiationFocus: "Focus on creating a clear difference from the similar topics",
	MinorAdjustments:     "Make small adjustments to increase originality",
	EnhancementOnly:      "Only improve and clarify the existing content",
}

// Description returns the instruction text used when prompting a generator.
func (s Strategy) Description() string {
	if d, ok := descriptions[s]; ok {
		return d
	}
	return string(s)
}

// Valid reports whether s is one of the known tags.
func (s Strategy) Valid() bool {
	_, ok := descriptions[s]
	return ok
}
