package verdict

import (
	"sort"
	"strings"
)

// Input is everything the classifier needs for one decision.
type Input struct {
	Title      string
	Candidates []Candidate
	Threshold  float64
	ExcludeID  string
}

// Exclude removes excludeID from candidates. Without an exclude id it drops
// self-matches instead: near-identical score and the same stored title.
func Exclude(candidates []Candidate, title, excludeID string) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	title = strings.TrimSpace(title)
	for _, c := range candidates {
		if excludeID != "" {
			if c.ID == excludeID {
				continue
			}
		} else if c.Similarity >= SelfMatchMinScore && strings.TrimSpace(c.Metadata.Title) == title {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Classify turns a raw candidate list into a verdict.
func Classify(in Input) Verdict {
	candidates := Exclude(in.Candidates, in.Title, in.ExcludeID)

	if len(candidates) == 0 {
		return Verdict{
			Status:    NoDuplicate,
			Threshold: in.Threshold,
			Message:   "No similar topics found in the index.",
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	maxSim := candidates[0].Similarity

	dups := above(candidates, in.Threshold)
	if len(dups) == 0 {
		dups = above(candidates, NearDuplicate)
	}

	v := Verdict{
		Similarity:          maxSim,
		Threshold:           in.Threshold,
		DuplicateCandidates: dups,
	}

	switch {
	case maxSim >= in.Threshold && maxSim >= DuplicateFloor:
		v.Status = DuplicateFound
		v.Message = "Duplicate topic detected with similarity " + percent(maxSim) +
			". The topic needs significant changes."
	case maxSim >= in.Threshold:
		v.Status = PotentialDuplicate
		v.Message = "Potential duplicate detected with similarity " + percent(maxSim) +
			". Changes are recommended to increase uniqueness."
	case maxSim >= PotentialFloor:
		v.Status = PotentialDuplicate
		v.Message = "Similar topic found with similarity " + percent(maxSim) +
			". Consider adjusting the topic to stand apart."
	default:
		v.Status = NoDuplicate
		v.Message = "Topic looks unique. Highest similarity: " + percent(maxSim) + "."
	}

	top := candidates
	if len(top) > MaxCandidates {
		top = top[:MaxCandidates]
	}
	v.Candidates = top

	return v
}

func above(candidates []Candidate, floor float64) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.Similarity >= floor {
			out = append(out, c)
		}
	}
	return out
}

// FallbackRecommendations returns fixed advice keyed on the closest duplicate candidate.
func FallbackRecommendations(dups []Candidate) []string {
	if len(dups) == 0 {
		return nil
	}
	maxSim := 0.0
	for _, c := range dups {
		maxSim = max(maxSim, c.Similarity)
	}
	if maxSim >= NearDuplicate {
		return []string{
			"Change the specific methodology",
			"Add a new technology or framework",
			"Adjust the target audience or application scope",
		}
	}
	return []string{
		"Clarify what makes the topic unique",
		"Add detail about the approach",
		"Emphasize the key difference from existing topics",
	}
}
