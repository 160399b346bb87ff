// Package verdict classifies a proposal against its nearest indexed neighbours.
package verdict

import (
	"fmt"
	"time"
)

// Status is the duplicate classification outcome.
type Status string

const (
	// NoDuplicate means no candidate is close enough to matter.
	NoDuplicate Status = "NO_DUPLICATE"
	// PotentialDuplicate means a candidate is similar enough to recommend changes.
	PotentialDuplicate Status = "POTENTIAL_DUPLICATE"
	// DuplicateFound means the proposal duplicates an indexed topic.
	DuplicateFound Status = "DUPLICATE_FOUND"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case NoDuplicate, PotentialDuplicate, DuplicateFound:
		return true
	}
	return false
}

// Ladder constants. All comparisons are inclusive.
const (
	DefaultThreshold  = 0.8
	DuplicateFloor    = 0.8
	PotentialFloor    = 0.6
	NearDuplicate     = 0.9
	SelfMatchMinScore = 0.999
	MaxCandidates     = 5
)

// Metadata is the public part of an indexed topic.
type Metadata struct {
	Title        string
	SemesterID   int
	CategoryID   int
	SupervisorID int
	CreatedAt    time.Time
}

// Candidate is a previously indexed topic returned by a similarity query.
type Candidate struct {
	ID         string
	Document   string
	Similarity float64
	Metadata   Metadata
}

// Verdict is the classifier decision plus its supporting data.
type Verdict struct {
	Status          Status
	Similarity      float64
	Candidates      []Candidate
	Threshold       float64
	Message         string
	Recommendations []string

	// DuplicateCandidates feed recommendations only; they never change Status.
	DuplicateCandidates []Candidate

	// Degraded is set when a backend failure was absorbed into a NO_DUPLICATE result.
	Degraded bool
}

// IsDuplicate reports whether the verdict requires remediation.
func (v Verdict) IsDuplicate() bool {
	return v.Status == DuplicateFound || v.Status == PotentialDuplicate
}

// Degraded builds the resilience result used when the index or embedding backend fails.
func Degraded(threshold float64, reason string) Verdict {
	return Verdict{
		Status:    NoDuplicate,
		Threshold: threshold,
		Message:   "Duplicate check unavailable, treated as no duplicate: " + reason,
		Degraded:  true,
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
