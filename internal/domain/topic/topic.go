// Package topic holds the capstone topic value types and the comparison normalizer.
package topic

import (
	"fmt"
	"strings"
	"time"
)

// MaxTitleLength is the maximum title length in bytes.
const MaxTitleLength = 1024

// Content is the comparable part of a topic proposal (immutable value object).
type Content struct {
	Title          string
	LocalizedTitle string
	Problem        string
	Context        string
	Body           string
	Description    string
	Objectives     string

	SupervisorID int
	SemesterID   int
	CategoryID   int
	MaxStudents  int
}

// Validate checks the invariants required before comparison.
func (c Content) Validate() error {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLength {
		return fmt.Errorf("title too long (max %d)", MaxTitleLength)
	}
	if c.MaxStudents < 0 {
		return fmt.Errorf("max students must not be negative")
	}
	return nil
}

// ComparisonDocument joins the present text fields in canonical order:
// title, localized title, problem, context, body, description, objectives.
// Empty fields are skipped; the result is deterministic for equal input.
func (c Content) ComparisonDocument() string {
	fields := [...]string{
		c.Title,
		c.LocalizedTitle,
		c.Problem,
		c.Context,
		c.Body,
		c.Description,
		c.Objectives,
	}

	var b strings.Builder
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f)
	}
	return b.String()
}

// Topic is a persisted topic as returned by the repository.
type Topic struct {
	ID         int64
	Content    Content
	IsApproved bool
	CreatedAt  time.Time
}

// IndexID returns the similarity index id for a topic, optionally versioned.
func IndexID(topicID int64, versionID int64) string {
	if versionID > 0 {
		return fmt.Sprintf("%d_%d", topicID, versionID)
	}
	return fmt.Sprintf("%d", topicID)
}
