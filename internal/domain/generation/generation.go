// Package generation builds the prompts sent to the text generator and parses its plain replies.
package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/strategy"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
)

// MaxPromptCandidates is how many similar topics a prompt quotes.
const MaxPromptCandidates = 3

// MaxRecommendations caps the advisor's list.
const MaxRecommendations = 5

// ErrNoAlternatives is returned when a reply holds no parsable alternatives.
var ErrNoAlternatives = errors.New("no alternatives in reply")

// Request asks for a rewrite of Original following Strategy.
type Request struct {
	Original         topic.Content
	Strategy         strategy.Strategy
	Similarity       float64
	TopCandidates    []verdict.Candidate
	PreserveCoreIdea bool
}

// Analysis is the advisor's reading of a duplicate verdict.
type Analysis struct {
	Summary         string
	Recommendations []string
}

// Alternative is a distinct direction the author could take instead.
type Alternative struct {
	Approach       string   `json:"approach"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	KeyDifferences []string `json:"key_differences"`
}

// SystemPrompt frames every generator call.
const SystemPrompt = "You are an academic advisor who helps students shape original capstone project topics."

// RewritePrompt renders the modification request.
func RewritePrompt(req Request) string {
	c := req.Original
	preserve := "You MUST keep the core idea of the original topic."
	if !req.PreserveCoreIdea {
		preserve = "You may change the core idea if that is needed to stand apart."
	}
	maxStudents := c.MaxStudents
	if maxStudents <= 0 {
		maxStudents = 1
	}

	var b strings.Builder
	b.WriteString("Revise the capstone topic below so that it overlaps less with existing topics.\n\n")
	b.WriteString("## ORIGINAL TOPIC\n")
	fmt.Fprintf(&b, "Title: %s\n", c.Title)
	if c.LocalizedTitle != "" {
		fmt.Fprintf(&b, "Localized title: %s\n", c.LocalizedTitle)
	}
	fmt.Fprintf(&b, "Description: %s\n", c.Description)
	fmt.Fprintf(&b, "Objectives: %s\n", c.Objectives)
	fmt.Fprintf(&b, "Problem: %s\n", c.Problem)
	fmt.Fprintf(&b, "Context: %s\n", c.Context)
	fmt.Fprintf(&b, "Content: %s\n\n", c.Body)

	b.WriteString("## OVERLAP ANALYSIS\n")
	fmt.Fprintf(&b, "Highest similarity: %s\n", percent(req.Similarity))
	b.WriteString("Similar topics:\n")
	b.WriteString(candidateLines(req.TopCandidates, "- "))
	b.WriteString("\n## STRATEGY\n")
	b.WriteString(req.Strategy.Description())
	b.WriteString("\n\n## REQUIREMENTS\n")
	fmt.Fprintf(&b, "1. %s\n", preserve)
	b.WriteString("2. Keep the topic feasible for a student team.\n")
	b.WriteString("3. Make the difference from the similar topics explicit.\n")
	b.WriteString("4. Keep supervisor_id, semester_id, category_id and max_students unchanged.\n\n")
	b.WriteString("Reply with a single JSON object:\n")
	fmt.Fprintf(&b, `{
  "title": "revised title",
  "localized_title": "revised localized title",
  "description": "revised description",
  "objectives": "revised objectives",
  "problem": "revised problem statement",
  "context": "revised context",
  "content": "revised content",
  "supervisor_id": %d,
  "semester_id": %d,
  "category_id": %d,
  "max_students": %d,
  "modifications_made": ["each change you made"],
  "rationale": "why and how the topic was revised"
}
`, c.SupervisorID, c.SemesterID, c.CategoryID, maxStudents)
	b.WriteString("Make sure the JSON is valid and complete.")
	return b.String()
}

// AnalysisPrompt asks for a one or two sentence reading of the overlap.
func AnalysisPrompt(document string, candidates []verdict.Candidate) string {
	var b strings.Builder
	b.WriteString("Compare the proposed topic with the similar topics that were found.\n\n")
	b.WriteString("## Proposed topic\n")
	b.WriteString(document)
	b.WriteString("\n\n## Similar topics\n")
	b.WriteString(candidateLines(candidates, "- "))
	b.WriteString("\nIn one or two sentences, state the main similarity, how real the overlap is, ")
	b.WriteString("and one concrete way to reduce it.")
	return b.String()
}

// RecommendationsPrompt turns an analysis into a numbered list request.
func RecommendationsPrompt(analysis string) string {
	return "Based on this analysis of a capstone topic:\n\n" + analysis +
		"\n\nGive 3 to 5 concrete recommendations to reduce the overlap, most important first, " +
		"each under 20 words. Reply as a numbered list:\n1. ...\n2. ...\n3. ..."
}

// AlternativesPrompt asks for three alternative approaches to a topic.
func AlternativesPrompt(c topic.Content) string {
	return fmt.Sprintf(`Suggest 3 different approaches for the topic below so that it avoids duplicating existing work.

Original topic:
Title: %s
Description: %s

Propose one approach for each direction:
1. Change the research angle
2. Change the application scope
3. Change the implementation method

Reply with JSON:
{
  "alternatives": [
    {
      "approach": "approach name",
      "title": "new title",
      "description": "short description",
      "key_differences": ["main difference"]
    }
  ]
}`, c.Title, c.Description)
}

// ParseRecommendations reads numbered or dashed lines, capped at MaxRecommendations.
func ParseRecommendations(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		rec, ok := listItem(line)
		if !ok || rec == "" {
			continue
		}
		out = append(out, rec)
		if len(out) == MaxRecommendations {
			break
		}
	}
	return out
}

func listItem(line string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, "-"); ok {
		return strings.TrimSpace(rest), true
	}
	if rest, ok := strings.CutPrefix(line, "*"); ok {
		return strings.TrimSpace(rest), true
	}
	num, rest, ok := strings.Cut(line, ".")
	if !ok {
		num, rest, ok = strings.Cut(line, ")")
	}
	if !ok {
		return "", false
	}
	if _, err := strconv.Atoi(num); err != nil {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// ParseAlternatives extracts the alternatives list from a reply.
func ParseAlternatives(raw string) ([]Alternative, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, ErrNoAlternatives
	}
	var payload struct {
		Alternatives []Alternative `json:"alternatives"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("decode alternatives: %w", err)
	}
	out := payload.Alternatives[:0]
	for _, a := range payload.Alternatives {
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, ErrNoAlternatives
	}
	return out, nil
}

func candidateLines(candidates []verdict.Candidate, bullet string) string {
	if len(candidates) > MaxPromptCandidates {
		candidates = candidates[:MaxPromptCandidates]
	}
	if len(candidates) == 0 {
		return bullet + "none\n"
	}
	var b strings.Builder
	for _, c := range candidates {
		title := c.Metadata.Title
		if title == "" {
			title = "N/A"
		}
		fmt.Fprintf(&b, "%s%s (Similarity: %s)\n", bullet, title, percent(c.Similarity))
	}
	return b.String()
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
