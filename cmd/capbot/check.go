package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
	domtopic "github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
)

var (
	checkContent    domtopic.Content
	checkThreshold  float64
	checkAutoModify bool
	checkExcludeID  string
	checkJSON       bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a topic proposal for duplicates",
	Long: `Compares a topic proposal against the similarity index. With --auto-modify,
a near-duplicate is rewritten once and rechecked.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkContent.Title, "title", "", "topic title (required)")
	f.StringVar(&checkContent.LocalizedTitle, "localized-title", "", "topic title in the local language")
	f.StringVar(&checkContent.Problem, "problem", "", "problem statement")
	f.StringVar(&checkContent.Context, "context", "", "background and context")
	f.StringVar(&checkContent.Body, "content", "", "main topic content")
	f.StringVar(&checkContent.Description, "description", "", "topic description")
	f.StringVar(&checkContent.Objectives, "objectives", "", "topic objectives")
	f.IntVar(&checkContent.SemesterID, "semester", 0, "semester id")
	f.IntVar(&checkContent.CategoryID, "category", 0, "category id")
	f.IntVar(&checkContent.SupervisorID, "supervisor", 0, "supervisor id")
	f.Float64Var(&checkThreshold, "threshold", 0, "similarity threshold (default from config)")
	f.BoolVar(&checkAutoModify, "auto-modify", false, "rewrite a duplicate once and recheck it")
	f.StringVar(&checkExcludeID, "exclude", "", "index id to skip, e.g. the topic's own entry")
	f.BoolVar(&checkJSON, "json", false, "output the outcome as JSON")
	_ = checkCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	a, err := newApp(context.Background(), envName)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := a.context()

	threshold := checkThreshold
	if !cmd.Flags().Changed("threshold") {
		threshold = a.cfg.Detection.Threshold
	}

	out, err := a.resolve.Resolve(ctx, resolution.Request{
		Content:          checkContent,
		Threshold:        threshold,
		ExcludeID:        checkExcludeID,
		AutoModify:       checkAutoModify,
		PreserveCoreIdea: *a.cfg.Detection.PreserveCoreIdea,
	})
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if checkJSON {
		return outputCheckJSON(cmd, out)
	}
	outputCheckText(cmd, out)
	return nil
}

type checkOutput struct {
	RunID       string            `json:"run_id"`
	Initial     verdictOutput     `json:"initial_check"`
	Final       *verdictOutput    `json:"final_check,omitempty"`
	Modified    *topicOutput      `json:"modified_topic,omitempty"`
	Changes     []string          `json:"modifications_made,omitempty"`
	Improvement float64           `json:"improvement,omitempty"`
}

type topicOutput struct {
	Title       string `json:"title"`
	Problem     string `json:"problem,omitempty"`
	Context     string `json:"context,omitempty"`
	Content     string `json:"content,omitempty"`
	Description string `json:"description,omitempty"`
	Objectives  string `json:"objectives,omitempty"`
}

type verdictOutput struct {
	Status          verdict.Status `json:"status"`
	Similarity      float64        `json:"similarity_score"`
	Message         string         `json:"message"`
	Degraded        bool           `json:"degraded,omitempty"`
	Similar         []string       `json:"similar_topics"`
	Recommendations []string       `json:"recommendations"`
}

func toVerdictOutput(v verdict.Verdict) verdictOutput {
	similar := make([]string, 0, len(v.Candidates))
	for _, c := range v.Candidates {
		similar = append(similar, fmt.Sprintf("%s (%.2f) %s", c.ID, c.Similarity, c.Metadata.Title))
	}
	recs := v.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return verdictOutput{
		Status:          v.Status,
		Similarity:      v.Similarity,
		Message:         v.Message,
		Degraded:        v.Degraded,
		Similar:         similar,
		Recommendations: recs,
	}
}

func outputCheckJSON(cmd *cobra.Command, out resolution.Outcome) error {
	res := checkOutput{RunID: out.RunID, Initial: toVerdictOutput(out.InitialVerdict)}
	if out.Modified() {
		final := toVerdictOutput(out.FinalVerdict)
		res.Final = &final
		c := out.AppliedProposal.Content
		res.Modified = &topicOutput{
			Title:       c.Title,
			Problem:     c.Problem,
			Context:     c.Context,
			Content:     c.Body,
			Description: c.Description,
			Objectives:  c.Objectives,
		}
		res.Changes = out.AppliedProposal.ModificationsMade
		res.Improvement = out.Improvement
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputCheckText(cmd *cobra.Command, out resolution.Outcome) {
	printVerdict(cmd, "Check", out.InitialVerdict)
	if !out.Modified() {
		return
	}
	p := out.AppliedProposal
	cmd.Println()
	cmd.Printf("Proposed title: %s\n", p.Content.Title)
	for _, m := range p.ModificationsMade {
		cmd.Printf("  - %s\n", m)
	}
	if p.Fallback {
		cmd.Println("  (heuristic rewrite, generator unavailable)")
	}
	cmd.Println()
	printVerdict(cmd, "Recheck", out.FinalVerdict)
	cmd.Printf("Similarity reduced by %.2f%%\n", out.Improvement*100)
}

func printVerdict(cmd *cobra.Command, label string, v verdict.Verdict) {
	cmd.Printf("%s: %s (similarity %.2f%%, threshold %.2f)\n", label, v.Status, v.Similarity*100, v.Threshold)
	cmd.Printf("  %s\n", v.Message)
	for _, c := range v.Candidates {
		cmd.Printf("  [%.2f] %s %s\n", c.Similarity, c.ID, c.Metadata.Title)
	}
	for _, r := range v.Recommendations {
		cmd.Printf("  * %s\n", r)
	}
}
