package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var indexJSON bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the topic similarity index",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Drop the index and re-embed every stored topic",
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

var indexResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every indexed topic",
	Args:  cobra.NoArgs,
	RunE:  runIndexReset,
}

func init() {
	indexCmd.PersistentFlags().BoolVar(&indexJSON, "json", false, "output as JSON")
	indexCmd.AddCommand(indexRebuildCmd, indexStatsCmd, indexResetCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	a, err := newApp(context.Background(), envName)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := a.context()

	report, err := a.indexing.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	if indexJSON {
		return printJSON(cmd, map[string]int{"indexed": report.Indexed, "failed": report.Failed})
	}
	cmd.Printf("Indexed %d topics", report.Indexed)
	if report.Failed > 0 {
		cmd.Printf(", %d failed", report.Failed)
	}
	cmd.Println()
	return nil
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	a, err := newApp(context.Background(), envName)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := a.context()

	st, err := a.indexing.Stats(ctx)
	if err != nil {
		return fmt.Errorf("index stats: %w", err)
	}
	if indexJSON {
		return printJSON(cmd, map[string]any{
			"index_name": st.IndexName,
			"count":      st.Count,
			"dimension":  st.Dimension,
		})
	}
	cmd.Printf("Index:     %s\n", st.IndexName)
	cmd.Printf("Topics:    %d\n", st.Count)
	cmd.Printf("Dimension: %d\n", st.Dimension)
	return nil
}

func runIndexReset(cmd *cobra.Command, _ []string) error {
	a, err := newApp(context.Background(), envName)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := a.context()

	if err := a.indexing.Reset(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	cmd.Println("Index reset.")
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
