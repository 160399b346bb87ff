package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/resolution"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show duplicate processing counters",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := newApp(context.Background(), envName)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := a.context()

	snap, err := a.stats.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	if statsJSON {
		out := make(map[string]int64, len(snap))
		for c, v := range snap {
			out[string(c)] = v
		}
		return printJSON(cmd, out)
	}
	for _, c := range resolution.Counters {
		cmd.Printf("%-22s %d\n", c, snap[c])
	}
	return nil
}
