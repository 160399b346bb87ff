// Command capbot runs the capstone topic duplicate detection service and its maintenance tasks.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/SimondaVinciii/capbot-agent/internal/config"
)

var envName string

var rootCmd = &cobra.Command{
	Use:   "capbot",
	Short: "Capstone topic duplicate detection and resolution",
	Long: `capbot checks capstone topic proposals against previously accepted topics,
proposes rewrites for near-duplicates and keeps the similarity index in sync.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "configuration environment (local, test, prod)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
