// Package main provides the entry point for the interview-coach API server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	storeKind  string
)

var rootCmd = &cobra.Command{
	Use:   "interview_coach",
	Short: "AI interview coach API server and tools",
	Long: "interview_coach runs AI-led mock interviews over a REST API and derives " +
		"evaluation reports, per-question breakdowns and PDF exports from them.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", storePostgres, "Artifact store: postgres or memory")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
