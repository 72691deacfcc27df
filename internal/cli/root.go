// Package cli implements the genvid command-line interface using Cobra.
// Each subcommand maps to one pipeline (generate, avatar) or a supporting
// concern (jobs, serve).
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "genvid",
	Short: "genvid — Generate videos from images and audio",
	Long: `genvid drives two remote video-generation service families from the
command line: image-to-video generation and audio-driven talking-head
avatars. Inputs are published through a hosting relay, jobs are polled to
completion, and artifacts land under the local data directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	// Load .env if present; credentials may also be exported directly.
	_ = godotenv.Load()

	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
