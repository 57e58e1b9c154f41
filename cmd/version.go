package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spigell/skill-ranker/internal/ai/gemini"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the default models",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s version: %s\n", app, version)
		fmt.Fprintf(out, "default models: %s, %s\n", gemini.DefaultModel, gemini.DefaultEmbeddingModel)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
