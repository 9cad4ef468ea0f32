package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "embedder",
	Short: "Write OpenAI embeddings onto reddit posts as they change",
	Long: `embedder reacts to change events on the reddit post collection. For each event it
requests an embedding of "<subreddit>:<title>" from the OpenAI embeddings API and stores
the vector on the same document as plot_embedding.

Configuration comes from the environment (and a .env file when present).

Example usage:
  embedder serve                 # Consume events from TRIGGER_PROVIDER
  embedder invoke event.json     # Run the handler once on a saved event`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(invokeCmd)
}
