// Package main provides the postcraft CLI: generate social media posts from business
// material, analyze a business on its own, or serve the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "postcraft",
	Short: "Social media content generation pipeline",
	Long: `Postcraft turns a business website, uploaded files or a short description into a batch
of ready-to-publish social media posts, optionally paired with generated images or videos.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newGenerateCmd(), newAnalyzeCmd(), newServeCmd())
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
