package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/postcraft/internal/logging"
	"github.com/jonathan/postcraft/internal/pipeline"
	"github.com/jonathan/postcraft/internal/types"
)

type generateOptions struct {
	configPath string
	inputs     inputFlags
	postType   string
	count      int
	creativity int
	mediaStyle string
	productURL string
	platforms  []string
	out        string
	verbose    bool
	useBrowser bool
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the full pipeline: business context, post text and visuals",
		Long: `Analyzes the supplied business material, writes a batch of posts and, for image or video
post types, generates and stores one visual per post. The result is printed as JSON.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	// Config file flag (processed first)
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	opts.inputs.register(cmd)
	cmd.Flags().StringVarP(&opts.postType, "type", "t", string(types.PostTypeTextURL), "Post type: text_url, text_image or text_video")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 5, "Number of posts to generate")
	cmd.Flags().IntVar(&opts.creativity, "creativity", 5, "Creativity from 1 (conservative) to 10 (adventurous)")
	cmd.Flags().StringVar(&opts.mediaStyle, "media-style", "", "Visual style hint for generated images or videos")
	cmd.Flags().StringVar(&opts.productURL, "product-url", "", "Link to promote in text_url posts")
	cmd.Flags().StringArrayVar(&opts.platforms, "platform", nil, "Target platform (repeatable): instagram, facebook, linkedin, x, tiktok, threads, youtube")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the JSON result to this file instead of stdout")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print detailed stage summaries")
	cmd.Flags().BoolVar(&opts.useBrowser, "use-browser", false, "Use headless browser for script-rendered sites (requires Chrome)")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	cfg, err := loadConfig(opts.configPath, os.Getenv)
	if err != nil {
		return err
	}

	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = opts.useBrowser
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	postType, err := types.ParsePostType(opts.postType)
	if err != nil {
		return err
	}
	inputs, err := opts.inputs.inputs()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.orchestrator.Run(ctx, pipeline.Request{
		Inputs:     inputs,
		PostType:   postType,
		Count:      opts.count,
		Creativity: opts.creativity,
		MediaStyle: opts.mediaStyle,
		ProductURL: opts.productURL,
		Platforms:  opts.platforms,
		OnProgress: func(event pipeline.ProgressEvent) {
			a.logger.WithFields(logging.Fields{
				"run_id": event.RunID,
				"step":   event.Step,
			}).Info(event.Message)
		},
	})
	if err != nil {
		return err
	}

	return writeJSON(cmd, opts.out, result)
}

// writeJSON writes v indented to path, or to the command's stdout when path is empty.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}
