package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/postcraft/internal/observability"
)

type analyzeOptions struct {
	configPath string
	inputs     inputFlags
	out        string
	verbose    bool
	useBrowser bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Build only the business context and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	opts.inputs.register(cmd)
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the JSON context to this file instead of stdout")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print a summary of the context")
	cmd.Flags().BoolVar(&opts.useBrowser, "use-browser", false, "Use headless browser for script-rendered sites (requires Chrome)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	cfg, err := loadConfig(opts.configPath, os.Getenv)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = opts.useBrowser
	}
	if err := cfg.Validate(); err != nil {
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

	bc, err := a.builder.Build(ctx, inputs)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintBusinessContext(bc)
	}
	return writeJSON(cmd, opts.out, bc)
}
