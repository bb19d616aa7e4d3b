package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/postcraft/internal/server"
)

type serveOptions struct {
	configPath string
	addr       string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long:  `Start an HTTP server that exposes the generation pipeline, streaming progress and run status.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Address to listen on (default :8080 or LISTEN_ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := loadConfig(opts.configPath, os.Getenv)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.ListenAddr = opts.addr
	}
	// Stage summaries are printed by the CLI only
	cfg.Verbose = false
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	deps := server.Deps{
		Pipeline: a.orchestrator,
		Contexts: a.builder,
		Logger:   a.logger,
		Gatherer: a.registry,
	}
	if a.database != nil {
		deps.Results = a.database
	}

	srv := server.New(server.Config{
		Addr:      cfg.ListenAddr,
		ClientRPS: cfg.ClientRPS,
		Getenv:    os.Getenv,
	}, deps)
	return srv.Start(ctx)
}
