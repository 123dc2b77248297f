package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"newsgrader/agent"
	"newsgrader/audit"
	"newsgrader/config"
	"newsgrader/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:           "newsgrader",
		Short:         "AI-powered truth and accuracy auditor for news articles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(newAuditCommand(&configPath, &verbose))
	root.AddCommand(newServeCommand(&configPath, &verbose))
	return root
}

func newAuditCommand(configPath *string, verbose *bool) *cobra.Command {
	var url, depth, apiKey string
	var mock bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit one article URL and print the structured verdict",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if apiKey != "" {
				cfg.APIKey = apiKey
			}
			if depth == "" {
				depth = cfg.Depth
			}
			parsedDepth, err := audit.ParseDepth(depth)
			if err != nil {
				return err
			}

			auditor, err := buildAuditor(cfg, mock, logger)
			if err != nil {
				return err
			}

			sink := func(ev agent.ProgressEvent) {
				printProgress(cmd.ErrOrStderr(), ev)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 6*time.Minute)
			defer cancel()
			result, err := auditor.RunAudit(ctx, audit.Request{
				URL:    url,
				APIKey: cfg.APIKey,
				Depth:  parsedDepth,
			}, sink)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "article URL to audit")
	cmd.Flags().StringVar(&depth, "depth", "", "audit depth: mini (fast) or pro (deep)")
	cmd.Flags().StringVar(&apiKey, "key", "", "agent API key (overrides config)")
	cmd.Flags().BoolVar(&mock, "mock", false, "use the canned agent instead of the network")
	return cmd
}

func newServeCommand(configPath *string, verbose *bool) *cobra.Command {
	var addr string
	var mock bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			auditor, err := buildAuditor(cfg, mock, logger)
			if err != nil {
				return err
			}
			srv, err := server.New(auditor, cfg, logger)
			if err != nil {
				return err
			}

			listen := cfg.ServerAddr
			if addr != "" {
				listen = addr
			}
			logger.Info("starting web server", zap.String("addr", listen))
			return http.ListenAndServe(listen, srv.Routes())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "http listen address (overrides config)")
	cmd.Flags().BoolVar(&mock, "mock", false, "use the canned agent instead of the network")
	return cmd
}

func setup(configPath string, verbose bool) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	var logger *zap.Logger
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func buildAuditor(cfg config.Config, mock bool, logger *zap.Logger) (*audit.Auditor, error) {
	opts := audit.Options{
		PollPolicy: agent.PollPolicy{Interval: cfg.PollInterval, MaxAttempts: cfg.PollMaxAttempts},
		CacheTTL:   cfg.CacheTTL,
	}
	if mock {
		return audit.NewAuditor(agent.MockClient{}, opts, logger)
	}
	client, err := agent.NewClient(agent.Settings{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.HTTPTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	return audit.NewAuditor(client, opts, logger)
}

func printProgress(w io.Writer, ev agent.ProgressEvent) {
	switch ev.Kind {
	case agent.ProgressPlan:
		fmt.Fprintf(w, "Plan: %s\n", ev.Text)
	case agent.ProgressSearching:
		fmt.Fprintf(w, "Searching: %s\n", ev.Text)
	case agent.ProgressThinking:
		fmt.Fprintf(w, "Thinking: %s\n", ev.Text)
	case agent.ProgressStructuredChunk:
		fmt.Fprintln(w, "Received structured report")
	case agent.ProgressTextAppended:
		// Token-level noise; skipped on the CLI.
	}
}
