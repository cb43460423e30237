package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"chat-widget/internal/agent"
	"chat-widget/internal/analyzer"
	"chat-widget/internal/crawler"
	"chat-widget/internal/history"
	"chat-widget/internal/ollama"
	"chat-widget/internal/searxng"
	"chat-widget/internal/server"
)

func newServeCommand() *cobra.Command {
	var (
		addr     string
		model    string
		noSearch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference /chat backend on Ollama",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.ListenAddr = addr
			}
			if cmd.Flags().Changed("model") {
				cfg.ModelName = model
			}
			if noSearch {
				cfg.SearXNGURL = ""
			}
			if err := cfg.ValidateServer(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			ollamaClient := ollama.NewClient(cfg.OllamaURL, cfg.OllamaTimeout)
			if err := ollamaClient.HealthCheck(ctx); err != nil {
				log.Warn().Err(err).Msg("Ollama is not reachable yet, make sure it is running: ollama serve")
			}

			hist := history.NewManager(cfg.HistoryPath, cfg.MaxHistorySessions)
			if err := hist.Load(); err != nil {
				log.Warn().Err(err).Msg("failed to load history")
			}

			opts := []agent.Option{
				agent.WithHistoryTurns(cfg.HistoryTurns),
				agent.WithLogger(log.Logger),
			}
			if cfg.SearXNGURL != "" {
				searx := searxng.NewClient(cfg.SearXNGURL, cfg.SearchTimeout)
				if err := searx.HealthCheck(ctx); err != nil {
					log.Warn().Err(err).Msg("SearXNG check failed, answers may come without references")
				}
				opts = append(opts,
					agent.WithSearcher(searx, cfg.MaxResults),
					agent.WithAnalyzer(analyzer.NewAnalyzer()),
				)
				if cfg.CrawlPages {
					opts = append(opts, agent.WithCrawler(crawler.NewCrawler(cfg.CrawlTimeout, cfg.MaxCrawlers, cfg.MaxContentSize)))
				}
			}

			srv := server.NewServer(
				agent.NewOllamaAgent(ollamaClient, cfg.ModelName, hist, opts...),
				server.Options{
					Addr:          cfg.ListenAddr,
					AllowedOrigin: cfg.AllowedOrigin,
					RatePerMinute: cfg.RateLimitPerMinute,
					RateBurst:     cfg.RateLimitBurst,
					Logger:        log.Logger,
				},
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides LISTEN_ADDR)")
	cmd.Flags().StringVar(&model, "model", "", "Ollama model name (overrides OLLAMA_MODEL)")
	cmd.Flags().BoolVar(&noSearch, "no-search", false, "Disable reference lookup")

	return cmd
}
