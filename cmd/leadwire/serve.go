package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadwire/leadwire/internal/activity"
	"github.com/leadwire/leadwire/internal/analytics"
	"github.com/leadwire/leadwire/internal/api"
	"github.com/leadwire/leadwire/internal/config"
	"github.com/leadwire/leadwire/internal/db"
	"github.com/leadwire/leadwire/internal/lifecycle"
	"github.com/leadwire/leadwire/internal/metrics"
	"github.com/leadwire/leadwire/internal/realtime"
	"github.com/leadwire/leadwire/internal/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API and realtime server",
	RunE:  runServe,
}

var configFile string

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/leadwire/config.yaml", "Path to configuration file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	journal, err := activity.Open(cfg.Activity.Path, cfg.Activity.Depth)
	if err != nil {
		return err
	}
	defer journal.Close()

	m := metrics.New()
	metrics.SetGlobal(m)

	tokens := repository.NewTokenRepository(database.DB)
	leads := repository.NewLeadRepository(database.DB)
	campaigns := repository.NewCampaignRepository(database.DB)
	campaignLeads := repository.NewCampaignLeadRepository(database.DB)
	conversations := repository.NewConversationRepository(database.DB)
	messages := repository.NewMessageRepository(database.DB)
	agents := repository.NewAgentRepository(database.DB)

	engine := analytics.New(leads, campaigns, conversations, agents, logger)
	manager := lifecycle.New(campaigns, campaignLeads, leads, logger)
	registry := realtime.NewRegistry()
	gateway := realtime.NewGateway(registry, tokens, conversations, journal, logger)
	orchestrator := realtime.NewOrchestrator(gateway, engine, conversations, messages,
		leads, campaignLeads, agents, journal, logger)

	server := api.NewServer(cfg, api.Deps{
		Tokens:        tokens,
		Leads:         leads,
		Campaigns:     campaigns,
		Conversations: conversations,
		Messages:      messages,
		Agents:        agents,
		Lifecycle:     manager,
		Analytics:     engine,
		Orchestrator:  orchestrator,
		Gateway:       gateway,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector(m, cfg.Activity.Path, cfg.Metrics.FlushInterval)
		collector.Start(ctx)
		defer collector.Stop()

		metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path, cfg.Metrics.AllowedIPs, logger)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil {
				errCh <- err
			}
		}()
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown failed", "error", err)
		}
	}
	return server.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
