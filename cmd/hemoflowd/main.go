// hemoflowd serves the decision-support API from the trained artifacts. The
// daemon is read-only: models and snapshots are produced by hemoflow-train
// and hemoflow-ingest and only loaded here.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hemoflow/hemoflow/pkg/analytics"
	"github.com/hemoflow/hemoflow/pkg/artifact"
	"github.com/hemoflow/hemoflow/pkg/chat"
	"github.com/hemoflow/hemoflow/pkg/config"
	"github.com/hemoflow/hemoflow/pkg/dataset"
	"github.com/hemoflow/hemoflow/pkg/donors"
	"github.com/hemoflow/hemoflow/pkg/logx"
	"github.com/hemoflow/hemoflow/pkg/server"
)

const (
	version = "1.0.0"
	appName = "hemoflowd"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logx.New(cfg.LogLevel)

	logger.Info("Starting hemoflow daemon",
		"version", version,
		"listen", cfg.ListenAddr,
		"log_level", cfg.LogLevel,
	)

	model, err := artifact.Load(cfg.ModelPath)
	if err != nil {
		logger.Error("Failed to load demand model", "error", err, "path", cfg.ModelPath)
		os.Exit(1)
	}
	logger.Info("Demand model loaded",
		"algorithm", model.Algorithm,
		"mae", model.Metrics.MAE,
		"version", model.Version,
	)

	donorModel, err := artifact.LoadDonor(cfg.DonorModelPath)
	if err != nil {
		logger.Error("Failed to load donor model", "error", err, "path", cfg.DonorModelPath)
		os.Exit(1)
	}
	registry, err := dataset.ReadDonors(cfg.DonorPath)
	if err != nil {
		logger.Error("Failed to read donor registry", "error", err, "path", cfg.DonorPath)
		os.Exit(1)
	}
	ranker := donors.NewRanker(registry, donorModel)
	logger.Info("Donor ranker ready", "donors", len(registry))

	snap, err := analytics.Load(cfg.AnalyticsPath)
	if err != nil {
		logger.Warn("No analytics snapshot, /api/analytics unavailable",
			"error", err,
			"path", cfg.AnalyticsPath,
		)
		snap = nil
	}

	chatClient := chat.NewClient(chat.Config{
		APIKey:    cfg.ChatAPIKey,
		Model:     cfg.ChatModel,
		BaseURL:   cfg.ChatBaseURL,
		MaxTokens: cfg.ChatMaxTokens,
	}, logger)

	srv := server.New(server.Options{
		Logger:     logger,
		Model:      model,
		Ranker:     ranker,
		Snapshot:   snap,
		ChatClient: chatClient,
		TopDonors:  cfg.TopDonors,
	})
	srv.Metrics().SetModelMAE(model.Algorithm, model.Metrics.MAE)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Daemon stopped")
}
