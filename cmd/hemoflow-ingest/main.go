// hemoflow-ingest journals a real-time transaction batch, folds it into the
// analytics snapshot and retrains the demand model when the batch is large
// enough.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/hemoflow/hemoflow/pkg/analytics"
	"github.com/hemoflow/hemoflow/pkg/artifact"
	"github.com/hemoflow/hemoflow/pkg/blood"
	"github.com/hemoflow/hemoflow/pkg/config"
	"github.com/hemoflow/hemoflow/pkg/dataset"
	"github.com/hemoflow/hemoflow/pkg/fusion"
	"github.com/hemoflow/hemoflow/pkg/journal"
	"github.com/hemoflow/hemoflow/pkg/logx"
	"github.com/hemoflow/hemoflow/pkg/metrics"
	"github.com/hemoflow/hemoflow/pkg/mqtt"
)

const (
	version = "1.0.0"
	appName = "hemoflow-ingest"
)

func main() {
	var (
		dataPath    = flag.String("data", "data/realtime.csv", "Real-time transaction table to ingest")
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

	reg := prometheus.NewRegistry()
	mts := metrics.New(reg)

	txs, err := dataset.ReadRealtime(*dataPath)
	if err != nil {
		logger.Error("Failed to read real-time table", "error", err, "path", *dataPath)
		os.Exit(1)
	}
	logger.Info("Real-time batch loaded", "path", *dataPath, "records", len(txs))

	store, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Error("Failed to open journal", "error", err, "path", cfg.JournalPath)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Append(txs); err != nil {
		logger.Error("Failed to journal batch", "error", err)
		os.Exit(1)
	}
	journaled, err := store.All()
	if err != nil {
		logger.Error("Failed to read journal", "error", err)
		os.Exit(1)
	}

	publisher := mqtt.NewClient(mqttConfig(cfg), logger)
	if err := publisher.Connect(); err != nil {
		logger.Warn("MQTT connect failed, continuing without publish", "error", err)
	}
	defer publisher.Disconnect()

	snap, err := analytics.Load(cfg.AnalyticsPath)
	if err != nil {
		logger.Error("Failed to load analytics snapshot", "error", err, "path", cfg.AnalyticsPath)
		os.Exit(1)
	}

	eng := fusion.New(logger, cfg.RecentWindowDays, cfg.Seed)
	fused := eng.Process(txs)
	fusedAll := eng.Process(journaled)
	merged := eng.Merge(fused, fusedAll, snap, time.Now())
	if err := analytics.Save(cfg.AnalyticsPath, merged); err != nil {
		logger.Error("Failed to save merged snapshot", "error", err, "path", cfg.AnalyticsPath)
		os.Exit(1)
	}
	logger.Info("Snapshot merged", "batch", len(fused), "journal_total", len(journaled))

	donations, requests := 0, 0
	for _, f := range fused {
		if f.Kind == blood.Donation {
			donations++
		} else {
			requests++
		}
	}
	mts.RecordIngested("donation", donations)
	mts.RecordIngested("request", requests)
	mts.RecordMerge()
	mts.SetRealtimeRows(len(journaled))

	if err := publisher.PublishSnapshot(merged); err != nil {
		logger.Warn("Snapshot publish failed", "error", err)
	}
	if err := publisher.PublishIngestEvent(len(fused), donations, requests); err != nil {
		logger.Warn("Ingest event publish failed", "error", err)
	}

	if len(fused) < cfg.RetrainThreshold {
		logger.Info("Batch below retrain threshold, skipping",
			"batch", len(fused),
			"threshold", cfg.RetrainThreshold,
		)
		pushMetrics(cfg, logger, reg)
		return
	}

	historical, err := dataset.ReadHistory(cfg.HistoryPath)
	if err != nil {
		logger.Error("Failed to read history for retrain", "error", err, "path", cfg.HistoryPath)
		os.Exit(1)
	}

	combined := eng.Combine(historical, fusedAll)
	bundle, err := eng.Retrain(combined)
	if err != nil {
		logger.Error("Retraining failed", "error", err)
		mts.RecordTraining("ingest", "error")
		pushMetrics(cfg, logger, reg)
		os.Exit(1)
	}
	if err := artifact.Save(cfg.ModelPath, bundle); err != nil {
		logger.Error("Failed to save retrained model", "error", err, "path", cfg.ModelPath)
		os.Exit(1)
	}
	logger.Info("Model retrained",
		"algorithm", bundle.Algorithm,
		"mae", bundle.Metrics.MAE,
		"version", bundle.Version,
	)
	mts.RecordTraining("ingest", "success")
	mts.SetModelMAE(bundle.Algorithm, bundle.Metrics.MAE)

	// A full rebuild from the combined dataset clears the drift the
	// incremental percentage re-blend accumulates between retrains. The
	// real-time insights block survives the rebuild.
	rebuilt := analytics.Build(combined, time.Now())
	rebuilt.RealTime = merged.RealTime
	if err := analytics.Save(cfg.AnalyticsPath, rebuilt); err != nil {
		logger.Error("Failed to save rebuilt snapshot", "error", err, "path", cfg.AnalyticsPath)
		os.Exit(1)
	}
	logger.Info("Analytics rebuilt from combined dataset", "records", len(combined))

	if err := publisher.PublishTrainingEvent("ingest", bundle.Algorithm, bundle.Version, bundle.Metrics.MAE); err != nil {
		logger.Warn("Training event publish failed", "error", err)
	}
	pushMetrics(cfg, logger, reg)
}

// pushMetrics ships the run's counters to the Pushgateway when one is
// configured. A batch job has no scrape surface of its own.
func pushMetrics(cfg *config.Config, logger *logx.Logger, reg *prometheus.Registry) {
	if cfg.PushgatewayURL == "" {
		return
	}
	if err := push.New(cfg.PushgatewayURL, appName).Gatherer(reg).Push(); err != nil {
		logger.Warn("Metrics push failed", "error", err, "url", cfg.PushgatewayURL)
	}
}

func mqttConfig(cfg *config.Config) *mqtt.Config {
	mc := mqtt.DefaultConfig()
	mc.Enabled = cfg.MQTT.Enabled
	mc.Broker = cfg.MQTT.Broker
	mc.Port = cfg.MQTT.Port
	mc.ClientID = cfg.MQTT.ClientID
	mc.Username = cfg.MQTT.Username
	mc.Password = cfg.MQTT.Password
	mc.TopicPrefix = cfg.MQTT.TopicPrefix
	mc.QoS = cfg.MQTT.QoS
	return mc
}
