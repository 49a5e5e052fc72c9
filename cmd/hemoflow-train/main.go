// hemoflow-train fits the demand and donor models from the historical tables
// and writes the model artifacts plus the analytics snapshot.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hemoflow/hemoflow/pkg/analytics"
	"github.com/hemoflow/hemoflow/pkg/artifact"
	"github.com/hemoflow/hemoflow/pkg/dataset"
	"github.com/hemoflow/hemoflow/pkg/donors"
	"github.com/hemoflow/hemoflow/pkg/features"
	"github.com/hemoflow/hemoflow/pkg/logx"
	"github.com/hemoflow/hemoflow/pkg/trainer"
)

const (
	version = "1.0.0"
	appName = "hemoflow-train"
)

func main() {
	var (
		dataPath    = flag.String("data", "data/history.csv", "Historical demand table")
		donorPath   = flag.String("donors", "data/donors.csv", "Donor registry")
		outDir      = flag.String("out", "models", "Output directory for model artifacts")
		seed        = flag.Int64("seed", 42, "Train/test split seed")
		logLevel    = flag.String("log-level", "info", "Log level (debug|info|warn|error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, version)
		os.Exit(0)
	}

	logger := logx.New(*logLevel)

	records, err := dataset.ReadHistory(*dataPath)
	if err != nil {
		logger.Error("Failed to read history", "error", err, "path", *dataPath)
		os.Exit(1)
	}
	logger.Info("History loaded", "path", *dataPath, "rows", len(records))

	res, err := features.Transform(records, nil)
	if err != nil {
		logger.Error("Feature transform failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Features built",
		"rows", len(res.Matrix),
		"features", len(features.FeatureNames),
	)

	trained, err := trainer.Train(res.Matrix, res.Target, features.FeatureNames, *seed, logger)
	if err != nil {
		logger.Error("Training failed", "error", err)
		os.Exit(1)
	}

	bundle := artifact.FromTraining(trained, res.Vocabs, res.Medians)
	modelPath := filepath.Join(*outDir, "demand_model.json")
	if err := artifact.Save(modelPath, bundle); err != nil {
		logger.Error("Failed to save demand model", "error", err, "path", modelPath)
		os.Exit(1)
	}
	logger.Info("Demand model saved",
		"path", modelPath,
		"algorithm", bundle.Algorithm,
		"mae", bundle.Metrics.MAE,
		"version", bundle.Version,
	)

	registry, err := dataset.ReadDonors(*donorPath)
	if err != nil {
		logger.Error("Failed to read donor registry", "error", err, "path", *donorPath)
		os.Exit(1)
	}

	donorBundle, err := donors.TrainModel(registry)
	if err != nil {
		logger.Error("Donor model training failed", "error", err)
		os.Exit(1)
	}
	donorModelPath := filepath.Join(*outDir, "donor_model.json")
	if err := artifact.Save(donorModelPath, donorBundle); err != nil {
		logger.Error("Failed to save donor model", "error", err, "path", donorModelPath)
		os.Exit(1)
	}
	logger.Info("Donor model saved", "path", donorModelPath, "donors", len(registry))

	snap := analytics.Build(records, time.Now())
	analyticsPath := filepath.Join(*outDir, "analytics.json")
	if err := analytics.Save(analyticsPath, snap); err != nil {
		logger.Error("Failed to save analytics snapshot", "error", err, "path", analyticsPath)
		os.Exit(1)
	}
	logger.Info("Analytics snapshot saved", "path", analyticsPath)
}
