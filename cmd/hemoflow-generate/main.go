// hemoflow-generate synthesizes the historical demand table and the donor
// registry used to bootstrap training.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hemoflow/hemoflow/pkg/dataset"
	"github.com/hemoflow/hemoflow/pkg/logx"
)

const (
	version = "1.0.0"
	appName = "hemoflow-generate"
)

func main() {
	var (
		out         = flag.String("out", "data/history.csv", "Output path for the historical demand table")
		donorsOut   = flag.String("donors-out", "data/donors.csv", "Output path for the donor registry")
		start       = flag.String("start", "2021-01-01", "First day of the generated history (YYYY-MM-DD)")
		end         = flag.String("end", "2024-12-31", "Last day of the generated history (YYYY-MM-DD)")
		seed        = flag.Uint64("seed", 42, "Generator seed")
		donorCount  = flag.Int("donors", 500, "Number of synthetic donors")
		logLevel    = flag.String("log-level", "info", "Log level (debug|info|warn|error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, version)
		os.Exit(0)
	}

	logger := logx.New(*logLevel)

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		logger.Error("Invalid start date", "error", err, "start", *start)
		os.Exit(1)
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		logger.Error("Invalid end date", "error", err, "end", *end)
		os.Exit(1)
	}
	if endDate.Before(startDate) {
		logger.Error("End date before start date", "start", *start, "end", *end)
		os.Exit(1)
	}

	logger.Info("Generating historical demand table",
		"start", *start,
		"end", *end,
		"seed", *seed,
	)

	records := dataset.GenerateHistory(dataset.GeneratorConfig{
		Seed:  *seed,
		Start: startDate,
		End:   endDate,
	})
	if err := dataset.WriteHistory(*out, records); err != nil {
		logger.Error("Failed to write history", "error", err, "path", *out)
		os.Exit(1)
	}
	logger.Info("History written", "path", *out, "rows", len(records))

	donors := dataset.GenerateDonors(*seed, *donorCount)
	if err := dataset.WriteDonors(*donorsOut, donors); err != nil {
		logger.Error("Failed to write donor registry", "error", err, "path", *donorsOut)
		os.Exit(1)
	}
	logger.Info("Donor registry written", "path", *donorsOut, "donors", len(donors))
}
