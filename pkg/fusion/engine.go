// Package fusion ingests newly observed transactional rows, reconstructs the
// historical feature schema for them and merges them into the analytics
// snapshot with incremental update rules instead of a full recompute.
package fusion

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hemoflow/hemoflow/pkg/analytics"
	"github.com/hemoflow/hemoflow/pkg/artifact"
	"github.com/hemoflow/hemoflow/pkg/blood"
	"github.com/hemoflow/hemoflow/pkg/features"
	"github.com/hemoflow/hemoflow/pkg/logx"
	"github.com/hemoflow/hemoflow/pkg/trainer"
)

// weatherFactors is the closed weather-tag table. Real-time weather tags are
// free text and best effort, so lookup misses degrade to the default instead
// of failing. This is deliberately not the vocabulary encoder of the feature
// engine, which must fail loudly on unseen values.
var weatherFactors = map[string]float64{
	"sunny":   1.0,
	"rainy":   1.2,
	"cloudy":  1.0,
	"stormy":  1.5,
	"cold":    0.9,
	"unknown": 1.0,
}

const defaultWeatherFactor = 1.0

// WeatherFactor returns the demand scaler for a weather tag.
func WeatherFactor(tag string) float64 {
	if f, ok := weatherFactors[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return f
	}
	return defaultWeatherFactor
}

// FusedRecord is a transaction reconstructed into the historical record
// schema, with the transaction-only tags kept alongside.
type FusedRecord struct {
	blood.DemandRecord
	Kind    blood.TransactionKind
	Urgency string
}

// Engine merges real-time batches into the analytics snapshot and retrains
// the demand model once enough new rows arrive.
type Engine struct {
	logger       *logx.Logger
	recentWindow time.Duration
	seed         int64
}

// New creates a fusion engine.
func New(logger *logx.Logger, recentWindowDays int, seed int64) *Engine {
	return &Engine{
		logger:       logger,
		recentWindow: time.Duration(recentWindowDays) * 24 * time.Hour,
		seed:         seed,
	}
}

// Process reclassifies transactions as donations (supply) or requests
// (demand) and attaches city reference data, season and the table-driven
// multipliers.
func (e *Engine) Process(txs []blood.TransactionRecord) []FusedRecord {
	fused := make([]FusedRecord, 0, len(txs))
	for _, tx := range txs {
		rec := blood.DemandRecord{
			Date:               tx.Date,
			City:               tx.City,
			BloodType:          tx.BloodType,
			Population:         blood.DefaultPopulation,
			Hospitals:          blood.DefaultHospitals,
			SeasonalMultiplier: blood.SeasonalMultiplier(tx.Date.Month()),
			WeatherFactor:      WeatherFactor(tx.Weather),
		}
		if ref, ok := blood.LookupCity(tx.City); ok {
			rec.Population = ref.Population
			rec.Hospitals = ref.Hospitals
		}
		if tx.Kind == blood.Donation {
			rec.Supply = tx.Units
		} else {
			rec.Demand = tx.Units
		}
		rec.Derive()
		fused = append(fused, FusedRecord{DemandRecord: rec, Kind: tx.Kind, Urgency: tx.Urgency})
	}
	return fused
}

// Merge folds a processed batch into a snapshot and returns the updated
// document. The input snapshot is never mutated; the merge is all-or-nothing
// per invocation. A zero-row batch only advances lastUpdated.
//
// batch is the newly journaled records, journaled is every record accumulated
// so far including the batch. Only the batch's trailing-window rows feed the
// regional and blood-type aggregates (older journal rows were merged on
// earlier runs). The insights block and the forward prediction are recomputed
// from the full journal each time: the recent counters are replaced with the
// trailing-window sums, never accumulated across merges, and prediction
// confidence scales with the cumulative record count.
func (e *Engine) Merge(batch, journaled []FusedRecord, snap *analytics.Snapshot, now time.Time) *analytics.Snapshot {
	out := snap.Clone()
	out.RealTime.LastUpdated = now.UTC()
	if len(batch) == 0 {
		return out
	}

	cutoff := truncateDay(now.Add(-e.recentWindow))
	recentBatch := windowAfter(batch, cutoff)
	recentAll := windowAfter(journaled, cutoff)

	e.mergeRegional(out, recentBatch)
	e.mergeBloodTypes(out, recentBatch)
	e.replacePrediction(out, journaled)

	out.RealTime.TotalRealTimeRecords = len(journaled)
	donations, requests, critical := 0, 0, 0
	for _, f := range recentAll {
		donations += f.Supply
		requests += f.Demand
		if urgent(f.Urgency) {
			critical++
		}
	}
	out.RealTime.RecentDonations = donations
	out.RealTime.RecentRequests = requests
	out.RealTime.CriticalRequests = critical

	e.logger.Info("merged real-time batch",
		"records", len(batch), "recent", len(recentBatch), "cumulative", len(journaled))
	return out
}

// windowAfter keeps the records dated on or after cutoff.
func windowAfter(records []FusedRecord, cutoff time.Time) []FusedRecord {
	var recent []FusedRecord
	for _, f := range records {
		if !f.Date.Before(cutoff) {
			recent = append(recent, f)
		}
	}
	return recent
}

// mergeRegional adds each recent record's demand to its city total,
// appending cities not yet present.
func (e *Engine) mergeRegional(out *analytics.Snapshot, recent []FusedRecord) {
	cityDemand := make(map[string]float64)
	for _, f := range recent {
		cityDemand[string(f.City)] += float64(f.Demand)
	}
	for _, city := range sortedKeys(cityDemand) {
		demand := cityDemand[city]
		if demand == 0 {
			continue
		}
		if i := indexOf(out.RegionalDemand.Labels, city); i >= 0 {
			out.RegionalDemand.Data[i] += demand
		} else {
			out.RegionalDemand.Labels = append(out.RegionalDemand.Labels, city)
			out.RegionalDemand.Data = append(out.RegionalDemand.Data, demand)
		}
	}
}

// mergeBloodTypes re-blends the share percentages with the new demand
// weights. The formula is a first-order approximation: repeated incremental
// merges drift without a periodic full recompute from raw history. A full
// retrain rebuilds the shares from scratch.
func (e *Engine) mergeBloodTypes(out *analytics.Snapshot, recent []FusedRecord) {
	typeDemand := make(map[string]float64)
	for _, f := range recent {
		typeDemand[string(f.BloodType)] += float64(f.Demand)
	}
	for _, bt := range sortedKeys(typeDemand) {
		demand := typeDemand[bt]
		i := indexOf(out.BloodTypeDistribution.Labels, bt)
		if i < 0 || demand == 0 {
			continue
		}
		values := out.BloodTypeDistribution.Data
		total := 0.0
		for _, v := range values {
			total += v
		}
		values[i] = (values[i]*total/100 + demand) / (total + demand) * 100
	}
}

// replacePrediction swaps in a fresh forward estimate from the trailing 30
// demand values of the accumulated real-time records. Confidence grows with
// the cumulative record count, saturating at 100 rows.
func (e *Engine) replacePrediction(out *analytics.Snapshot, journaled []FusedRecord) {
	demands := make([]float64, 0, len(journaled))
	for _, f := range journaled {
		demands = append(demands, float64(f.Demand))
	}
	if len(demands) == 0 {
		return
	}
	if len(demands) > 30 {
		demands = demands[len(demands)-30:]
	}
	sum := 0.0
	for _, d := range demands {
		sum += d
	}
	mean := sum / float64(len(demands))

	freshness := math.Min(float64(len(journaled))/100, 1.0)
	out.NextMonth.PredictedDemand = int(mean * 30)
	out.NextMonth.Confidence = int(85 + freshness*10)
}

// Combine merges the historical table with fused real-time records into one
// deduplicated dataset sorted by date. The result feeds both the retrain and
// the full analytics rebuild that clears incremental merge drift.
func (e *Engine) Combine(historical []blood.DemandRecord, fused []FusedRecord) []blood.DemandRecord {
	combined := make([]blood.DemandRecord, 0, len(historical)+len(fused))
	combined = append(combined, historical...)
	for _, f := range fused {
		combined = append(combined, f.DemandRecord)
	}

	combined = dedupe(combined)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Date.Before(combined[j].Date)
	})
	return combined
}

// Retrain fits a new demand model on a combined dataset. The returned bundle
// is brand new; the caller swaps it in atomically. Errors leave the active
// artifact untouched.
func (e *Engine) Retrain(combined []blood.DemandRecord) (*artifact.Bundle, error) {
	e.logger.Info("retraining on combined dataset", "combined", len(combined))

	res, err := features.Transform(combined, nil)
	if err != nil {
		return nil, err
	}
	trained, err := trainer.Train(res.Matrix, res.Target, features.FeatureNames, e.seed, e.logger)
	if err != nil {
		return nil, err
	}
	return artifact.FromTraining(trained, res.Vocabs, res.Medians), nil
}

// dedupe drops exact duplicate observations, keeping first occurrence.
func dedupe(records []blood.DemandRecord) []blood.DemandRecord {
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	for _, r := range records {
		key := r.Date.Format("2006-01-02") + "|" + string(r.City) + "|" + string(r.BloodType) +
			"|" + strconv.Itoa(r.Demand) + "|" + strconv.Itoa(r.Supply)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func urgent(urgency string) bool {
	switch strings.ToLower(strings.TrimSpace(urgency)) {
	case "high", "critical":
		return true
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
