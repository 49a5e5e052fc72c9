package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for hemoflowd. The serving layer
// exposes them on /metrics through promhttp.
type Metrics struct {
	predictions     *prometheus.CounterVec
	predictionValue *prometheus.GaugeVec
	donorQueries    *prometheus.CounterVec
	chatRequests    *prometheus.CounterVec
	ingestedRecords *prometheus.CounterVec
	mergeCycles     prometheus.Counter
	trainingRuns    *prometheus.CounterVec
	modelMAE        *prometheus.GaugeVec
	realtimeRows    prometheus.Gauge
}

// New registers all hemoflow metrics on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hemoflow_predictions_total",
				Help: "Total number of demand predictions served",
			},
			[]string{"result"},
		),
		predictionValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hemoflow_last_prediction_units",
				Help: "Most recent predicted demand in units",
			},
			[]string{"city", "blood_type"},
		),
		donorQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hemoflow_donor_queries_total",
				Help: "Total number of top-donor queries",
			},
			[]string{"result"},
		),
		chatRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hemoflow_chat_requests_total",
				Help: "Total number of chat requests by outcome",
			},
			[]string{"outcome"},
		),
		ingestedRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hemoflow_ingested_records_total",
				Help: "Total number of real-time records ingested",
			},
			[]string{"kind"},
		),
		mergeCycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hemoflow_merge_cycles_total",
				Help: "Total number of analytics merge cycles",
			},
		),
		trainingRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hemoflow_training_runs_total",
				Help: "Total number of model training runs",
			},
			[]string{"trigger", "result"},
		),
		modelMAE: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hemoflow_model_mae",
				Help: "Mean absolute error of the current model on its holdout set",
			},
			[]string{"algorithm"},
		),
		realtimeRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hemoflow_realtime_rows",
				Help: "Number of real-time records in the journal",
			},
		),
	}

	reg.MustRegister(
		m.predictions,
		m.predictionValue,
		m.donorQueries,
		m.chatRequests,
		m.ingestedRecords,
		m.mergeCycles,
		m.trainingRuns,
		m.modelMAE,
		m.realtimeRows,
	)
	return m
}

// RecordPrediction records a served prediction and its value.
func (m *Metrics) RecordPrediction(city, bloodType string, units float64) {
	m.predictions.With(prometheus.Labels{"result": "ok"}).Inc()
	m.predictionValue.With(prometheus.Labels{"city": city, "blood_type": bloodType}).Set(units)
}

// RecordPredictionError records a failed prediction attempt.
func (m *Metrics) RecordPredictionError(result string) {
	m.predictions.With(prometheus.Labels{"result": result}).Inc()
}

// RecordDonorQuery records a top-donor query outcome.
func (m *Metrics) RecordDonorQuery(result string) {
	m.donorQueries.With(prometheus.Labels{"result": result}).Inc()
}

// RecordChat records a chat request outcome (answered, refused, error).
func (m *Metrics) RecordChat(outcome string) {
	m.chatRequests.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordIngested records ingested real-time records by kind.
func (m *Metrics) RecordIngested(kind string, n int) {
	m.ingestedRecords.With(prometheus.Labels{"kind": kind}).Add(float64(n))
}

// RecordMerge records an analytics merge cycle.
func (m *Metrics) RecordMerge() {
	m.mergeCycles.Inc()
}

// RecordTraining records a training run and, on success, the winning model's
// holdout MAE.
func (m *Metrics) RecordTraining(trigger, result string) {
	m.trainingRuns.With(prometheus.Labels{"trigger": trigger, "result": result}).Inc()
}

// SetModelMAE publishes the current model's holdout MAE.
func (m *Metrics) SetModelMAE(algorithm string, mae float64) {
	m.modelMAE.With(prometheus.Labels{"algorithm": algorithm}).Set(mae)
}

// SetRealtimeRows publishes the journal row count.
func (m *Metrics) SetRealtimeRows(n int) {
	m.realtimeRows.Set(float64(n))
}
