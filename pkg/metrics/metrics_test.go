package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordPrediction("Delhi", "O+", 123.4)
	m.RecordPredictionError("validation")
	m.RecordDonorQuery("ok")
	m.RecordChat("refused")
	m.RecordIngested("donation", 3)
	m.RecordMerge()
	m.RecordTraining("ingest", "ok")
	m.SetModelMAE("gradient_boosting", 12.5)
	m.SetRealtimeRows(42)

	if got := testutil.ToFloat64(m.mergeCycles); got != 1 {
		t.Fatalf("merge cycles expected 1 got %v", got)
	}
	if got := testutil.ToFloat64(m.realtimeRows); got != 42 {
		t.Fatalf("realtime rows expected 42 got %v", got)
	}
	if got := testutil.ToFloat64(m.ingestedRecords.WithLabelValues("donation")); got != 3 {
		t.Fatalf("ingested donations expected 3 got %v", got)
	}
	if got := testutil.ToFloat64(m.predictionValue.WithLabelValues("Delhi", "O+")); got != 123.4 {
		t.Fatalf("last prediction expected 123.4 got %v", got)
	}
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	New(reg)
}
