package logx

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info")
	logger.SetOutput(&buf)

	logger.Info("model selected", "algorithm", "gradient_boosting", "mae", 12.5)

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line["msg"] != "model selected" {
		t.Fatalf("unexpected msg %v", line["msg"])
	}
	if line["level"] != "info" {
		t.Fatalf("unexpected level %v", line["level"])
	}
	if line["algorithm"] != "gradient_boosting" {
		t.Fatalf("key-value field lost: %v", line)
	}
	if line["mae"] != 12.5 {
		t.Fatalf("numeric field lost: %v", line)
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("timestamp field missing: %v", line)
	}
}

func TestMapFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info")
	logger.SetOutput(&buf)

	logger.Warn("broker unavailable", map[string]interface{}{"broker": "localhost", "port": 1883})

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if line["broker"] != "localhost" {
		t.Fatalf("map field lost: %v", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn")
	logger.SetOutput(&buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("messages below warn should be suppressed: %q", buf.String())
	}

	logger.Error("visible")
	if buf.Len() == 0 {
		t.Fatalf("error message should be emitted")
	}
}
