package mqtt

import (
	"testing"

	"github.com/hemoflow/hemoflow/pkg/analytics"
	"github.com/hemoflow/hemoflow/pkg/logx"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Enabled {
		t.Fatalf("publisher should be disabled by default")
	}
	if cfg.TopicPrefix != "hemoflow" || cfg.ClientID != "hemoflow" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Port != 1883 || cfg.QoS != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestDisabledClientIsNoOp(t *testing.T) {
	client := NewClient(DefaultConfig(), logx.New("error"))

	if err := client.Connect(); err != nil {
		t.Fatalf("disabled connect should be a no-op: %v", err)
	}
	if client.IsConnected() {
		t.Fatalf("disabled client reports connected")
	}

	if err := client.PublishSnapshot(&analytics.Snapshot{}); err != nil {
		t.Fatalf("disabled publish should be a no-op: %v", err)
	}
	if err := client.PublishIngestEvent(10, 6, 4); err != nil {
		t.Fatalf("disabled publish should be a no-op: %v", err)
	}
	if err := client.PublishTrainingEvent("ingest", "gradient_boosting", "v1", 12.5); err != nil {
		t.Fatalf("disabled publish should be a no-op: %v", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
}
