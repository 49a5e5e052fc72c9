package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.RetrainThreshold != DefaultRetrainThreshold {
		t.Fatalf("expected retrain threshold %d got %d", DefaultRetrainThreshold, cfg.RetrainThreshold)
	}
	if cfg.HistoryPath != "data/history.csv" || cfg.ModelPath != "models/demand_model.json" {
		t.Fatalf("unexpected default paths: %q %q", cfg.HistoryPath, cfg.ModelPath)
	}
	if cfg.ChatModel != DefaultChatModel || cfg.ChatMaxTokens != DefaultChatMaxTokens {
		t.Fatalf("unexpected chat defaults: %q %d", cfg.ChatModel, cfg.ChatMaxTokens)
	}
	if cfg.MQTT.Enabled {
		t.Fatalf("mqtt should be disabled by default")
	}
	if cfg.PushgatewayURL != "" {
		t.Fatalf("pushgateway should be disabled by default, got %q", cfg.PushgatewayURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HEMOFLOW_LISTEN_ADDR", ":9090")
	t.Setenv("HEMOFLOW_DATA_DIR", "/var/lib/hemoflow")
	t.Setenv("HEMOFLOW_RETRAIN_THRESHOLD", "25")
	t.Setenv("HEMOFLOW_MQTT_ENABLED", "true")
	t.Setenv("HEMOFLOW_MQTT_BROKER", "broker.internal")
	t.Setenv("HEMOFLOW_PUSHGATEWAY_URL", "http://pushgw.internal:9091")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Fatalf("listen addr override ignored: %q", cfg.ListenAddr)
	}
	if cfg.HistoryPath != "/var/lib/hemoflow/history.csv" {
		t.Fatalf("data dir override ignored: %q", cfg.HistoryPath)
	}
	if cfg.RetrainThreshold != 25 {
		t.Fatalf("retrain threshold override ignored: %d", cfg.RetrainThreshold)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "broker.internal" {
		t.Fatalf("mqtt overrides ignored: %+v", cfg.MQTT)
	}
	if cfg.PushgatewayURL != "http://pushgw.internal:9091" {
		t.Fatalf("pushgateway override ignored: %q", cfg.PushgatewayURL)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("HEMOFLOW_RETRAIN_THRESHOLD", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for zero retrain threshold")
	}
}

func TestValidateMQTT(t *testing.T) {
	cfg := &Config{
		RetrainThreshold: 50,
		RecentWindowDays: 7,
		TopDonors:        5,
		MQTT:             MQTTConfig{Enabled: true, Broker: "", QoS: 1},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for enabled mqtt without broker")
	}

	cfg.MQTT.Broker = "localhost"
	cfg.MQTT.QoS = 3
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for qos 3")
	}

	cfg.MQTT.QoS = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
