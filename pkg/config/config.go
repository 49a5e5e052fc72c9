// Package config loads the hemoflow configuration from the environment.
// One immutable Config is built at process start and threaded through every
// component; nothing reads the environment after Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultLogLevel         = "info"
	DefaultListenAddr       = ":8080"
	DefaultDataDir          = "data"
	DefaultModelDir         = "models"
	DefaultRetrainThreshold = 50
	DefaultRecentWindowDays = 7
	DefaultTrailingWindow   = 30
	DefaultSeed             = 42
	DefaultTopDonors        = 5
	DefaultChatModel        = "gemini-1.5-pro"
	DefaultChatBaseURL      = "https://generativelanguage.googleapis.com"
	DefaultChatMaxTokens    = 300
	DefaultMQTTPort         = 1883
	DefaultMQTTTopicPrefix  = "hemoflow"
)

// Config is the full hemoflow configuration.
type Config struct {
	LogLevel   string
	ListenAddr string

	// File layout
	HistoryPath    string // historical demand table (CSV)
	DonorPath      string // donor registry (CSV)
	ModelPath      string // demand model artifact (JSON)
	DonorModelPath string // donor model artifact (JSON)
	AnalyticsPath  string // analytics snapshot (JSON)
	JournalPath    string // real-time record journal (sqlite)

	// Pipeline tuning
	Seed             int64
	RetrainThreshold int
	RecentWindowDays int
	TopDonors        int

	// Chat collaborator
	ChatAPIKey    string
	ChatModel     string
	ChatBaseURL   string
	ChatMaxTokens int

	// Telemetry publish
	MQTT           MQTTConfig
	PushgatewayURL string // batch-job metrics push target, empty disables
}

// MQTTConfig holds the optional MQTT publisher settings.
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	Port        int
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         int
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("HEMOFLOW_DATA_DIR", DefaultDataDir)
	modelDir := getEnv("HEMOFLOW_MODEL_DIR", DefaultModelDir)

	cfg := &Config{
		LogLevel:   getEnv("HEMOFLOW_LOG_LEVEL", DefaultLogLevel),
		ListenAddr: getEnv("HEMOFLOW_LISTEN_ADDR", DefaultListenAddr),

		HistoryPath:    getEnv("HEMOFLOW_HISTORY_PATH", dataDir+"/history.csv"),
		DonorPath:      getEnv("HEMOFLOW_DONOR_PATH", dataDir+"/donors.csv"),
		ModelPath:      getEnv("HEMOFLOW_MODEL_PATH", modelDir+"/demand_model.json"),
		DonorModelPath: getEnv("HEMOFLOW_DONOR_MODEL_PATH", modelDir+"/donor_model.json"),
		AnalyticsPath:  getEnv("HEMOFLOW_ANALYTICS_PATH", modelDir+"/analytics.json"),
		JournalPath:    getEnv("HEMOFLOW_JOURNAL_PATH", dataDir+"/realtime.db"),

		Seed:             int64(getEnvInt("HEMOFLOW_SEED", DefaultSeed)),
		RetrainThreshold: getEnvInt("HEMOFLOW_RETRAIN_THRESHOLD", DefaultRetrainThreshold),
		RecentWindowDays: getEnvInt("HEMOFLOW_RECENT_WINDOW_DAYS", DefaultRecentWindowDays),
		TopDonors:        getEnvInt("HEMOFLOW_TOP_DONORS", DefaultTopDonors),

		ChatAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		ChatModel:     getEnv("HEMOFLOW_CHAT_MODEL", DefaultChatModel),
		ChatBaseURL:   getEnv("HEMOFLOW_CHAT_BASE_URL", DefaultChatBaseURL),
		ChatMaxTokens: getEnvInt("HEMOFLOW_CHAT_MAX_TOKENS", DefaultChatMaxTokens),

		MQTT: MQTTConfig{
			Enabled:     getEnvBool("HEMOFLOW_MQTT_ENABLED", false),
			Broker:      getEnv("HEMOFLOW_MQTT_BROKER", "localhost"),
			Port:        getEnvInt("HEMOFLOW_MQTT_PORT", DefaultMQTTPort),
			ClientID:    getEnv("HEMOFLOW_MQTT_CLIENT_ID", "hemoflow"),
			Username:    os.Getenv("HEMOFLOW_MQTT_USERNAME"),
			Password:    os.Getenv("HEMOFLOW_MQTT_PASSWORD"),
			TopicPrefix: getEnv("HEMOFLOW_MQTT_TOPIC_PREFIX", DefaultMQTTTopicPrefix),
			QoS:         getEnvInt("HEMOFLOW_MQTT_QOS", 1),
		},
		PushgatewayURL: os.Getenv("HEMOFLOW_PUSHGATEWAY_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that would break the pipeline.
func (c *Config) Validate() error {
	if c.RetrainThreshold < 1 {
		return fmt.Errorf("retrain threshold must be >= 1, got %d", c.RetrainThreshold)
	}
	if c.RecentWindowDays < 1 {
		return fmt.Errorf("recent window must be >= 1 day, got %d", c.RecentWindowDays)
	}
	if c.TopDonors < 1 {
		return fmt.Errorf("top donors must be >= 1, got %d", c.TopDonors)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt enabled but no broker configured")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0..2, got %d", c.MQTT.QoS)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
