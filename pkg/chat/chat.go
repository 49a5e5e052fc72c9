// Package chat answers topic-restricted questions through a hosted language
// model. Messages outside the blood-banking allow-list get a fixed refusal
// without an upstream call.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hemoflow/hemoflow/pkg/blood"
	"github.com/hemoflow/hemoflow/pkg/logx"
)

// RefusalResponse is returned for messages outside the allowed topics.
const RefusalResponse = "Sorry, I can only answer questions about Blood Banking."

// allowedTopics gates the upstream call: a message must mention at least one
// of these, case-insensitively.
var allowedTopics = []string{
	"smart blood banking", "blood demand prediction", "blood supply chain optimization",
	"real-time blood monitoring", "smart blood donation system", "automated blood management",
	"data-driven blood bank", "blood inventory forecasting",
	"blood demand forecasting", "predictive analytics for blood banking",
	"machine learning blood demand prediction", "blood usage patterns",
	"demand prediction models", "time series analysis for blood demand",
	"potential donor identification", "donor prediction algorithms",
	"donor pattern recognition", "machine learning donor prediction",
	"donor database management", "predictive donor analytics", "donor availability prediction",
	"donor matching algorithms", "blood group matching", "recipient compatibility analysis",
	"blood type compatibility", "donor-recipient matching system", "cross-matching blood types",
	"blood donation camp management", "donation camp scheduling", "donor outreach programs",
	"community blood drives", "volunteer management",
	"donor engagement", "blood donation promotion", "awareness campaigns",
	"donor retention strategies", "donor communication", "tracking donor history",
	"donation frequency monitoring",
	"artificial intelligence in blood banking", "data analytics for blood banks",
	"data-driven decision making", "smart blood bank management system",
	"donor health monitoring", "blood safety and quality control",
	"emergency blood availability", "health data privacy",
	"time series analysis", "regression models", "clustering techniques",
	"anomaly detection", "classification algorithms", "feature engineering",
	"data visualization for blood trends",
}

// Config holds the hosted-LLM client settings.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// Client calls the Gemini generateContent API for allowed messages.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *logx.Logger
}

// NewClient creates a chat client.
func NewClient(cfg Config, logger *logx.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Allowed reports whether a message mentions at least one allowed topic.
func Allowed(message string) bool {
	lower := strings.ToLower(message)
	for _, topic := range allowedTopics {
		if strings.Contains(lower, topic) {
			return true
		}
	}
	return false
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Ask sends an already-filtered message upstream and returns the model's
// reply. Failures surface as UpstreamServiceError with the underlying cause.
func (c *Client) Ask(ctx context.Context, message string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", &blood.UpstreamServiceError{Service: "gemini", Err: fmt.Errorf("no API key configured")}
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: message}}}},
		GenerationConfig: generationConfig{MaxOutputTokens: c.cfg.MaxTokens},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &blood.UpstreamServiceError{Service: "gemini", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &blood.UpstreamServiceError{Service: "gemini", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &blood.UpstreamServiceError{
			Service: "gemini",
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(data), 200)),
		}
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &blood.UpstreamServiceError{Service: "gemini", Err: fmt.Errorf("bad response: %w", err)}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &blood.UpstreamServiceError{Service: "gemini", Err: fmt.Errorf("empty response")}
	}

	c.logger.Debug("chat response received", "model", c.cfg.Model)
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
