package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hemoflow/hemoflow/pkg/blood"
	"github.com/hemoflow/hemoflow/pkg/logx"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		message string
		allowed bool
	}{
		{"How does blood demand forecasting work?", true},
		{"Tell me about donor retention strategies", true},
		{"BLOOD TYPE COMPATIBILITY rules?", true}, // case-insensitive
		{"What's the weather today?", false},
		{"Write me a poem about the sea", false},
		{"", false},
	}
	for _, c := range cases {
		if got := Allowed(c.message); got != c.allowed {
			t.Fatalf("message %q expected allowed=%v got %v", c.message, c.allowed, got)
		}
	}
}

func testClient(baseURL string) *Client {
	return NewClient(Config{
		APIKey:    "test-key",
		Model:     "gemini-1.5-pro",
		BaseURL:   baseURL,
		MaxTokens: 100,
	}, logx.New("error"))
}

func TestAskSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Blood demand peaks in festival season."}]}}]}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Ask(context.Background(), "blood demand forecasting")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got != "Blood demand peaks in festival season." {
		t.Fatalf("unexpected answer: %q", got)
	}
}

func TestAskUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Ask(context.Background(), "blood demand forecasting")
	if err == nil {
		t.Fatalf("expected upstream error")
	}
	var upstream *blood.UpstreamServiceError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamServiceError got %T", err)
	}
	if upstream.Service != "gemini" {
		t.Fatalf("unexpected service tag %q", upstream.Service)
	}
}

func TestAskEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Ask(context.Background(), "blood demand forecasting")
	var upstream *blood.UpstreamServiceError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamServiceError for empty candidates, got %v", err)
	}
}

func TestAskNoAPIKey(t *testing.T) {
	c := NewClient(Config{Model: "gemini-1.5-pro", BaseURL: "http://localhost"}, logx.New("error"))

	_, err := c.Ask(context.Background(), "blood demand forecasting")
	var upstream *blood.UpstreamServiceError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamServiceError without API key, got %v", err)
	}
}
