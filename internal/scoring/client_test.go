package scoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/conversationai/perspective-modbot/internal/config"
	"github.com/conversationai/perspective-modbot/internal/logger"
)

func testClient(baseURL string) *Client {
	return NewClient(config.ScorerConfig{
		BaseURL:         baseURL,
		APIKey:          "test-key",
		Workers:         3,
		QPS:             1000,
		QuotaRetryDelay: time.Millisecond,
	}, logger.NewNop())
}

const analyzeBody = `{
	"attributeScores": {
		"TOXICITY": {"summaryScore": {"value": 0.87}},
		"INSULT": {"summaryScore": {"value": 0.12}}
	}
}`

func TestScoreText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in %s", r.URL)
		}
		w.Write([]byte(analyzeBody))
	}))
	defer srv.Close()

	scores, err := testClient(srv.URL).ScoreText(context.Background(), "some text",
		[]string{"TOXICITY", "INSULT"}, "en")
	if err != nil {
		t.Fatalf("ScoreText: %v", err)
	}
	if scores["TOXICITY"] != 0.87 || scores["INSULT"] != 0.12 {
		t.Errorf("scores = %v", scores)
	}
}

func TestScoreText_RetriesQuota(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(analyzeBody))
	}))
	defer srv.Close()

	scores, err := testClient(srv.URL).ScoreText(context.Background(), "text", []string{"TOXICITY"}, "")
	if err != nil {
		t.Fatalf("ScoreText: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if scores["TOXICITY"] != 0.87 {
		t.Errorf("scores = %v", scores)
	}
}

func TestScoreText_QuotaRetryCancelable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.quotaDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.ScoreText(ctx, "text", []string{"TOXICITY"}, "")
	if err == nil {
		t.Fatal("want error after cancellation")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("retry sleep ignored context cancellation")
	}
}

func TestScoreText_APIErrorTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "` + strings.Repeat("e", 500) + `"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ScoreText(context.Background(), "text", []string{"TOXICITY"}, "")
	if err == nil {
		t.Fatal("want error for 400")
	}
	if len(err.Error()) > 400 {
		t.Errorf("error not truncated, %d chars", len(err.Error()))
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Errorf("error = %v", err)
	}
}

func TestScoreTexts_OrderBySlot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(analyzeBody))
	}))
	defer srv.Close()

	texts := []string{"one", "two", "three", "four", "five"}
	results := testClient(srv.URL).ScoreTexts(context.Background(), texts, []string{"TOXICITY"}, "")
	if len(results) != len(texts) {
		t.Fatalf("results = %d", len(results))
	}
	for i, res := range results {
		if res.Err != nil {
			t.Errorf("result %d: %v", i, res.Err)
		}
		if res.Scores["TOXICITY"] != 0.87 {
			t.Errorf("result %d scores = %v", i, res.Scores)
		}
	}
}

func TestTooLong(t *testing.T) {
	if TooLong(strings.Repeat("a", MaxTextLength)) {
		t.Error("text at the limit is allowed")
	}
	if !TooLong(strings.Repeat("a", MaxTextLength+1)) {
		t.Error("text past the limit must be rejected")
	}
}
