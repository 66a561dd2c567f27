// Package scoring implements the HTTP client for the toxicity scoring API.
package scoring

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/conversationai/perspective-modbot/internal/config"
	"github.com/conversationai/perspective-modbot/internal/logger"
	"github.com/conversationai/perspective-modbot/internal/rules"
)

// MaxTextLength is the scoring API's hard cutoff. Longer texts are the
// caller's responsibility to skip before calling the client.
const MaxTextLength = 20000

// TooLong reports whether text exceeds the API's length cutoff.
func TooLong(text string) bool {
	return len(text) > MaxTextLength
}

const (
	analyzePath    = "/comments:analyze"
	errorTextLimit = 300
	requestTimeout = 30 * time.Second
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Client scores text against the comment-analysis API. Out-of-quota (429)
// responses are retried indefinitely at a fixed delay; all other non-OK
// statuses are surfaced as errors.
type Client struct {
	baseURL        string
	apiKey         string
	doNotStore     bool
	quotaDelay     time.Duration
	quotaWarnEvery time.Duration
	workers        int
	httpc          *http.Client
	limiter        *rate.Limiter
	logger         logger.Logger

	// lastQuotaWarn throttles the out-of-quota warning log. Per-client
	// state, not correctness-bearing.
	mu            sync.Mutex
	lastQuotaWarn time.Time
}

// NewClient creates a scoring client from config.
func NewClient(cfg config.ScorerConfig, log logger.Logger) *Client {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		doNotStore:     cfg.DoNotStore,
		quotaDelay:     cfg.QuotaRetryDelay,
		quotaWarnEvery: 15 * time.Second,
		workers:        workers,
		httpc:          &http.Client{Timeout: requestTimeout},
		limiter:        rate.NewLimiter(rate.Limit(cfg.QPS), cfg.QPS),
		logger:         log,
	}
}

type analyzeRequest struct {
	Comment             commentText         `json:"comment"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
	DoNotStore          bool                `json:"doNotStore"`
	Languages           []string            `json:"languages,omitempty"`
}

type commentText struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

// ScoreText returns a map from model name to score for the given text.
// Rate-limited and quota-retried; ctx cancels both the request and any
// retry sleep.
func (c *Client) ScoreText(ctx context.Context, text string, models []string, language string) (rules.ScoreMap, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := analyzeRequest{
		Comment:             commentText{Text: text},
		RequestedAttributes: make(map[string]struct{}, len(models)),
		DoNotStore:          c.doNotStore,
	}
	for _, model := range models {
		req.RequestedAttributes[model] = struct{}{}
	}
	if language != "" {
		req.Languages = []string{language}
	}
	body, err := jsonCodec.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode analyze request: %w", err)
	}

	var scores rules.ScoreMap
	operation := func() error {
		scores, err = c.analyzeOnce(ctx, body)
		return err
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(c.quotaDelay), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return scores, nil
}

// errOutOfQuota marks a 429 so the retry policy keeps going; every other
// failure is permanent from the retry loop's point of view.
var errOutOfQuota = fmt.Errorf("scoring API out of quota")

func (c *Client) analyzeOnce(ctx context.Context, body []byte) (rules.ScoreMap, error) {
	url := c.baseURL + analyzePath + "?key=" + c.apiKey
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("scoring request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.warnQuota()
		return nil, errOutOfQuota
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(c.apiError(resp))
	}

	var parsed analyzeResponse
	if err := jsonCodec.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode analyze response: %w", err))
	}

	scores := make(rules.ScoreMap, len(parsed.AttributeScores))
	for model, attr := range parsed.AttributeScores {
		scores[model] = attr.SummaryScore.Value
	}
	return scores, nil
}

func (c *Client) warnQuota() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.Sub(c.lastQuotaWarn) > c.quotaWarnEvery {
		c.logger.Warn("scoring API out of quota, retrying",
			logger.Duration("retry_delay", c.quotaDelay))
		c.lastQuotaWarn = now
	}
}

// apiError extracts a concise error message from a non-OK response.
func (c *Client) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorTextLimit+1))
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := string(raw)
	if err := jsonCodec.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}
	if len(msg) > errorTextLimit {
		msg = msg[:errorTextLimit] + " [truncated]"
	}
	return fmt.Errorf("scoring API status %d: %s", resp.StatusCode, msg)
}
