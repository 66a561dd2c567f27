package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/conversationai/perspective-modbot/internal/logger"
	"github.com/conversationai/perspective-modbot/internal/recon"
)

const (
	infoPath         = "/api/info.json"
	deletedAuthor    = "[deleted]"
	commentPrefix    = "t1_"
	statusReqTimeout = 30 * time.Second
	statusErrTextCap = 300
	statusRetryDelay = 5 * time.Second
	defaultStatusQPS = 1
)

// StatusClient fetches comment state over the platform's multi-info
// endpoint. It implements recon.StatusSource. Rate-limited because the
// reconcile loop can otherwise burst a lookup every flush.
type StatusClient struct {
	baseURL     string
	userAgent   string
	hasModCreds bool
	retryDelay  time.Duration
	httpc       *http.Client
	limiter     *rate.Limiter
	logger      logger.Logger
}

// NewStatusClient creates a status source for the given API base URL.
func NewStatusClient(baseURL, userAgent string, hasModCreds bool, log logger.Logger) *StatusClient {
	return &StatusClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   userAgent,
		hasModCreds: hasModCreds,
		retryDelay:  statusRetryDelay,
		httpc:       &http.Client{Timeout: statusReqTimeout},
		limiter:     rate.NewLimiter(rate.Limit(defaultStatusQPS), 1),
		logger:      log,
	}
}

type infoResponse struct {
	Data struct {
		Children []struct {
			Data infoItem `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type infoItem struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Body        string `json:"body"`
	Approved    bool   `json:"approved"`
	Removed     bool   `json:"removed"`
	Score       int    `json:"score"`
	Ups         int    `json:"ups"`
	Downs       int    `json:"downs"`
	ScoreHidden bool   `json:"score_hidden"`
	Collapsed   bool   `json:"collapsed"`
}

// MultiGet looks up current state for a batch of comment ids. Ids that no
// longer resolve are simply absent from the result. Throttled (429)
// responses retry indefinitely at a fixed delay; other failures are
// returned.
func (c *StatusClient) MultiGet(ctx context.Context, ids []string) ([]recon.ItemStatus, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > recon.MaxMultiGet {
		return nil, fmt.Errorf("status lookup of %d ids exceeds the %d cap", len(ids), recon.MaxMultiGet)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullnames := make([]string, len(ids))
	for i, id := range ids {
		fullnames[i] = commentPrefix + id
	}
	reqURL := c.baseURL + infoPath + "?id=" + url.QueryEscape(strings.Join(fullnames, ","))

	var parsed infoResponse
	operation := func() error {
		return c.getOnce(ctx, reqURL, &parsed)
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(c.retryDelay), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	items := make([]recon.ItemStatus, 0, len(parsed.Data.Children))
	for _, child := range parsed.Data.Children {
		items = append(items, child.Data.toStatus())
	}
	return items, nil
}

func (c *StatusClient) getOnce(ctx context.Context, reqURL string, out *infoResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("status request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn("status API throttled, retrying",
			logger.Duration("retry_delay", c.retryDelay))
		return fmt.Errorf("status API throttled")
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, statusErrTextCap))
		return backoff.Permanent(fmt.Errorf("status API status %d: %s", resp.StatusCode, raw))
	}
	if err := jsonCodec.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode status response: %w", err))
	}
	return nil
}

func (i infoItem) toStatus() recon.ItemStatus {
	return recon.ItemStatus{
		ID:            i.ID,
		AuthorPresent: i.Author != "" && i.Author != deletedAuthor,
		Body:          i.Body,
		Approved:      i.Approved,
		Removed:       i.Removed,
		Score:         i.Score,
		Ups:           i.Ups,
		Downs:         i.Downs,
		ScoreHidden:   i.ScoreHidden,
		Collapsed:     i.Collapsed,
	}
}
