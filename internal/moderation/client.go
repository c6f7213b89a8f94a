package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/openadmod/console/internal/models"
	"github.com/openadmod/console/internal/observability"
)

// Sentinel errors, one per operation. Transport failures and non-2xx
// responses both collapse into these; the wrapped cause stays available for
// logs via errors.Unwrap.
var (
	ErrListAds        = errors.New("list ads failed")
	ErrAdDetails      = errors.New("load ad details failed")
	ErrApprove        = errors.New("approve failed")
	ErrReject         = errors.New("reject failed")
	ErrRequestChanges = errors.New("request changes failed")
	ErrStats          = errors.New("load stats failed")
)

// UserMessage maps an operation error to the fixed message moderators see.
// The console makes no distinction between 4xx, 5xx and network failures.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrListAds):
		return "Не удалось загрузить объявления. Попробуйте обновить позже."
	case errors.Is(err, ErrAdDetails):
		return "Не удалось загрузить объявление. Попробуйте позже."
	case errors.Is(err, ErrApprove):
		return "Не удалось одобрить объявление. Попробуйте ещё раз."
	case errors.Is(err, ErrReject):
		return "Не удалось отклонить объявление. Попробуйте ещё раз."
	case errors.Is(err, ErrRequestChanges):
		return "Не удалось отправить объявление на доработку."
	case errors.Is(err, ErrStats):
		return "Не удалось загрузить статистику. Попробуйте позже."
	default:
		return "Что-то пошло не так. Попробуйте ещё раз."
	}
}

// ListResponse is the payload of the list endpoint.
type ListResponse struct {
	Ads        []models.Advertisement `json:"ads"`
	Pagination models.PaginationInfo  `json:"pagination"`
}

// RejectPayload is the body of a reject action.
type RejectPayload struct {
	Reason  string `json:"reason"`
	Comment string `json:"comment,omitempty"`
}

// RequestChangesPayload is the body of a request-changes action.
type RequestChangesPayload struct {
	Comment string `json:"comment"`
}

// SummaryData is the raw summary block returned by the stats endpoint.
type SummaryData struct {
	TotalReviewed            int     `json:"totalReviewed"`
	TotalReviewedToday       int     `json:"totalReviewedToday"`
	TotalReviewedThisWeek    int     `json:"totalReviewedThisWeek"`
	TotalReviewedThisMonth   int     `json:"totalReviewedThisMonth"`
	ApprovedPercentage       float64 `json:"approvedPercentage"`
	RejectedPercentage       float64 `json:"rejectedPercentage"`
	RequestChangesPercentage float64 `json:"requestChangesPercentage"`
	AverageReviewTime        float64 `json:"averageReviewTime"`
}

// ActivityData is one raw bucket of the activity chart endpoint.
type ActivityData struct {
	Date           string `json:"date"`
	Approved       int    `json:"approved"`
	Rejected       int    `json:"rejected"`
	RequestChanges int    `json:"requestChanges"`
}

// DecisionsData is the raw decision distribution for a period.
type DecisionsData struct {
	Approved       int `json:"approved"`
	Rejected       int `json:"rejected"`
	RequestChanges int `json:"requestChanges"`
}

// Client provides typed access to the moderation REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
}

// NewClient creates a moderation API client. Outbound requests are traced
// through otelhttp and tagged with a fresh request id.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:  logger,
		metrics: metrics,
	}
}

// ListAds fetches one page of the review queue.
func (c *Client) ListAds(ctx context.Context, q ListQuery) (*ListResponse, error) {
	var out ListResponse
	path := "/api/v1/ads?" + q.Encode().Encode()
	if err := c.getJSON(ctx, "list_ads", path, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListAds, err)
	}
	return &out, nil
}

// GetAdDetails fetches the full detail payload for one advertisement,
// including its moderation history.
func (c *Client) GetAdDetails(ctx context.Context, id int) (*models.AdvertisementDetails, error) {
	var out models.AdvertisementDetails
	if err := c.getJSON(ctx, "get_ad", "/api/v1/ads/"+strconv.Itoa(id), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdDetails, err)
	}
	return &out, nil
}

// Approve marks an advertisement as approved.
func (c *Client) Approve(ctx context.Context, id int) error {
	if err := c.postJSON(ctx, "approve", "/api/v1/ads/"+strconv.Itoa(id)+"/approve", nil); err != nil {
		return fmt.Errorf("%w: %w", ErrApprove, err)
	}
	return nil
}

// Reject marks an advertisement as rejected with the given reason.
func (c *Client) Reject(ctx context.Context, id int, payload RejectPayload) error {
	if err := c.postJSON(ctx, "reject", "/api/v1/ads/"+strconv.Itoa(id)+"/reject", payload); err != nil {
		return fmt.Errorf("%w: %w", ErrReject, err)
	}
	return nil
}

// RequestChanges sends an advertisement back to the seller for rework.
func (c *Client) RequestChanges(ctx context.Context, id int, payload RequestChangesPayload) error {
	if err := c.postJSON(ctx, "request_changes", "/api/v1/ads/"+strconv.Itoa(id)+"/request-changes", payload); err != nil {
		return fmt.Errorf("%w: %w", ErrRequestChanges, err)
	}
	return nil
}

// StatsSummary fetches the raw summary counts for a console period.
func (c *Client) StatsSummary(ctx context.Context, period string) (*SummaryData, error) {
	var out SummaryData
	if err := c.getJSON(ctx, "stats_summary", statsPath("summary", period), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStats, err)
	}
	return &out, nil
}

// StatsActivity fetches the raw activity buckets for a console period.
func (c *Client) StatsActivity(ctx context.Context, period string) ([]ActivityData, error) {
	var out []ActivityData
	if err := c.getJSON(ctx, "stats_activity", statsPath("chart/activity", period), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStats, err)
	}
	return out, nil
}

// StatsDecisions fetches the raw decision distribution for a console period.
func (c *Client) StatsDecisions(ctx context.Context, period string) (*DecisionsData, error) {
	var out DecisionsData
	if err := c.getJSON(ctx, "stats_decisions", statsPath("chart/decisions", period), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStats, err)
	}
	return &out, nil
}

// StatsCategories fetches the raw category breakdown for a console period.
func (c *Client) StatsCategories(ctx context.Context, period string) (map[string]int, error) {
	out := map[string]int{}
	if err := c.getJSON(ctx, "stats_categories", statsPath("chart/categories", period), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStats, err)
	}
	return out, nil
}

func statsPath(endpoint, period string) string {
	v := url.Values{}
	v.Set("period", models.ServerPeriod(period))
	return "/api/v1/stats/" + endpoint + "?" + v.Encode()
}

func (c *Client) getJSON(ctx context.Context, operation, path string, out any) error {
	return c.do(ctx, operation, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, operation, path string, body any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	return c.do(ctx, operation, http.MethodPost, path, reader, nil)
}

func (c *Client) do(ctx context.Context, operation, method, path string, body io.Reader, out any) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		c.metrics.RecordUpstreamLatency(operation, time.Since(start))
		c.metrics.IncrementUpstreamCalls(operation, outcome)
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		outcome = "failure"
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "failure"
		return fmt.Errorf("http request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && c.logger != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "failure"
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(payload))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		outcome = "failure"
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// RequestIDHeader tags outbound calls so upstream logs can be correlated
// with console logs.
const RequestIDHeader = "X-Request-ID"
