package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/openadmod/console/internal/cache"
	"github.com/openadmod/console/internal/config"
	"github.com/openadmod/console/internal/models"
	"github.com/openadmod/console/internal/moderation"
	"github.com/openadmod/console/internal/observability"
	"github.com/openadmod/console/internal/review"
	"github.com/openadmod/console/internal/stats"
)

// Tool inputs and outputs. Field names mirror the console HTTP surface so
// assistants and humans see the same vocabulary.
type ListAdsInput struct {
	Page       int      `json:"page,omitempty"`
	Statuses   []string `json:"statuses,omitempty"`
	CategoryID int      `json:"category_id,omitempty"`
	MinPrice   *float64 `json:"min_price,omitempty"`
	MaxPrice   *float64 `json:"max_price,omitempty"`
	SortBy     string   `json:"sort_by,omitempty"`
	SortOrder  string   `json:"sort_order,omitempty"`
	Search     string   `json:"search,omitempty"`
}

type ListAdsOutput struct {
	Ads        []models.Advertisement `json:"ads"`
	Pagination models.PaginationInfo  `json:"pagination"`
}

type AdInput struct {
	ID int `json:"id"`
}

type AdOutput struct {
	Ad      *models.AdvertisementDetails   `json:"ad"`
	History []models.ModerationHistoryItem `json:"history"`
}

type ActionOutput struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type RejectInput struct {
	ID      int      `json:"id"`
	Reasons []string `json:"reasons,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

type RequestChangesInput struct {
	ID      int    `json:"id"`
	Comment string `json:"comment,omitempty"`
}

type StatsInput struct {
	Period string `json:"period,omitempty"`
}

// ConsoleServer holds our dependencies
type ConsoleServer struct {
	client *moderation.Client
	stats  *stats.Service
	logger *zap.Logger
}

// ListAds serves one page of the review queue.
func (s *ConsoleServer) ListAds(ctx context.Context, req *mcp.CallToolRequest, input ListAdsInput) (*mcp.CallToolResult, ListAdsOutput, error) {
	q := moderation.ListQuery{
		Page:       input.Page,
		Limit:      listQueryLimit,
		Status:     input.Statuses,
		CategoryID: input.CategoryID,
		MinPrice:   input.MinPrice,
		MaxPrice:   input.MaxPrice,
		SortBy:     input.SortBy,
		SortOrder:  input.SortOrder,
		Search:     input.Search,
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if len(q.Status) == 0 {
		q.Status = []string{models.StatusPending}
	}
	if q.SortBy == "" {
		q.SortBy = moderation.SortByCreatedAt
	}
	if q.SortOrder == "" {
		q.SortOrder = moderation.SortDesc
	}

	resp, err := s.client.ListAds(ctx, q)
	if err != nil {
		return nil, ListAdsOutput{}, fmt.Errorf("%s", moderation.UserMessage(err))
	}
	return nil, ListAdsOutput{Ads: resp.Ads, Pagination: resp.Pagination}, nil
}

const listQueryLimit = 10

// GetAd serves the detail payload with its history sorted newest first.
func (s *ConsoleServer) GetAd(ctx context.Context, req *mcp.CallToolRequest, input AdInput) (*mcp.CallToolResult, AdOutput, error) {
	if input.ID <= 0 {
		return nil, AdOutput{}, fmt.Errorf("id must be a positive number")
	}
	ad, err := s.client.GetAdDetails(ctx, input.ID)
	if err != nil {
		return nil, AdOutput{}, fmt.Errorf("%s", moderation.UserMessage(err))
	}
	return nil, AdOutput{Ad: ad, History: review.SortHistory(ad.ModerationHistory)}, nil
}

// ApproveAd approves a listing.
func (s *ConsoleServer) ApproveAd(ctx context.Context, req *mcp.CallToolRequest, input AdInput) (*mcp.CallToolResult, ActionOutput, error) {
	if input.ID <= 0 {
		return nil, ActionOutput{}, fmt.Errorf("id must be a positive number")
	}
	if err := s.client.Approve(ctx, input.ID); err != nil {
		return nil, ActionOutput{}, fmt.Errorf("%s", moderation.UserMessage(err))
	}
	s.logger.Info("ad approved via mcp", zap.Int("ad_id", input.ID))
	return nil, ActionOutput{Status: models.StatusApproved, Message: "Объявление одобрено"}, nil
}

// RejectAd rejects a listing. The same local validation as the dialog
// applies: at least one reason code or a non-empty comment.
func (s *ConsoleServer) RejectAd(ctx context.Context, req *mcp.CallToolRequest, input RejectInput) (*mcp.CallToolResult, ActionOutput, error) {
	if input.ID <= 0 {
		return nil, ActionOutput{}, fmt.Errorf("id must be a positive number")
	}
	payload, ok := review.BuildRejectPayload(input.Reasons, input.Comment)
	if !ok {
		return nil, ActionOutput{}, fmt.Errorf("at least one reason code or a comment is required")
	}
	if err := s.client.Reject(ctx, input.ID, payload); err != nil {
		return nil, ActionOutput{}, fmt.Errorf("%s", moderation.UserMessage(err))
	}
	s.logger.Info("ad rejected via mcp", zap.Int("ad_id", input.ID), zap.String("reason", payload.Reason))
	return nil, ActionOutput{Status: models.StatusRejected, Message: "Объявление отклонено"}, nil
}

// RequestChanges returns a listing to its seller for rework.
func (s *ConsoleServer) RequestChanges(ctx context.Context, req *mcp.CallToolRequest, input RequestChangesInput) (*mcp.CallToolResult, ActionOutput, error) {
	if input.ID <= 0 {
		return nil, ActionOutput{}, fmt.Errorf("id must be a positive number")
	}
	comment := input.Comment
	if comment == "" {
		comment = review.DefaultRequestChangesComment
	}
	if err := s.client.RequestChanges(ctx, input.ID, moderation.RequestChangesPayload{Comment: comment}); err != nil {
		return nil, ActionOutput{}, fmt.Errorf("%s", moderation.UserMessage(err))
	}
	s.logger.Info("changes requested via mcp", zap.Int("ad_id", input.ID))
	return nil, ActionOutput{Status: models.StatusPending, Message: "Объявление отправлено на доработку"}, nil
}

// GetStats serves the normalized snapshot for a period.
func (s *ConsoleServer) GetStats(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, *models.StatsSnapshot, error) {
	period := input.Period
	if period == "" {
		period = models.PeriodToday
	}
	if !models.ValidPeriod(period) {
		return nil, nil, fmt.Errorf("unknown period %q, want today, 7d or 30d", period)
	}
	snap, err := s.stats.Snapshot(ctx, period)
	if err != nil {
		return nil, nil, fmt.Errorf("%s", moderation.UserMessage(err))
	}
	return nil, snap, nil
}

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName + "-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	metrics := observability.NewNoOpRegistry()
	client := moderation.NewClient(cfg.ModerationAPIURL, cfg.ClientTimeout, logger, metrics)
	statsSvc := stats.NewService(client, cache.NewMemory(), cfg.ListCacheTTL, logger)

	consoleServer := &ConsoleServer{client: client, stats: statsSvc, logger: logger}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "admod-console",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_ads",
		Description: "List advertisements in the moderation queue with filters, sorting and pagination",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"page": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Page number (defaults to 1)",
				},
				"statuses": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string", "enum": []string{"pending", "approved", "rejected", "draft"}},
					"description": "Moderation statuses to include (defaults to pending)",
				},
				"category_id": map[string]interface{}{
					"type":        "integer",
					"description": "Category filter (omit for all categories)",
				},
				"min_price": map[string]interface{}{
					"type":        "number",
					"description": "Lower price bound",
				},
				"max_price": map[string]interface{}{
					"type":        "number",
					"description": "Upper price bound",
				},
				"sort_by": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"createdAt", "price", "priority"},
					"description": "Sort field (defaults to createdAt)",
				},
				"sort_order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort direction (defaults to desc)",
				},
				"search": map[string]interface{}{
					"type":        "string",
					"description": "Search term matched against title and description",
				},
			},
		},
	}, consoleServer.ListAds)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_ad",
		Description: "Get one advertisement's full details and moderation history",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Advertisement ID",
				},
			},
			"required": []string{"id"},
		},
	}, consoleServer.GetAd)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "approve_ad",
		Description: "Approve an advertisement",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Advertisement ID",
				},
			},
			"required": []string{"id"},
		},
	}, consoleServer.ApproveAd)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reject_ad",
		Description: "Reject an advertisement with reason codes and/or a comment",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Advertisement ID",
				},
				"reasons": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string", "enum": []string{"banned", "wrong_category", "incorrect_description", "photo_problems", "fraud_suspected", "other"}},
					"description": "Reason codes; the first one becomes the canonical reason",
				},
				"comment": map[string]interface{}{
					"type":        "string",
					"description": "Free-form explanation (required when no reason code is given)",
				},
			},
			"required": []string{"id"},
		},
	}, consoleServer.RejectAd)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "request_changes",
		Description: "Return an advertisement to the seller for rework",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Advertisement ID",
				},
				"comment": map[string]interface{}{
					"type":        "string",
					"description": "What the seller should change (a default text is used when omitted)",
				},
			},
			"required": []string{"id"},
		},
	}, consoleServer.RequestChanges)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stats",
		Description: "Get the moderation statistics snapshot for a period",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"period": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"today", "7d", "30d"},
					"description": "Aggregation window (defaults to today)",
				},
			},
		},
	}, consoleServer.GetStats)

	stdioTransport := &mcp.StdioTransport{}

	var logBuffer bytes.Buffer
	loggingTransport := &mcp.LoggingTransport{
		Transport: stdioTransport,
		Writer:    &logBuffer,
	}

	logger.Info("MCP Server running via stdio with logging enabled")

	if err := server.Run(context.Background(), loggingTransport); err != nil {
		logger.Fatal("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
