package planner

import (
	"context"
	"errors"
	"strings"

	"promo-meal-planner/internal/core/ai/service"
	"promo-meal-planner/internal/infrastructure/metrics"
	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Completer 文字補全能力
type Completer interface {
	ProcessRequest(ctx context.Context, req service.Request) (*service.Response, error)
}

const rewritePrompt = "Rewrite the following user request as a short, effective recipe search query (3–6 words):\n" +
	"User request: %s\n" +
	"Search query:"

// Rewriter 將自由文字需求壓縮為檢索查詢
type Rewriter struct {
	ai      Completer
	metrics *metrics.Collector
}

// NewRewriter 創建查詢改寫器
func NewRewriter(ai Completer, collector *metrics.Collector) (*Rewriter, error) {
	if ai == nil {
		return nil, errors.New("completer is required")
	}
	return &Rewriter{ai: ai, metrics: collector}, nil
}

// Rewrite 返回簡短查詢；失敗時返回原始需求
func (r *Rewriter) Rewrite(ctx context.Context, request string) string {
	request = strings.TrimSpace(request)
	if request == "" {
		return ""
	}

	resp, err := r.ai.ProcessRequest(ctx, service.Request{
		Operation:      "rewrite",
		Prompt:         strings.Replace(rewritePrompt, "%s", request, 1),
		CacheNamespace: "rewrite",
		RequestID:      common.RequestIDFromContext(ctx),
	})
	if err != nil {
		r.metrics.Degraded("rewrite")
		common.LogWarn("查詢改寫失敗，使用原始需求", zap.Error(err))
		return request
	}

	query := cleanQuery(resp.Content)
	if query == "" {
		r.metrics.Degraded("rewrite")
		return request
	}
	return query
}

// cleanQuery 取第一行，去掉標籤與引號
func cleanQuery(content string) string {
	text := strings.TrimSpace(content)
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		text = text[:nl]
	}
	if idx := strings.Index(strings.ToLower(text), "search query:"); idx != -1 {
		text = text[idx+len("search query:"):]
	}
	return strings.Trim(strings.TrimSpace(text), "\"'`.“”")
}
