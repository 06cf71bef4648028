package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"promo-meal-planner/internal/core/ai/cache"
	"promo-meal-planner/internal/core/ai/provider"
	"promo-meal-planner/internal/infrastructure/metrics"
	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Request 單次模型呼叫
type Request struct {
	// Operation 用於日誌與指標（translate / rewrite / generate）
	Operation   string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
	// CacheNamespace 非空時以 prompt 為鍵查詢與寫入快取
	CacheNamespace string
	RequestID      string
}

// Response AI 回應
type Response struct {
	Content  string
	CacheHit bool
}

// Service AI 服務：prompt 正規化、快取、呼叫模型
type Service struct {
	chat    provider.ChatModel
	cache   cache.TextCache
	metrics *metrics.Collector
}

// NewService 創建 AI 服務；textCache 可為 nil
func NewService(chat provider.ChatModel, textCache cache.TextCache, collector *metrics.Collector) (*Service, error) {
	if chat == nil {
		return nil, errors.New("chat model is required")
	}
	return &Service{
		chat:    chat,
		cache:   textCache,
		metrics: collector,
	}, nil
}

// Model 當前模型名稱
func (s *Service) Model() string {
	return s.chat.GetModel()
}

// ProcessRequest 統一對外方法
func (s *Service) ProcessRequest(ctx context.Context, req Request) (*Response, error) {
	// 統一 prompt 格式，確保快取 key 一致
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("empty prompt")
	}

	cacheKey := req.System + "\n" + prompt
	if req.CacheNamespace != "" && s.cache != nil {
		val, err := s.cache.Get(ctx, req.CacheNamespace, cacheKey)
		hit := err == nil && val != ""
		s.metrics.CacheLookup(req.CacheNamespace, hit)
		if hit {
			return &Response{Content: val, CacheHit: true}, nil
		}
	}

	messages := make([]provider.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, provider.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, provider.Message{Role: "user", Content: prompt})

	// 每次呼叫套用模型逾時
	callCtx := ctx
	if timeout := s.chat.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.chat.Generate(callCtx, &provider.Request{
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		JSONMode:    req.JSONMode,
	})
	duration := time.Since(start)
	s.metrics.AIRequest(req.Operation, err, duration)
	common.LogAICall(req.Operation, duration, err, req.RequestID)
	if err != nil {
		return nil, common.ErrAIServiceError.WithErr(fmt.Errorf("%s: %w", req.Operation, err))
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return nil, fmt.Errorf("%s: empty AI response", req.Operation)
	}

	if req.CacheNamespace != "" && s.cache != nil {
		if err := s.cache.Set(ctx, req.CacheNamespace, cacheKey, content); err != nil {
			common.LogWarn("快取寫入失敗",
				zap.String("namespace", req.CacheNamespace),
				zap.Error(err),
			)
		}
	}

	return &Response{Content: content}, nil
}
