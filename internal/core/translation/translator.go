package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"promo-meal-planner/internal/core/ai/service"
	"promo-meal-planner/internal/core/catalog"
	"promo-meal-planner/internal/infrastructure/metrics"
	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Completer 文字補全能力（由 ai/service 提供）
type Completer interface {
	ProcessRequest(ctx context.Context, req service.Request) (*service.Response, error)
}

const systemPrompt = "You translate grocery product names and cooking requests. " +
	"Translate the user's text into %s. Reply with the translation only, without quotes or explanations."

// Translator 將商品名稱與使用者文字轉為檢索語言，結果快取並記錄在商品上
type Translator struct {
	ai      Completer
	target  string
	metrics *metrics.Collector
}

// NewTranslator 創建翻譯器
func NewTranslator(ai Completer, targetLanguage string, collector *metrics.Collector) (*Translator, error) {
	if ai == nil {
		return nil, errors.New("completer is required")
	}
	if strings.TrimSpace(targetLanguage) == "" {
		targetLanguage = "English"
	}
	return &Translator{ai: ai, target: targetLanguage, metrics: collector}, nil
}

// Translate 翻譯文字；失敗時返回原文與包裝 common.ErrTranslationFailure 的錯誤
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	original := strings.TrimSpace(text)
	if original == "" {
		return "", nil
	}

	resp, err := t.ai.ProcessRequest(ctx, service.Request{
		Operation:      "translate",
		System:         fmt.Sprintf(systemPrompt, t.target),
		Prompt:         original,
		CacheNamespace: "translate:" + strings.ToLower(t.target),
		RequestID:      common.RequestIDFromContext(ctx),
	})
	if err != nil {
		return original, common.ErrTranslationFailure.WithErr(err)
	}

	translated := clean(resp.Content)
	if translated == "" {
		return original, common.ErrTranslationFailure
	}
	return translated, nil
}

// TranslateOrOriginal 翻譯失敗時記錄警告並返回原文
func (t *Translator) TranslateOrOriginal(ctx context.Context, text string) string {
	translated, err := t.Translate(ctx, text)
	if err != nil {
		t.metrics.Degraded("translation")
		common.LogWarn("翻譯失敗，使用原文",
			zap.String("text", text),
			zap.Error(err),
		)
	}
	return translated
}

// ProductKey 商品的標準名稱；首次成功翻譯後記錄在商品上，之後不再呼叫模型
func (t *Translator) ProductKey(ctx context.Context, p *catalog.Product) string {
	if p == nil {
		return ""
	}
	if name, ok := p.TranslatedName(); ok {
		return name
	}

	translated, err := t.Translate(ctx, p.Name)
	if err != nil {
		// 失敗不記錄，下次請求重試
		t.metrics.Degraded("translation")
		common.LogWarn("商品名稱翻譯失敗，使用原名",
			zap.String("product", p.Name),
			zap.Error(err),
		)
		return strings.TrimSpace(p.Name)
	}
	return p.SetTranslatedName(translated)
}

// ProductKeys 依商品順序返回標準名稱
func (t *Translator) ProductKeys(ctx context.Context, products []*catalog.Product) []string {
	keys := make([]string, 0, len(products))
	for _, p := range products {
		if p == nil {
			continue
		}
		keys = append(keys, t.ProductKey(ctx, p))
	}
	return keys
}

// clean 取第一行並去掉引號
func clean(content string) string {
	text := strings.TrimSpace(content)
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		text = text[:nl]
	}
	text = strings.Trim(text, " \t\"'`“”„")
	return strings.TrimSpace(text)
}
