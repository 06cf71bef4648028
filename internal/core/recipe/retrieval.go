package recipe

import (
	"context"
	"errors"
	"strings"

	"promo-meal-planner/internal/core/ai/provider"
	"promo-meal-planner/internal/infrastructure/config"
	"promo-meal-planner/internal/infrastructure/metrics"
	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Engine 批次食譜檢索：一次嵌入、一次搜尋，按商品鍵公平分配
type Engine struct {
	embedder  provider.Embedder
	index     Searcher
	topK      int
	searchCap int
	metrics   *metrics.Collector
}

// NewEngine 創建檢索引擎
func NewEngine(embedder provider.Embedder, index Searcher, cfg config.RetrievalConfig, collector *metrics.Collector) (*Engine, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if index == nil {
		return nil, errors.New("recipe index is required")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 1
	}
	return &Engine{
		embedder:  embedder,
		index:     index,
		topK:      topK,
		searchCap: cfg.SearchCap,
		metrics:   collector,
	}, nil
}

// DistinctKeys 去除空白與重複，保留首次出現順序
func DistinctKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Breadth 搜尋廣度 min(topK*keys*2, cap)；cap <= 0 表示不設上限
func Breadth(topK, keys, searchCap int) int {
	n := topK * keys * 2
	if searchCap > 0 && n > searchCap {
		return searchCap
	}
	return n
}

// BatchSearch 為每個商品鍵返回最多 topK 筆食譜。
// 返回的 Buckets 一定可用；出錯時每個鍵都是空桶，錯誤包裝 common.ErrRetrievalFailure 供記錄。
func (e *Engine) BatchSearch(ctx context.Context, question string, keys []string, topK int) (*Buckets, error) {
	keys = DistinctKeys(keys)
	buckets := NewBuckets(keys)
	if len(keys) == 0 {
		return buckets, nil
	}
	if topK <= 0 {
		topK = e.topK
	}

	query := strings.TrimSpace(strings.TrimSpace(question) + " " + strings.Join(keys, " "))

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return e.degrade(keys, "embed", err)
	}

	hits, err := e.index.Search(ctx, vector, Breadth(topK, len(keys), e.searchCap))
	if err != nil {
		return e.degrade(keys, "search", err)
	}

	scanned, fallbacks := allocate(buckets, hits, topK)
	e.metrics.RetrievalWalk(scanned, fallbacks)

	common.LogDebug("食譜檢索完成",
		zap.Int("keys", len(keys)),
		zap.Int("hits", len(hits)),
		zap.Int("scanned", scanned),
		zap.Int("fallbacks", fallbacks),
		zap.Int("assigned", buckets.Total()),
	)
	return buckets, nil
}

func (e *Engine) degrade(keys []string, stage string, err error) (*Buckets, error) {
	e.metrics.Degraded("retrieval")
	common.LogWarn("食譜檢索失敗，使用空結果",
		zap.String("stage", stage),
		zap.Int("keys", len(keys)),
		zap.Error(err),
	)
	return NewBuckets(keys), common.ErrRetrievalFailure.WithErr(err)
}

// allocate 依相似度遍歷命中結果並分配到各桶，返回掃描數與後備分配數
func allocate(b *Buckets, hits []Hit, topK int) (scanned, fallbacks int) {
	lowered := make([]string, len(b.keys))
	for i, k := range b.keys {
		lowered[i] = strings.ToLower(k)
	}

	seen := make(map[string]struct{}, len(hits))
	full := 0

	for _, hit := range hits {
		if full == len(b.keys) {
			break
		}
		scanned++
		if hit.Recipe == nil {
			continue
		}
		if _, dup := seen[hit.Recipe.ID]; dup {
			continue
		}

		target := matchKey(b, lowered, hit.Recipe, topK)
		// 命中的鍵都已滿時同樣走最少填充的桶
		if target < 0 {
			target = leastFilled(b)
			fallbacks++
		}

		key := b.keys[target]
		b.results[key] = append(b.results[key], hit.Result())
		seen[hit.Recipe.ID] = struct{}{}
		if len(b.results[key]) == topK {
			full++
		}
	}
	return scanned, fallbacks
}

// matchKey 第一個未滿且出現在食材或標題中的鍵
func matchKey(b *Buckets, lowered []string, r *Recipe, topK int) int {
	title := strings.ToLower(r.Title)
	ingredients := strings.ToLower(strings.Join(r.Ingredients, "\n"))
	for i, key := range lowered {
		if len(b.results[b.keys[i]]) >= topK {
			continue
		}
		if strings.Contains(ingredients, key) || strings.Contains(title, key) {
			return i
		}
	}
	return -1
}

// leastFilled 結果最少的鍵，同數時取較早出現者
func leastFilled(b *Buckets) int {
	best := 0
	for i := 1; i < len(b.keys); i++ {
		if len(b.results[b.keys[i]]) < len(b.results[b.keys[best]]) {
			best = i
		}
	}
	return best
}
