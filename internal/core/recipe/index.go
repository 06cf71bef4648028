package recipe

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Searcher 向量相似度搜尋
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
}

// Index 記憶體內的食譜向量索引（唯讀）
type Index struct {
	recipes []*Recipe
	norms   []float64
	dim     int
}

// NewIndex 建立索引；所有向量需同一維度且 id 唯一
func NewIndex(recipes []*Recipe) (*Index, error) {
	idx := &Index{}
	seen := make(map[string]struct{}, len(recipes))

	for i, r := range recipes {
		if r == nil {
			continue
		}
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("recipe %d: missing id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("recipe %q: duplicate id", id)
		}
		if len(r.Embedding) == 0 {
			return nil, fmt.Errorf("recipe %q: missing embedding", id)
		}
		if idx.dim == 0 {
			idx.dim = len(r.Embedding)
		} else if len(r.Embedding) != idx.dim {
			return nil, fmt.Errorf("recipe %q: embedding dimension %d, want %d", id, len(r.Embedding), idx.dim)
		}
		seen[id] = struct{}{}
		r.ID = id
		idx.recipes = append(idx.recipes, r)
		idx.norms = append(idx.norms, norm(r.Embedding))
	}

	return idx, nil
}

// LoadIndex 從 JSON 陣列檔載入索引
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe index: %w", err)
	}

	var recipes []*Recipe
	if err := common.ParseJSONBytes(data, &recipes); err != nil {
		return nil, fmt.Errorf("parse recipe index %s: %w", path, err)
	}
	if len(recipes) == 0 {
		return nil, common.ErrRecipeIndexEmpty
	}

	idx, err := NewIndex(recipes)
	if err != nil {
		return nil, err
	}

	common.LogInfo("食譜索引已載入",
		zap.String("path", path),
		zap.Int("recipes", idx.Len()),
		zap.Int("dimension", idx.dim),
	)
	return idx, nil
}

// Len 食譜數
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.recipes)
}

// Dimension 向量維度
func (x *Index) Dimension() int {
	if x == nil {
		return 0
	}
	return x.dim
}

// Search 以餘弦相似度返回前 k 筆，分數由高到低
func (x *Index) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if x == nil || len(x.recipes) == 0 {
		return nil, common.ErrRecipeIndexEmpty
	}
	if len(vector) != x.dim {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(vector), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	qn := norm(vector)
	hits := make([]Hit, len(x.recipes))
	for i, r := range x.recipes {
		hits[i] = Hit{Recipe: r, Score: cosine(vector, r.Embedding, qn, x.norms[i])}
	}

	// 同分時保持索引順序
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
