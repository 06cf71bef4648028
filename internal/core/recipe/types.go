package recipe

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Ingredients 食材清單；索引檔中可為陣列或單一字串
type Ingredients []string

// UnmarshalJSON 接受字串陣列或單一字串
func (in *Ingredients) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*in = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = Ingredients{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*in = list
	return nil
}

// String 以逗號連接
func (in Ingredients) String() string {
	return strings.Join(in, ", ")
}

// Recipe 向量索引中的食譜
type Recipe struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Ingredients  Ingredients `json:"ingredients"`
	Instructions string      `json:"instructions"`
	ImageName    string      `json:"image_name,omitempty"`
	Embedding    []float32   `json:"embedding"`
}

// SearchResult 單次檢索的結果
type SearchResult struct {
	Title           string      `json:"title"`
	SimilarityScore float64     `json:"similarity_score"`
	Ingredients     Ingredients `json:"ingredients"`
	Instructions    string      `json:"instructions"`
	ImageName       string      `json:"image_name,omitempty"`
	RecipeID        string      `json:"recipe_id"`
}

// Hit 相似度搜尋命中
type Hit struct {
	Recipe *Recipe
	Score  float64
}

// Result 轉為對外結果
func (h Hit) Result() SearchResult {
	return SearchResult{
		Title:           h.Recipe.Title,
		SimilarityScore: h.Score,
		Ingredients:     h.Recipe.Ingredients,
		Instructions:    h.Recipe.Instructions,
		ImageName:       h.Recipe.ImageName,
		RecipeID:        h.Recipe.ID,
	}
}

// Buckets 依商品鍵分組的檢索結果，保留鍵的首次出現順序
type Buckets struct {
	keys    []string
	results map[string][]SearchResult
}

// NewBuckets 為每個鍵建立空桶
func NewBuckets(keys []string) *Buckets {
	b := &Buckets{
		keys:    keys,
		results: make(map[string][]SearchResult, len(keys)),
	}
	for _, k := range keys {
		b.results[k] = []SearchResult{}
	}
	return b
}

// Append 加入結果；未知的鍵會附加在最後
func (b *Buckets) Append(key string, r SearchResult) {
	if _, ok := b.results[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.results[key] = append(b.results[key], r)
}

// Keys 商品鍵（首次出現順序）
func (b *Buckets) Keys() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.keys...)
}

// Get 取得某鍵的結果
func (b *Buckets) Get(key string) []SearchResult {
	if b == nil {
		return nil
	}
	return b.results[key]
}

// Len 鍵數量
func (b *Buckets) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

// Total 所有桶的結果數
func (b *Buckets) Total() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, k := range b.keys {
		n += len(b.results[k])
	}
	return n
}

// MarshalJSON 依鍵順序輸出物件
func (b *Buckets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if b != nil {
		for i, k := range b.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(b.results[k])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
