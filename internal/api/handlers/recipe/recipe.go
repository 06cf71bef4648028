package recipe

import (
	"context"
	"net/http"
	"strings"

	"promo-meal-planner/internal/core/recipe"
	"promo-meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxTopK = 10

// SearchRequest 食譜檢索請求
type SearchRequest struct {
	Query    string   `json:"query"`
	Products []string `json:"products" binding:"required"`
	TopK     int      `json:"top_k"`
	// Translate 為 true 時先將商品名稱翻譯為檢索語言
	Translate bool `json:"translate"`
}

// SearchResponse 檢索結果
type SearchResponse struct {
	Status   string          `json:"status"`
	Query    string          `json:"query"`
	Degraded bool            `json:"degraded"`
	Results  *recipe.Buckets `json:"results"`
}

// Retriever 批次檢索
type Retriever interface {
	BatchSearch(ctx context.Context, question string, keys []string, topK int) (*recipe.Buckets, error)
}

// Translator 文字翻譯
type Translator interface {
	TranslateOrOriginal(ctx context.Context, text string) string
}

// Handler 食譜檢索處理程序
type Handler struct {
	retriever  Retriever
	translator Translator
}

// NewHandler 創建處理程序；translator 可為 nil
func NewHandler(retriever Retriever, translator Translator) *Handler {
	return &Handler{retriever: retriever, translator: translator}
}

// HandleSearch 返回每個商品的候選食譜
func (h *Handler) HandleSearch(c *gin.Context) {
	requestID := common.RequestID(c)

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request format"})
		return
	}
	if req.TopK < 0 || req.TopK > maxTopK {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "top_k must be between 0 and 10"})
		return
	}

	ctx := c.Request.Context()
	keys := req.Products
	query := strings.TrimSpace(req.Query)
	if req.Translate && h.translator != nil {
		keys = make([]string, 0, len(req.Products))
		for _, p := range req.Products {
			keys = append(keys, h.translator.TranslateOrOriginal(ctx, p))
		}
		query = h.translator.TranslateOrOriginal(ctx, query)
	}

	buckets, err := h.retriever.BatchSearch(ctx, query, keys, req.TopK)

	common.LogInfo("食譜檢索請求完成",
		zap.String("request_id", requestID),
		zap.Int("keys", buckets.Len()),
		zap.Int("results", buckets.Total()),
		zap.Bool("degraded", err != nil),
	)

	c.JSON(http.StatusOK, SearchResponse{
		Status:   "success",
		Query:    query,
		Degraded: err != nil,
		Results:  buckets,
	})
}
