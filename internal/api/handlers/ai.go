package handlers

import (
	"context"
	"net/http"
	"strings"

	"promo-meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Translator 翻譯能力
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Rewriter 查詢改寫能力
type Rewriter interface {
	Rewrite(ctx context.Context, request string) string
}

// AIHandler 管線前段（翻譯、查詢改寫）的診斷端點
type AIHandler struct {
	translator Translator
	rewriter   Rewriter
}

// NewAIHandler 創建 AI 處理器
func NewAIHandler(translator Translator, rewriter Rewriter) *AIHandler {
	return &AIHandler{
		translator: translator,
		rewriter:   rewriter,
	}
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

func bindText(c *gin.Context) (string, bool) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": common.ErrInvalidRequest.Message,
		})
		return "", false
	}
	return req.Text, true
}

// Translate 翻譯文字；失敗時返回原文並標記 fallback
func (h *AIHandler) Translate(c *gin.Context) {
	text, ok := bindText(c)
	if !ok {
		return
	}

	translated, err := h.translator.Translate(c.Request.Context(), text)
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"text":        text,
		"translation": translated,
		"fallback":    err != nil,
	})
}

// Rewrite 將需求改寫為檢索查詢
func (h *AIHandler) Rewrite(c *gin.Context) {
	text, ok := bindText(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"text":   text,
		"query":  h.rewriter.Rewrite(c.Request.Context(), text),
	})
}
