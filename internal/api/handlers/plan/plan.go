package plan

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"promo-meal-planner/internal/core/ai/queue"
	"promo-meal-planner/internal/core/catalog"
	"promo-meal-planner/internal/core/mealplan"
	"promo-meal-planner/internal/core/planner"
	"promo-meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AskRequest 餐單規劃請求
type AskRequest struct {
	Query               string   `json:"query"`
	Days                int      `json:"days"`
	People              int      `json:"people"`
	Restrictions        []string `json:"restrictions"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	MealTypes           []string `json:"meal_types"`
	ExcludedIngredients string   `json:"excluded_ingredients"`
	Products            []string `json:"products"`
}

// QuickRequest 以指定商品快速規劃
type QuickRequest struct {
	ProductNames []string `json:"product_names"`
	Days         int      `json:"days"`
	People       int      `json:"people"`
}

// Planner 規劃管線
type Planner interface {
	Plan(ctx context.Context, req planner.PlanRequest) *mealplan.Response
}

// Runner 在 worker 上執行工作
type Runner interface {
	Do(ctx context.Context, run queue.Task) queue.Result
}

// Handler 餐單相關處理程序
type Handler struct {
	planner Planner
	runner  Runner
	catalog *catalog.Catalog
}

// NewHandler 創建處理程序
func NewHandler(p Planner, runner Runner, cat *catalog.Catalog) *Handler {
	return &Handler{planner: p, runner: runner, catalog: cat}
}

// HandleAsk 依自由文字需求產生餐單
func (h *Handler) HandleAsk(c *gin.Context) {
	requestID := common.RequestID(c)

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		c.JSON(http.StatusBadRequest, mealplan.Failure("Missing 'query' in request"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, mealplan.Failure("Missing 'query' in request"))
		return
	}

	common.LogInfo("開始處理餐單請求",
		zap.String("request_id", requestID),
		zap.Int("days", req.Days),
		zap.Int("people", req.People),
		zap.Int("products", len(req.Products)),
	)

	h.run(c, planner.PlanRequest{
		Query:               req.Query,
		Days:                req.Days,
		People:              req.People,
		DietaryRestrictions: append(req.Restrictions, req.DietaryRestrictions...),
		MealTypes:           req.MealTypes,
		ExcludedIngredients: req.ExcludedIngredients,
		ProductNames:        req.Products,
	})
}

// HandleQuick 由商品名稱清單產生餐單
func (h *Handler) HandleQuick(c *gin.Context) {
	var req QuickRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ProductNames) == 0 {
		c.JSON(http.StatusBadRequest, mealplan.Failure("Missing 'product_names' in request"))
		return
	}

	h.run(c, planner.PlanRequest{
		Days:         req.Days,
		People:       req.People,
		ProductNames: req.ProductNames,
	})
}

// HandleProducts 列出促銷商品；detail=true 時返回完整資料
func (h *Handler) HandleProducts(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, mealplan.Failure(common.ErrCatalogUnloaded.Message))
		return
	}
	if c.Query("detail") == "true" {
		c.JSON(http.StatusOK, gin.H{
			"status":   mealplan.StatusSuccess,
			"count":    h.catalog.Len(),
			"products": h.catalog.All(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   mealplan.StatusSuccess,
		"count":    h.catalog.Len(),
		"products": h.catalog.Names(),
	})
}

// run 透過隊列執行規劃；管線結果一律以 200 返回，狀態寫在 status 欄位
func (h *Handler) run(c *gin.Context, req planner.PlanRequest) {
	ctx := c.Request.Context()
	res := h.runner.Do(ctx, func(ctx context.Context) queue.Result {
		return queue.Result{Value: h.planner.Plan(ctx, req)}
	})

	if res.Error != nil {
		status, message := statusFor(res.Error)
		common.LogError("規劃工作失敗",
			zap.Error(res.Error),
			zap.Int("status", status),
			zap.String("request_id", common.RequestID(c)),
		)
		c.JSON(status, mealplan.Failure(message))
		return
	}

	resp, ok := res.Value.(*mealplan.Response)
	if !ok || resp == nil {
		c.JSON(http.StatusInternalServerError, mealplan.Failure("Failed to generate plan"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func statusFor(err error) (int, string) {
	var ce *common.CustomError
	switch {
	case errors.Is(err, common.ErrQueueFull), errors.Is(err, common.ErrQueueClosed):
		return common.ErrServiceUnavailable.Status, "Service is busy, please retry later"
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrGatewayTimeout.Status, "Request timeout"
	case errors.Is(err, context.Canceled):
		return common.ErrServiceUnavailable.Status, "Request cancelled"
	case errors.As(err, &ce) && ce.Status > 0:
		return ce.Status, ce.Message
	default:
		return http.StatusInternalServerError, "Failed to generate plan"
	}
}
