package health

import (
	"net/http"
	"runtime"
	"time"

	"promo-meal-planner/internal/core/ai/queue"

	"github.com/gin-gonic/gin"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Runtime   map[string]interface{} `json:"runtime"`
	Data      DataStatus             `json:"data"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}

// DataStatus 已載入的資料量
type DataStatus struct {
	Products int `json:"products"`
	Recipes  int `json:"recipes"`
}

// QueueStatus 隊列狀態來源
type QueueStatus interface {
	GetQueueStatus() *queue.Status
}

// CacheStats 快取統計來源
type CacheStats interface {
	GetStats() map[string]interface{}
}

// Counter 資料集大小
type Counter interface {
	Len() int
}

// Deps 健康檢查需要的元件；皆可為 nil
type Deps struct {
	Version  string
	Queue    QueueStatus
	Cache    CacheStats
	Products Counter
	Recipes  Counter
}

// Handler 健康檢查處理程序
type Handler struct {
	deps    Deps
	started time.Time
}

// NewHandler 創建健康檢查處理程序
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps, started: time.Now()}
}

func count(c Counter) int {
	if c == nil {
		return 0
	}
	return c.Len()
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.deps.Version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Data: DataStatus{
			Products: count(h.deps.Products),
			Recipes:  count(h.deps.Recipes),
		},
	}
	if h.deps.Queue != nil {
		response.Queue = h.deps.Queue.GetQueueStatus()
	}
	if h.deps.Cache != nil {
		response.Cache = h.deps.Cache.GetStats()
	}

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 商品目錄與食譜索引皆已載入時就緒
func (h *Handler) ReadinessCheck(c *gin.Context) {
	products, recipes := count(h.deps.Products), count(h.deps.Recipes)
	if products == 0 || recipes == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not_ready",
			"products": products,
			"recipes":  recipes,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "alive",
		"goroutines": runtime.NumGoroutine(),
	})
}
