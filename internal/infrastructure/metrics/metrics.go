package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 管線與 HTTP 指標；nil Collector 的方法皆為 no-op
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	plansTotal         *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	aiRequestsTotal    *prometheus.CounterVec
	aiRequestDuration  *prometheus.HistogramVec
	retrievalFallbacks prometheus.Counter
	retrievalHits      prometheus.Histogram
	cacheOperations    *prometheus.CounterVec
	degradedTotal      *prometheus.CounterVec
	queueDepth         prometheus.Gauge
}

// New 建立使用獨立 registry 的指標收集器
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		plansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_plans_total",
				Help: "Meal plan requests by outcome",
			},
			[]string{"status"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meal_plan_stage_duration_seconds",
				Help:    "Duration of each planning stage",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		aiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_requests_total",
				Help: "Model API calls by operation and result",
			},
			[]string{"operation", "status"},
		),
		aiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_request_duration_seconds",
				Help:    "Model API call duration",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		retrievalFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "recipe_retrieval_fallback_assignments_total",
			Help: "Hits assigned to the least-filled product key because no key matched",
		}),
		retrievalHits: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recipe_retrieval_scanned_hits",
			Help:    "Ranked hits scanned per batch search before the walk stopped",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_operations_total",
				Help: "Cache lookups by namespace and result",
			},
			[]string{"namespace", "result"},
		),
		degradedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_plan_degraded_stages_total",
				Help: "Stages that fell back instead of failing",
			},
			[]string{"stage"},
		),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meal_plan_queue_depth",
			Help: "Planning jobs waiting for a worker",
		}),
	}
}

// Middleware gin 中間件，記錄請求數與延遲
func (m *Collector) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler 返回 /metrics 處理器
func (m *Collector) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PlanFinished 記錄一次規劃結果
func (m *Collector) PlanFinished(status string) {
	if m == nil {
		return
	}
	m.plansTotal.WithLabelValues(status).Inc()
}

// StageDuration 記錄階段耗時
func (m *Collector) StageDuration(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// AIRequest 記錄模型呼叫
func (m *Collector) AIRequest(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.aiRequestsTotal.WithLabelValues(operation, status).Inc()
	m.aiRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RetrievalWalk 記錄一次檢索掃描
func (m *Collector) RetrievalWalk(scanned, fallbacks int) {
	if m == nil {
		return
	}
	m.retrievalHits.Observe(float64(scanned))
	m.retrievalFallbacks.Add(float64(fallbacks))
}

// CacheLookup 記錄快取查詢
func (m *Collector) CacheLookup(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheOperations.WithLabelValues(namespace, result).Inc()
}

// Degraded 記錄降級的階段
func (m *Collector) Degraded(stage string) {
	if m == nil {
		return
	}
	m.degradedTotal.WithLabelValues(stage).Inc()
}

// SetQueueDepth 更新隊列深度
func (m *Collector) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}
