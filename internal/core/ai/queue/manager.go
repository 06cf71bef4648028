package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"promo-meal-planner/internal/infrastructure/config"
	"promo-meal-planner/internal/infrastructure/metrics"
	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Task 在 worker 上執行的工作
type Task func(ctx context.Context) Result

// Request 隊列請求
type Request struct {
	Context context.Context
	Run     Task
	Result  chan Result
}

// Result 處理結果
type Result struct {
	Value interface{}
	Error error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ActiveJobs     int `json:"active_jobs"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 固定 worker 數的隊列管理器
type Manager struct {
	config    config.QueueConfig
	metrics   *metrics.Collector
	queue     chan *Request
	processed int64
	active    int64
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	startOnce sync.Once
}

// NewManager 創建新的隊列管理器
func NewManager(cfg config.QueueConfig, collector *metrics.Collector) *Manager {
	return &Manager{
		config:  cfg,
		metrics: collector,
		queue:   make(chan *Request, cfg.MaxSize),
	}
}

// Start 啟動 worker
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		for i := 0; i < m.config.Workers; i++ {
			m.wg.Add(1)
			go m.worker(i)
		}
		common.LogInfo("規劃隊列已啟動",
			zap.Int("workers", m.config.Workers),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
	})
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for req := range m.queue {
		m.metrics.SetQueueDepth(len(m.queue))

		var res Result
		if err := req.Context.Err(); err != nil {
			// 等待期間請求已取消
			res = Result{Error: err}
		} else {
			atomic.AddInt64(&m.active, 1)
			res = m.run(req)
			atomic.AddInt64(&m.active, -1)
		}

		atomic.AddInt64(&m.processed, 1)
		req.Result <- res
		common.LogDebug("Job processed", zap.Int("worker", id))
	}
}

// run 執行工作並攔截 panic
func (m *Manager) run(req *Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("Job panic recovered", zap.Any("error", r))
			res = Result{Error: common.ErrInternalError}
		}
	}()
	return req.Run(req.Context)
}

// Enqueue 將工作加入隊列，隊列已滿時立即返回 common.ErrQueueFull
func (m *Manager) Enqueue(ctx context.Context, run Task) (<-chan Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, common.ErrQueueClosed
	}

	queueReq := &Request{
		Context: ctx,
		Run:     run,
		Result:  make(chan Result, 1),
	}

	select {
	case m.queue <- queueReq:
		m.metrics.SetQueueDepth(len(m.queue))
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return queueReq.Result, nil
	default:
		common.LogWarn("規劃隊列已滿", zap.Int("max_queue_size", m.config.MaxSize))
		return nil, common.ErrQueueFull
	}
}

// Do 加入隊列並等待結果
func (m *Manager) Do(ctx context.Context, run Task) Result {
	ch, err := m.Enqueue(ctx, run)
	if err != nil {
		return Result{Error: err}
	}
	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return Result{Error: ctx.Err()}
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ActiveJobs:     int(atomic.LoadInt64(&m.active)),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close 停止接收新工作並等待已排隊的工作完成
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
	common.LogInfo("規劃隊列已關閉", zap.Int64("processed", atomic.LoadInt64(&m.processed)))
}
