package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"promo-meal-planner/internal/infrastructure/config"
	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// CacheManager 記憶體文字緩存（翻譯、查詢改寫結果），容量滿時淘汰最久未讀的項目
type CacheManager struct {
	config config.CacheConfig
	mu     sync.Mutex
	store  map[string]cacheEntry
	stats  map[string]*namespaceStats
	done   chan struct{}
	once   sync.Once
}

type cacheEntry struct {
	namespace  string
	value      string
	expiresAt  time.Time
	lastAccess time.Time
}

// namespaceStats 每個命名空間（translate:english、rewrite）各自統計
type namespaceStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// NewManager 停用時返回 nil；nil 管理員的方法皆可呼叫
func NewManager(cfg config.CacheConfig) *CacheManager {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil
	}

	m := &CacheManager{
		config: cfg,
		store:  make(map[string]cacheEntry),
		stats:  make(map[string]*namespaceStats),
		done:   make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go m.startCleanup()
	}

	common.LogInfo("快取管理員已初始化",
		zap.Int("max_size", cfg.MaxSize),
		zap.Duration("ttl", cfg.TTL),
	)
	return m
}

// Get 未命中或過期返回 common.ErrCacheMiss
func (m *CacheManager) Get(ctx context.Context, namespace, text string) (string, error) {
	if m == nil {
		return "", common.ErrCacheDisabled
	}

	key := cacheKey(namespace, text)
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.statsFor(namespace)
	entry, ok := m.store[key]
	if ok && now.After(entry.expiresAt) {
		delete(m.store, key)
		st.evictions++
		ok = false
	}
	if !ok {
		st.misses++
		common.LogCacheLookup(namespace, false)
		return "", common.ErrCacheMiss
	}

	entry.lastAccess = now
	m.store[key] = entry
	st.hits++
	common.LogCacheLookup(namespace, true)
	return entry.value, nil
}

// Set 寫入；MaxSize <= 0 表示不限容量
func (m *CacheManager) Set(ctx context.Context, namespace, text, value string) error {
	if m == nil {
		return nil
	}

	key := cacheKey(namespace, text)
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && m.config.MaxSize > 0 && len(m.store) >= m.config.MaxSize {
		if m.cleanup(now) == 0 {
			m.evictLRU()
		}
	}

	m.store[key] = cacheEntry{
		namespace:  namespace,
		value:      value,
		expiresAt:  now.Add(m.config.TTL),
		lastAccess: now,
	}
	return nil
}

// cacheKey 命名空間加上文字雜湊，避免長 prompt 當鍵
func cacheKey(namespace, text string) string {
	hash := sha256.Sum256([]byte(text))
	return namespace + ":" + hex.EncodeToString(hash[:])
}

// statsFor 呼叫前需持有鎖
func (m *CacheManager) statsFor(namespace string) *namespaceStats {
	st, ok := m.stats[namespace]
	if !ok {
		st = &namespaceStats{}
		m.stats[namespace] = st
	}
	return st
}

func (m *CacheManager) startCleanup() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.mu.Lock()
			m.cleanup(now)
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// cleanup 移除過期項目，呼叫前需持有鎖
func (m *CacheManager) cleanup(now time.Time) int {
	count := 0
	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
			m.statsFor(entry.namespace).evictions++
			count++
		}
	}
	if count > 0 {
		common.LogDebug("已清理過期快取", zap.Int("count", count), zap.Int("remaining", len(m.store)))
	}
	return count
}

// evictLRU 呼叫前需持有鎖
func (m *CacheManager) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range m.store {
		if oldestKey == "" || entry.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = entry.lastAccess
		}
	}
	if oldestKey == "" {
		return
	}
	m.statsFor(m.store[oldestKey].namespace).evictions++
	delete(m.store, oldestKey)
}

// GetStats 總計與各命名空間的命中、未命中、淘汰與項目數
func (m *CacheManager) GetStats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{"enabled": false}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make(map[string]int, len(m.stats))
	for _, e := range m.store {
		entries[e.namespace]++
	}

	var hits, misses, evictions int64
	namespaces := make(map[string]interface{}, len(m.stats))
	for ns, st := range m.stats {
		hits += st.hits
		misses += st.misses
		evictions += st.evictions
		namespaces[ns] = map[string]interface{}{
			"entries":   entries[ns],
			"hits":      st.hits,
			"misses":    st.misses,
			"evictions": st.evictions,
			"hit_ratio": hitRatio(st.hits, st.misses),
		}
	}

	return map[string]interface{}{
		"enabled":    true,
		"size":       len(m.store),
		"max_size":   m.config.MaxSize,
		"hits":       hits,
		"misses":     misses,
		"evictions":  evictions,
		"hit_ratio":  hitRatio(hits, misses),
		"namespaces": namespaces,
	}
}

func hitRatio(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Close 停止清理協程並清空
func (m *CacheManager) Close() error {
	if m == nil {
		return nil
	}

	m.once.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = make(map[string]cacheEntry)
	common.LogInfo("快取管理員已關閉", zap.Int("namespaces", len(m.stats)))
	return nil
}
