package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"promo-meal-planner/internal/infrastructure/config"
	"promo-meal-planner/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Service Redis 文字緩存，跨程序共享翻譯結果
type Service struct {
	client *redis.Client
	config config.RedisConfig
}

// NewService 創建 Redis 緩存服務，停用時返回 nil
func NewService(ctx context.Context, cfg config.RedisConfig) (*Service, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	// 測試連接
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 快取已連線", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))

	return NewServiceWithClient(client, cfg), nil
}

// NewServiceWithClient 使用既有連線創建緩存服務
func NewServiceWithClient(client *redis.Client, cfg config.RedisConfig) *Service {
	return &Service{
		client: client,
		config: cfg,
	}
}

// Get 獲取緩存，未命中返回 common.ErrCacheMiss
func (s *Service) Get(ctx context.Context, namespace, text string) (string, error) {
	if s == nil || s.client == nil {
		return "", common.ErrCacheDisabled
	}

	value, err := s.client.Get(ctx, s.generateKey(namespace, text)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	return value, nil
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, namespace, text, value string) error {
	if s == nil || s.client == nil {
		return nil
	}

	if err := s.client.Set(ctx, s.generateKey(namespace, text), value, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 檢查連線狀態
func (s *Service) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return common.ErrCacheDisabled
	}
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// generateKey 生成緩存鍵
func (s *Service) generateKey(namespace, text string) string {
	hash := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s:%s", s.config.KeyPrefix, namespace, hex.EncodeToString(hash[:16]))
}
