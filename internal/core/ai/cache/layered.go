package cache

import (
	"context"
	"errors"
	"reflect"

	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// TextCache 以命名空間區分的文字緩存
type TextCache interface {
	Get(ctx context.Context, namespace, text string) (string, error)
	Set(ctx context.Context, namespace, text, value string) error
}

// Layered 依序查詢多層緩存，較慢層命中時回填較快層
type Layered struct {
	layers []TextCache
}

// NewLayered 建立多層緩存，略過 nil 層
func NewLayered(layers ...TextCache) *Layered {
	l := &Layered{}
	for _, layer := range layers {
		if isNil(layer) {
			continue
		}
		l.layers = append(l.layers, layer)
	}
	return l
}

// Get 依序查詢
func (l *Layered) Get(ctx context.Context, namespace, text string) (string, error) {
	for i, layer := range l.layers {
		value, err := layer.Get(ctx, namespace, text)
		if err == nil {
			for j := 0; j < i; j++ {
				_ = l.layers[j].Set(ctx, namespace, text, value)
			}
			return value, nil
		}
		if !errors.Is(err, common.ErrCacheMiss) && !errors.Is(err, common.ErrCacheDisabled) {
			common.LogWarn("快取讀取失敗", zap.String("namespace", namespace), zap.Error(err))
		}
	}
	return "", common.ErrCacheMiss
}

// Set 寫入所有層
func (l *Layered) Set(ctx context.Context, namespace, text, value string) error {
	var firstErr error
	for _, layer := range l.layers {
		if err := layer.Set(ctx, namespace, text, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len 有效層數
func (l *Layered) Len() int {
	return len(l.layers)
}

// isNil 處理包在介面中的 nil 指標
func isNil(c TextCache) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
