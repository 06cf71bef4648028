package catalog

import (
	"encoding/json"
	"strings"
	"sync"

	"promo-meal-planner/internal/core/pricing"
)

// Product 促銷商品；名稱為識別，翻譯名稱在程序生命週期內只寫入一次
type Product struct {
	Name            string        `json:"name"`
	Price           pricing.Price `json:"price"`
	OriginalPrice   pricing.Price `json:"original_price,omitempty"`
	DiscountInfo    string        `json:"discount_info,omitempty"`
	Unit            string        `json:"unit,omitempty"`
	PromotionType   string        `json:"promotion_type,omitempty"`
	EnglishKeywords []string      `json:"english_keywords,omitempty"`

	mu             sync.RWMutex
	translatedName string
}

// productJSON 序列化用視圖
type productJSON struct {
	Name            string        `json:"name"`
	Price           pricing.Price `json:"price"`
	OriginalPrice   pricing.Price `json:"original_price,omitempty"`
	DiscountInfo    string        `json:"discount_info,omitempty"`
	Unit            string        `json:"unit,omitempty"`
	PromotionType   string        `json:"promotion_type,omitempty"`
	EnglishKeywords []string      `json:"english_keywords,omitempty"`
	TranslatedName  string        `json:"translated_name,omitempty"`
}

// NewProduct 建立商品
func NewProduct(name string, price string) *Product {
	return &Product{Name: name, Price: pricing.Price(price)}
}

// TranslatedName 返回已記錄的翻譯名稱
func (p *Product) TranslatedName() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.translatedName, p.translatedName != ""
}

// SetTranslatedName 記錄翻譯名稱；已有值時保留先寫入者並返回該值
func (p *Product) SetTranslatedName(name string) string {
	name = strings.TrimSpace(name)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.translatedName == "" && name != "" {
		p.translatedName = name
	}
	return p.translatedName
}

// Key 檢索用的標準名稱：翻譯名稱優先，否則原名
func (p *Product) Key() string {
	if name, ok := p.TranslatedName(); ok {
		return name
	}
	return strings.TrimSpace(p.Name)
}

// MarshalJSON 包含翻譯名稱
func (p *Product) MarshalJSON() ([]byte, error) {
	translated, _ := p.TranslatedName()
	return json.Marshal(productJSON{
		Name:            p.Name,
		Price:           p.Price,
		OriginalPrice:   p.OriginalPrice,
		DiscountInfo:    p.DiscountInfo,
		Unit:            p.Unit,
		PromotionType:   p.PromotionType,
		EnglishKeywords: p.EnglishKeywords,
		TranslatedName:  translated,
	})
}

// UnmarshalJSON 讀取 feed 中可選的 translated_name
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw productJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Name = strings.TrimSpace(raw.Name)
	p.Price = raw.Price
	p.OriginalPrice = raw.OriginalPrice
	p.DiscountInfo = raw.DiscountInfo
	p.Unit = raw.Unit
	p.PromotionType = raw.PromotionType
	p.EnglishKeywords = raw.EnglishKeywords
	p.SetTranslatedName(raw.TranslatedName)
	return nil
}
