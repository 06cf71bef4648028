package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// feedFile 爬蟲與關鍵字增強輸出的檔案格式
type feedFile struct {
	ScrapedAt     string     `json:"scraped_at,omitempty"`
	TotalProducts int        `json:"total_products,omitempty"`
	Products      []*Product `json:"products"`
}

// Catalog 唯讀商品目錄，Product 指標在請求間共享
type Catalog struct {
	products  []*Product
	source    string
	scrapedAt string
	loadedAt  time.Time
}

// Selection 依名稱挑選的結果
type Selection struct {
	Products []*Product `json:"products"`
	NotFound []string   `json:"not_found,omitempty"`
}

// New 由記憶體中的商品建立目錄
func New(products []*Product) *Catalog {
	filtered := make([]*Product, 0, len(products))
	for _, p := range products {
		if p == nil || strings.TrimSpace(p.Name) == "" {
			continue
		}
		filtered = append(filtered, p)
	}
	return &Catalog{products: filtered, loadedAt: time.Now()}
}

// LoadFile 讀取 {"products": [...]} 格式的商品檔案
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read products file: %w", err)
	}

	var feed feedFile
	if err := common.ParseJSONBytes(data, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse products file %s: %w", path, err)
	}
	if len(feed.Products) == 0 {
		return nil, errors.New("products file contains no products")
	}

	c := New(feed.Products)
	c.source = path
	c.scrapedAt = feed.ScrapedAt

	common.LogInfo("商品目錄已載入",
		zap.String("source", path),
		zap.Int("products", len(c.products)),
		zap.String("scraped_at", feed.ScrapedAt),
	)
	return c, nil
}

// All 所有商品
func (c *Catalog) All() []*Product {
	out := make([]*Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len 商品數量
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// Names 所有商品名稱
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.products))
	for _, p := range c.products {
		names = append(names, p.Name)
	}
	return names
}

// Source 來源檔案
func (c *Catalog) Source() string {
	return c.source
}

// Select 對每個名稱取第一個名稱包含該字串（不分大小寫）的商品
func (c *Catalog) Select(names []string) Selection {
	var sel Selection
	for _, name := range names {
		needle := strings.ToLower(strings.TrimSpace(name))
		if needle == "" {
			continue
		}
		var found *Product
		for _, p := range c.products {
			if strings.Contains(strings.ToLower(p.Name), needle) {
				found = p
				break
			}
		}
		if found == nil {
			sel.NotFound = append(sel.NotFound, name)
			common.LogDebug("商品未找到", zap.String("name", name))
			continue
		}
		sel.Products = append(sel.Products, found)
	}
	return sel
}
