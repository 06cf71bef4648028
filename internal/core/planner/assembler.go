package planner

import (
	"fmt"
	"strings"
	"unicode"

	"promo-meal-planner/internal/core/catalog"
	"promo-meal-planner/internal/core/pricing"
	"promo-meal-planner/internal/core/recipe"
	"promo-meal-planner/internal/pkg/common"
)

// Context 提供給生成模型的背景資料
type Context struct {
	Products string
	Recipes  string
}

// Assembler 合併商品資訊與候選食譜，不呼叫模型
type Assembler struct {
	excerptChars int
	currency     string
}

// NewAssembler 創建組裝器；excerptChars <= 0 時使用 1000
func NewAssembler(excerptChars int, currency string) *Assembler {
	if excerptChars <= 0 {
		excerptChars = 1000
	}
	if currency == "" {
		currency = pricing.DefaultCurrency
	}
	return &Assembler{excerptChars: excerptChars, currency: currency}
}

// Assemble 依商品順序輸出，同一鍵只保留第一個商品。
// keys 與 products 一一對應。
func (a *Assembler) Assemble(products []*catalog.Product, keys []string, buckets *recipe.Buckets) Context {
	var prod, rec strings.Builder
	seen := make(map[string]struct{}, len(products))

	for i, p := range products {
		if p == nil {
			continue
		}
		key := p.Key()
		if i < len(keys) && strings.TrimSpace(keys[i]) != "" {
			key = strings.TrimSpace(keys[i])
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		prod.WriteString(productLine(p, a.currency))

		results := buckets.Get(key)
		if len(results) == 0 {
			continue
		}
		best := results[0]
		fmt.Fprintf(&rec, "- For %s:\n", p.Name)
		fmt.Fprintf(&rec, "  Suggested recipe: %s\n", best.Title)
		if ing := best.Ingredients.String(); ing != "" {
			fmt.Fprintf(&rec, "  Ingredients: %s\n", a.excerpt(ing))
		}
		if best.Instructions != "" {
			fmt.Fprintf(&rec, "  Full recipe: %s\n", a.excerpt(best.Instructions))
		}
	}

	return Context{Products: prod.String(), Recipes: rec.String()}
}

func (a *Assembler) excerpt(s string) string {
	out, truncated := common.TruncateRunes(strings.TrimSpace(s), a.excerptChars)
	if truncated {
		return out + "..."
	}
	return out
}

// productLine 商品行；缺少的選填欄位直接省略
func productLine(p *catalog.Product, currency string) string {
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(p.Name)
	if price := strings.TrimSpace(p.Price.String()); price != "" {
		b.WriteString(": ")
		b.WriteString(price)
		if _, ok := pricing.Parse(price); ok && !hasCurrency(price) {
			b.WriteString(" ")
			b.WriteString(currency)
		}
	}
	if p.Unit != "" {
		b.WriteString(" / ")
		b.WriteString(p.Unit)
	}

	var extras []string
	if op := strings.TrimSpace(p.OriginalPrice.String()); op != "" {
		extras = append(extras, "regular price "+op)
	}
	if p.DiscountInfo != "" {
		extras = append(extras, p.DiscountInfo)
	}
	if p.PromotionType != "" {
		extras = append(extras, p.PromotionType)
	}
	if len(extras) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(extras, ", "))
		b.WriteString(")")
	}
	b.WriteString("\n")
	return b.String()
}

func hasCurrency(price string) bool {
	for _, r := range price {
		if unicode.IsLetter(r) || unicode.Is(unicode.Sc, r) {
			return true
		}
	}
	return false
}
