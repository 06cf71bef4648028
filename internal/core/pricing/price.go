// Package pricing 處理模型與商品資料中的價格字串。
//
// 價格語法：可選正負號、數字、可選以 "," 或 "." 分隔的小數部分，
// 最後可帶一個貨幣符號（如 "PLN"、"zł"）。例如 "12,50 PLN"、"-3.2"、"7zł"。
package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultCurrency 預設貨幣
const DefaultCurrency = "PLN"

var priceRe = regexp.MustCompile(`^([+-]?)(\d+)(?:[.,](\d+))?\s*(\p{L}+\.?|[€$£])?$`)

// Parse 解析價格字串，無法解析時返回 (0, false)
func Parse(s string) (float64, bool) {
	m := priceRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	num := m[2]
	if m[3] != "" {
		num += "." + m[3]
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if m[1] == "-" {
		v = -v
	}
	return v, true
}

// ParseOrZero 解析價格，無法解析時視為 0
func ParseOrZero(s string) float64 {
	v, _ := Parse(s)
	return v
}

// Round2 四捨五入到小數點後兩位
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Format 格式化為 "12.50 PLN"
func Format(v float64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	v = Round2(v)
	if v == 0 {
		// 避免輸出 "-0.00"
		v = 0
	}
	return fmt.Sprintf("%.2f %s", v, currency)
}

// Price 價格欄位；JSON 可為字串或數字，統一保存為文字
type Price string

// UnmarshalJSON 接受字串、數字與 null
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price must be a string or number: %w", err)
	}
	*p = Price(n.String())
	return nil
}

// String 實作 fmt.Stringer
func (p Price) String() string {
	return string(p)
}

// Value 解析後的數值，無法解析為 0
func (p Price) Value() float64 {
	return ParseOrZero(string(p))
}
