package mealplan

import (
	"bytes"
	"encoding/json"
	"strings"

	"promo-meal-planner/internal/core/pricing"
)

// 回應狀態
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MealPlan 生成的餐單
type MealPlan struct {
	PlanInfo        PlanInfo        `json:"plan_info"`
	Meals           []Meal          `json:"meals"`
	ShoppingSummary ShoppingSummary `json:"shopping_summary"`
}

// PlanInfo 餐單概要
type PlanInfo struct {
	Days               int           `json:"days"`
	People             int           `json:"people"`
	EstimatedTotalCost pricing.Price `json:"estimated_total_cost"`
}

// Meal 單餐
type Meal struct {
	Day                   int                    `json:"day"`
	Type                  string                 `json:"type"`
	Name                  string                 `json:"name"`
	ImageName             string                 `json:"image_name,omitempty"`
	MainProducts          []MainProduct          `json:"main_products"`
	AdditionalIngredients []AdditionalIngredient `json:"additional_ingredients"`
	Instructions          Text                   `json:"instructions"`
	PrepTime              string                 `json:"prep_time,omitempty"`
	CookingTime           string                 `json:"cooking_time,omitempty"`
}

// MainProduct 使用的促銷商品
type MainProduct struct {
	Name     string        `json:"name"`
	Quantity string        `json:"quantity"`
	Price    pricing.Price `json:"price"`
}

// AdditionalIngredient 額外食材；price 存在時優先於 estimated_price
type AdditionalIngredient struct {
	Name           string        `json:"name"`
	Quantity       string        `json:"quantity"`
	EstimatedPrice pricing.Price `json:"estimated_price"`
	Price          pricing.Price `json:"price,omitempty"`
}

// ShoppingSummary 費用總結
type ShoppingSummary struct {
	PromotionalProductsCost   pricing.Price `json:"promotional_products_cost"`
	AdditionalIngredientsCost pricing.Price `json:"additional_ingredients_cost"`
	TotalSavings              pricing.Price `json:"total_savings"`
}

// Text 可為字串或字串陣列（步驟以換行連接）
type Text string

// UnmarshalJSON 接受字串、字串陣列或 null
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case len(data) > 0 && data[0] == '[':
		var steps []string
		if err := json.Unmarshal(data, &steps); err != nil {
			return err
		}
		*t = Text(strings.Join(steps, "\n"))
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
}

// Clone 深拷貝
func (p *MealPlan) Clone() *MealPlan {
	if p == nil {
		return nil
	}
	out := *p
	out.Meals = make([]Meal, len(p.Meals))
	for i, m := range p.Meals {
		m.MainProducts = append([]MainProduct(nil), m.MainProducts...)
		m.AdditionalIngredients = append([]AdditionalIngredient(nil), m.AdditionalIngredients...)
		out.Meals[i] = m
	}
	return &out
}

// Response 對外回應：餐單加上狀態
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	*MealPlan
	// Raw 解析失敗時的模型原始輸出（僅除錯模式）
	Raw string `json:"raw_output,omitempty"`
}

// Success 成功回應
func Success(plan *MealPlan) *Response {
	return &Response{Status: StatusSuccess, MealPlan: plan}
}

// Failure 錯誤回應
func Failure(message string) *Response {
	return &Response{Status: StatusError, Message: message}
}
