package mealplan

import (
	"strings"

	"promo-meal-planner/internal/core/pricing"
)

// Totals 重新計算的費用
type Totals struct {
	Promotional float64
	Additional  float64
	Total       float64
}

// ItemPrice 額外食材的有效價格字串
func (a AdditionalIngredient) ItemPrice() pricing.Price {
	if strings.TrimSpace(string(a.Price)) != "" {
		return a.Price
	}
	return a.EstimatedPrice
}

// Compute 由各項價格加總；無法解析的價格視為 0
func Compute(plan *MealPlan) Totals {
	var promo, additional float64
	if plan != nil {
		for _, meal := range plan.Meals {
			for _, item := range meal.MainProducts {
				promo += item.Price.Value()
			}
			for _, item := range meal.AdditionalIngredients {
				additional += item.ItemPrice().Value()
			}
		}
	}

	promo = pricing.Round2(promo)
	additional = pricing.Round2(additional)
	return Totals{
		Promotional: promo,
		Additional:  additional,
		Total:       pricing.Round2(promo + additional),
	}
}

// Reconcile 返回費用欄位已重算的副本；total_savings 保留，缺少時為零
func Reconcile(plan *MealPlan, currency string) *MealPlan {
	if plan == nil {
		return nil
	}
	out := plan.Clone()
	totals := Compute(out)

	savings := out.ShoppingSummary.TotalSavings
	if strings.TrimSpace(string(savings)) == "" {
		savings = pricing.Price(pricing.Format(0, currency))
	}

	out.PlanInfo.EstimatedTotalCost = pricing.Price(pricing.Format(totals.Total, currency))
	out.ShoppingSummary = ShoppingSummary{
		PromotionalProductsCost:   pricing.Price(pricing.Format(totals.Promotional, currency)),
		AdditionalIngredientsCost: pricing.Price(pricing.Format(totals.Additional, currency)),
		TotalSavings:              savings,
	}
	return out
}
