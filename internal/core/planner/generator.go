package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"promo-meal-planner/internal/core/ai/service"
	"promo-meal-planner/internal/core/mealplan"
	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	generatorSystem = "You are an expert meal planner. Respond ONLY in the specified JSON format with Polish text."
	debugFileName   = "debug_meal_plan_request.txt"
)

// 飲食限制的提示說明
var restrictionRules = map[string]string{
	"vegetarian":   "vegetarian: no meat, poultry or fish in any meal",
	"vegan":        "vegan: no meat, poultry, fish, dairy, eggs or honey",
	"gluten-free":  "gluten-free: no wheat, rye, barley or other gluten grains",
	"lactose-free": "lactose-free: avoid dairy or use lactose-free substitutes",
	"keto":         "keto: low-carb, high-fat meals",
}

// GenerateInput 生成參數
type GenerateInput struct {
	Context             Context
	Days                int
	People              int
	Question            string
	DietaryRestrictions []string
	MealTypes           []string
	ExcludedIngredients string
	Currency            string
}

// GeneratorConfig 生成器設定
type GeneratorConfig struct {
	Temperature float64
	MaxTokens   int
	DebugDump   bool
	DebugDir    string
}

// Generator 以嚴格 JSON 契約呼叫模型產生餐單，不自動重試
type Generator struct {
	ai     Completer
	config GeneratorConfig
	dumpMu sync.Mutex
}

// NewGenerator 創建餐單生成器
func NewGenerator(ai Completer, cfg GeneratorConfig) (*Generator, error) {
	if ai == nil {
		return nil, errors.New("completer is required")
	}
	return &Generator{ai: ai, config: cfg}, nil
}

// Generate 返回解析後的餐單；失敗時返回 *PlanError
func (g *Generator) Generate(ctx context.Context, in GenerateInput) (*mealplan.MealPlan, error) {
	prompt := BuildPrompt(in)

	resp, err := g.ai.ProcessRequest(ctx, service.Request{
		Operation:   "generate",
		System:      generatorSystem,
		Prompt:      prompt,
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
		JSONMode:    true,
		RequestID:   common.RequestIDFromContext(ctx),
	})
	if err != nil {
		g.dump(prompt, "")
		return nil, generationError("Failed to generate plan", err)
	}
	g.dump(prompt, resp.Content)

	content := common.StripCodeFence(resp.Content)
	if content == "" {
		return nil, generationError("Empty response from model", nil)
	}

	var plan mealplan.MealPlan
	if err := common.ParseJSON(content, &plan); err != nil {
		common.LogWarn("餐單 JSON 解析失敗",
			zap.Int("length", len(content)),
			zap.String("raw_response", content),
			zap.Error(err),
		)
		return nil, parseError(resp.Content, err)
	}
	if len(plan.Meals) == 0 {
		return nil, &PlanError{Kind: ErrGeneration, Message: "Generated plan contains no meals", Raw: resp.Content}
	}
	return &plan, nil
}

// dump 寫入最近一次的 prompt 與回應
func (g *Generator) dump(prompt, response string) {
	if !g.config.DebugDump {
		return
	}
	g.dumpMu.Lock()
	defer g.dumpMu.Unlock()

	path := filepath.Join(g.config.DebugDir, debugFileName)
	content := fmt.Sprintf("Prompt:\n%s\n\nResponse:\n%s\n", prompt, response)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		common.LogWarn("寫入除錯檔案失敗", zap.String("path", path), zap.Error(err))
	}
}

// BuildPrompt 組出生成 prompt
func BuildPrompt(in GenerateInput) string {
	currency := in.Currency
	if currency == "" {
		currency = "PLN"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a detailed meal plan for %d days for %d people using the promotional products below.\n\n", in.Days, in.People)
	if q := strings.TrimSpace(in.Question); q != "" {
		fmt.Fprintf(&b, "USER REQUEST: %s\n\n", q)
	}

	b.WriteString("AVAILABLE PROMOTIONAL PRODUCTS:\n")
	b.WriteString(in.Context.Products)
	if in.Context.Recipes != "" {
		b.WriteString("\nRECIPE INSPIRATION:\n")
		b.WriteString(in.Context.Recipes)
	}

	b.WriteString("\nRULES:\n")
	b.WriteString("- Use as many promotional products as possible; every main_products item must be one of the products listed above\n")
	fmt.Fprintf(&b, "- Only these meal types may appear, use them exactly as the \"type\" value: %s\n", strings.Join(in.MealTypes, ", "))
	for _, r := range restrictionLines(in.DietaryRestrictions) {
		fmt.Fprintf(&b, "- Dietary restriction, respect it in every meal: %s\n", r)
	}
	if ex := strings.TrimSpace(in.ExcludedIngredients); ex != "" {
		fmt.Fprintf(&b, "- Never use these ingredients anywhere in the plan: %s\n", ex)
	}
	b.WriteString("- Use suggested recipes as inspiration; you can copy their instructions directly\n")
	b.WriteString("- Include precise quantities for all ingredients (e.g. \"200g\")\n")
	b.WriteString("- Provide detailed step-by-step cooking instructions\n")
	b.WriteString("- You can add basic ingredients (bread, eggs, milk, etc.) as additional_ingredients unless restricted above\n")
	b.WriteString("- Output only the JSON object, no commentary and no markdown\n")

	fmt.Fprintf(&b, `
Return the response in this JSON format with Polish text:
{
  "plan_info": {"days": %d, "people": %d, "estimated_total_cost": "XX.XX %s"},
  "meals": [
    {
      "day": 1,
      "type": "%s",
      "name": "Meal name in Polish",
      "main_products": [{"name": "Product name", "quantity": "200g", "price": "X.XX %s"}],
      "additional_ingredients": [{"name": "Basic ingredient", "quantity": "100ml", "estimated_price": "X.XX %s"}],
      "instructions": "Detailed step-by-step preparation instructions in Polish",
      "prep_time": "XX min",
      "cooking_time": "XX min"
    }
  ],
  "shopping_summary": {
    "promotional_products_cost": "XX.XX %s",
    "additional_ingredients_cost": "XX.XX %s",
    "total_savings": "XX.XX %s"
  }
}`, in.Days, in.People, currency, firstOr(in.MealTypes, "obiad"), currency, currency, currency, currency, currency)

	return b.String()
}

func restrictionLines(restrictions []string) []string {
	lines := make([]string, 0, len(restrictions))
	for _, r := range restrictions {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if rule, ok := restrictionRules[strings.ToLower(r)]; ok {
			lines = append(lines, rule)
			continue
		}
		lines = append(lines, r)
	}
	return lines
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 && strings.TrimSpace(list[0]) != "" {
		return list[0]
	}
	return fallback
}
