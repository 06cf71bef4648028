package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"promo-meal-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planJSON = `{
  "plan_info": {"days": 1, "people": 1, "estimated_total_cost": "100.00 PLN"},
  "meals": [{
    "day": 1, "type": "obiad", "name": "Kurczak z ryżem",
    "main_products": [{"name": "Chicken breast", "quantity": "200g", "price": "6.50 PLN"}],
    "additional_ingredients": [{"name": "Rice", "quantity": "100g", "estimated_price": "2.30 PLN"}],
    "instructions": "Ugotuj.", "prep_time": "5 min", "cooking_time": "20 min"
  }],
  "shopping_summary": {"promotional_products_cost": "1 PLN", "additional_ingredients_cost": "1 PLN", "total_savings": "3.49 PLN"}
}`

func sampleInput() GenerateInput {
	return GenerateInput{
		Context:             Context{Products: "- Chicken breast: 6.50 PLN\n", Recipes: "- For Chicken breast:\n  Suggested recipe: Curry\n"},
		Days:                2,
		People:              3,
		Question:            "cheap dinners",
		DietaryRestrictions: []string{"gluten-free", "no spicy food"},
		MealTypes:           []string{"obiad", "kolacja"},
		ExcludedIngredients: "orzechy",
		Currency:            "PLN",
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain json", planJSON},
		{"json fence", "```json\n" + planJSON + "\n```"},
		{"bare fence", "```\n" + planJSON + "\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := newScripted()
			ai.content["generate"] = tt.content
			g, err := NewGenerator(ai, GeneratorConfig{Temperature: 0.3, MaxTokens: 8000})
			require.NoError(t, err)

			plan, err := g.Generate(context.Background(), sampleInput())
			require.NoError(t, err)
			require.Len(t, plan.Meals, 1)
			assert.Equal(t, "Kurczak z ryżem", plan.Meals[0].Name)

			req := ai.last("generate")
			assert.True(t, req.JSONMode)
			assert.Equal(t, 0.3, req.Temperature)
			assert.Equal(t, 8000, req.MaxTokens)
			assert.Equal(t, generatorSystem, req.System)
			assert.Empty(t, req.CacheNamespace)
		})
	}
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		err      error
		kind     error
		message  string
		keepsRaw bool
	}{
		{"model error", "", errors.New("boom"), ErrGeneration, "Failed to generate plan", false},
		{"timeout", "", fmt.Errorf("generate: %w", context.DeadlineExceeded), ErrGeneration, "Meal plan generation timed out", false},
		{"empty after fence", "```json\n```", nil, ErrGeneration, "Empty response from model", false},
		{"commentary around json", "Here is your plan: " + planJSON, nil, ErrParse, "Failed to parse generated plan", true},
		{"truncated json", planJSON[:120], nil, ErrParse, "Failed to parse generated plan", true},
		{"no meals", `{"plan_info":{"days":1,"people":1},"meals":[]}`, nil, ErrGeneration, "Generated plan contains no meals", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := newScripted()
			ai.content["generate"] = tt.content
			ai.errs["generate"] = tt.err
			g, err := NewGenerator(ai, GeneratorConfig{})
			require.NoError(t, err)

			plan, err := g.Generate(context.Background(), sampleInput())
			assert.Nil(t, plan)
			assert.ErrorIs(t, err, tt.kind)

			var pe *PlanError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.message, pe.Message)
			if tt.keepsRaw {
				assert.Equal(t, tt.content, pe.Raw)
			}
			assert.Equal(t, 1, ai.count("generate"), "no automatic retry")
		})
	}
}

func TestGenerate_ParseErrorIsNotGenerationKind(t *testing.T) {
	ai := newScripted()
	ai.content["generate"] = "not json"
	g, err := NewGenerator(ai, GeneratorConfig{})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), sampleInput())
	assert.ErrorIs(t, err, common.ErrParseFailure)
	assert.NotErrorIs(t, err, common.ErrGenerationFailure)
}

func TestGenerate_DebugDump(t *testing.T) {
	dir := t.TempDir()
	ai := newScripted()
	ai.content["generate"] = planJSON
	g, err := NewGenerator(ai, GeneratorConfig{DebugDump: true, DebugDir: dir})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), sampleInput())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, debugFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Prompt:\nCreate a detailed meal plan for 2 days for 3 people")
	assert.Contains(t, string(data), "\n\nResponse:\n"+planJSON)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleInput())

	assert.Contains(t, prompt, "for 2 days for 3 people")
	assert.Contains(t, prompt, "USER REQUEST: cheap dinners")
	assert.Contains(t, prompt, "AVAILABLE PROMOTIONAL PRODUCTS:\n- Chicken breast: 6.50 PLN\n")
	assert.Contains(t, prompt, "RECIPE INSPIRATION:\n- For Chicken breast:")
	assert.Contains(t, prompt, "Only these meal types may appear, use them exactly as the \"type\" value: obiad, kolacja")
	assert.Contains(t, prompt, "gluten-free: no wheat, rye, barley or other gluten grains")
	assert.Contains(t, prompt, "respect it in every meal: no spicy food")
	assert.Contains(t, prompt, "Never use these ingredients anywhere in the plan: orzechy")
	assert.Contains(t, prompt, `"type": "obiad"`)

	bare := BuildPrompt(GenerateInput{Days: 1, People: 1, MealTypes: []string{"kolacja"}})
	assert.NotContains(t, bare, "USER REQUEST")
	assert.NotContains(t, bare, "RECIPE INSPIRATION")
	assert.NotContains(t, bare, "Never use these ingredients")
	assert.Contains(t, bare, "XX.XX PLN")
}
