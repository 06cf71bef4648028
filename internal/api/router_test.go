package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"promo-meal-planner/internal/api/middleware"
	"promo-meal-planner/internal/core/ai/queue"
	"promo-meal-planner/internal/core/ai/service"
	"promo-meal-planner/internal/core/catalog"
	"promo-meal-planner/internal/core/planner"
	"promo-meal-planner/internal/core/recipe"
	"promo-meal-planner/internal/core/translation"
	"promo-meal-planner/internal/infrastructure/config"
	"promo-meal-planner/internal/infrastructure/metrics"
	"promo-meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cannedPlan = `{
  "plan_info": {"days": 1, "people": 1, "estimated_total_cost": "1.00 PLN"},
  "meals": [{
    "day": 1, "type": "obiad", "name": "Kurczak z ryżem",
    "main_products": [{"name": "Chicken breast", "quantity": "200g", "price": "6.50 PLN"}],
    "additional_ingredients": [{"name": "Rice", "quantity": "100g", "estimated_price": "2.30 PLN"}],
    "instructions": "Ugotuj.", "prep_time": "5 min", "cooking_time": "20 min"
  }],
  "shopping_summary": {"promotional_products_cost": "0 PLN", "additional_ingredients_cost": "0 PLN"}
}`

// cannedAI 依操作返回固定內容
type cannedAI struct{}

func (cannedAI) ProcessRequest(ctx context.Context, req service.Request) (*service.Response, error) {
	switch req.Operation {
	case "translate":
		if req.Prompt == "Pierś z kurczaka" {
			return &service.Response{Content: "Chicken breast"}, nil
		}
		return &service.Response{Content: req.Prompt}, nil
	case "rewrite":
		return &service.Response{Content: "chicken dinner"}, nil
	default:
		return &service.Response{Content: "```json\n" + cannedPlan + "\n```"}, nil
	}
}

type unitEmbedder struct{}

func (unitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Version: "test"},
		Server:    config.ServerConfig{RequestTimeout: time.Minute, MaxBodyBytes: 1 << 20},
		Retrieval: config.RetrievalConfig{TopK: 1, SearchCap: 100, ExcerptChars: 1000},
		Planner: config.PlannerConfig{
			DefaultDays: 1, DefaultPeople: 1,
			DefaultMealTypes: []string{"śniadanie", "obiad", "kolacja"},
			StrictValidation: true, Currency: "PLN",
		},
		RateLimit: config.RateLimitConfig{Enabled: true, Requests: 100, Window: time.Minute},
	}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	collector := metrics.New()

	cat := catalog.New([]*catalog.Product{
		catalog.NewProduct("Pierś z kurczaka", "6,50"),
		catalog.NewProduct("Ryż", "2,30"),
	})
	index, err := recipe.NewIndex([]*recipe.Recipe{
		{ID: "r1", Title: "Chicken curry", Ingredients: recipe.Ingredients{"chicken breast"}, Instructions: "Cook.", Embedding: []float32{1, 0}},
		{ID: "r2", Title: "Fried rice", Ingredients: recipe.Ingredients{"rice"}, Instructions: "Fry.", Embedding: []float32{0.5, 0.5}},
	})
	require.NoError(t, err)

	engine, err := recipe.NewEngine(unitEmbedder{}, index, cfg.Retrieval, collector)
	require.NoError(t, err)
	translator, err := translation.NewTranslator(cannedAI{}, "English", collector)
	require.NoError(t, err)
	rewriter, err := planner.NewRewriter(cannedAI{}, collector)
	require.NoError(t, err)
	generator, err := planner.NewGenerator(cannedAI{}, planner.GeneratorConfig{})
	require.NoError(t, err)

	pipeline, err := planner.NewPipeline(planner.Deps{
		Catalog:    cat,
		Translator: translator,
		Rewriter:   rewriter,
		Retriever:  engine,
		Generator:  generator,
		Metrics:    collector,
	}, cfg.Planner, cfg.Retrieval)
	require.NoError(t, err)

	q := queue.NewManager(config.QueueConfig{Workers: 2, MaxSize: 8}, collector)
	q.Start()
	t.Cleanup(q.Close)

	dedup := middleware.NewDeduplicator(time.Millisecond)
	t.Cleanup(dedup.Close)

	return SetupRouter(cfg, Services{
		Pipeline:     pipeline,
		Queue:        q,
		Catalog:      cat,
		Index:        index,
		Retriever:    engine,
		Translator:   translator,
		Rewriter:     rewriter,
		Metrics:      collector,
		Deduplicator: dedup,
	})
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_AskEndToEnd(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/ask", `{"query":"obiad z kurczakiem"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])

	summary := body["shopping_summary"].(map[string]interface{})
	assert.Equal(t, "6.50 PLN", summary["promotional_products_cost"])
	assert.Equal(t, "2.30 PLN", summary["additional_ingredients_cost"])
	assert.Equal(t, "0.00 PLN", summary["total_savings"])
	assert.Equal(t, "8.80 PLN", body["plan_info"].(map[string]interface{})["estimated_total_cost"])
}

func TestRouter_Routes(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		want   string
	}{
		{"missing query", http.MethodPost, "/api/v1/plan", `{}`, http.StatusBadRequest, "Missing 'query' in request"},
		{"quick plan", http.MethodPost, "/api/v1/plan/quick", `{"product_names":["kurczak"]}`, http.StatusOK, `"status":"success"`},
		{"products", http.MethodGet, "/api/v1/products", "", http.StatusOK, "Pierś z kurczaka"},
		{"recipe search", http.MethodPost, "/api/v1/recipes/search", `{"products":["chicken","rice"]}`, http.StatusOK, `"recipe_id":"r1"`},
		{"translate", http.MethodPost, "/api/v1/translate", `{"text":"Pierś z kurczaka"}`, http.StatusOK, "Chicken breast"},
		{"rewrite", http.MethodPost, "/api/v1/query/rewrite", `{"text":"coś z kurczakiem"}`, http.StatusOK, "chicken dinner"},
		{"health", http.MethodGet, "/health", "", http.StatusOK, `"products":2`},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK, "ready"},
		{"live", http.MethodGet, "/live", "", http.StatusOK, "alive"},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK, "go_goroutines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestRouter_BodyTooLarge(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/ask", `{"query":"`+strings.Repeat("a", 2<<20)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_UnknownRoutes(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrNotFound.Code)

	w = do(r, http.MethodGet, "/api/ask", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrMethodNotAllowed.Code)
}
