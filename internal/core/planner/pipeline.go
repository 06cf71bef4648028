package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"promo-meal-planner/internal/core/catalog"
	"promo-meal-planner/internal/core/mealplan"
	"promo-meal-planner/internal/core/recipe"
	"promo-meal-planner/internal/infrastructure/config"
	"promo-meal-planner/internal/infrastructure/metrics"
	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Translator 翻譯能力
type Translator interface {
	TranslateOrOriginal(ctx context.Context, text string) string
	ProductKeys(ctx context.Context, products []*catalog.Product) []string
}

// Retriever 批次食譜檢索
type Retriever interface {
	BatchSearch(ctx context.Context, question string, keys []string, topK int) (*recipe.Buckets, error)
}

// PlanRequest 規劃請求
type PlanRequest struct {
	Query               string
	Days                int
	People              int
	DietaryRestrictions []string
	MealTypes           []string
	ExcludedIngredients string
	// ProductNames 為空時使用全部商品
	ProductNames []string
}

// Deps 管線元件
type Deps struct {
	Catalog    *catalog.Catalog
	Translator Translator
	Rewriter   *Rewriter
	Retriever  Retriever
	Assembler  *Assembler
	Generator  *Generator
	Metrics    *metrics.Collector
	// IncludeRaw 解析失敗時在回應中附上模型原始輸出
	IncludeRaw bool
}

// Pipeline 每個程序建立一次，在請求間共用
type Pipeline struct {
	deps      Deps
	planner   config.PlannerConfig
	retrieval config.RetrievalConfig
}

// NewPipeline 建立規劃管線
func NewPipeline(deps Deps, plannerCfg config.PlannerConfig, retrievalCfg config.RetrievalConfig) (*Pipeline, error) {
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("catalog is required")
	case deps.Translator == nil:
		return nil, errors.New("translator is required")
	case deps.Rewriter == nil:
		return nil, errors.New("rewriter is required")
	case deps.Retriever == nil:
		return nil, errors.New("retriever is required")
	case deps.Generator == nil:
		return nil, errors.New("generator is required")
	}
	if deps.Assembler == nil {
		deps.Assembler = NewAssembler(retrievalCfg.ExcerptChars, plannerCfg.Currency)
	}
	return &Pipeline{deps: deps, planner: plannerCfg, retrieval: retrievalCfg}, nil
}

// Catalog 商品目錄
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.deps.Catalog
}

// Normalize 套用預設值
func (p *Pipeline) Normalize(req PlanRequest) PlanRequest {
	if req.Days <= 0 {
		req.Days = max(p.planner.DefaultDays, 1)
	}
	if req.People <= 0 {
		req.People = max(p.planner.DefaultPeople, 1)
	}
	req.MealTypes = nonBlank(req.MealTypes)
	if len(req.MealTypes) == 0 {
		req.MealTypes = append([]string(nil), p.planner.DefaultMealTypes...)
	}
	req.DietaryRestrictions = nonBlank(req.DietaryRestrictions)
	req.Query = strings.TrimSpace(req.Query)
	return req
}

// Plan 執行 translate → rewrite → retrieve → assemble → generate → validate → reconcile。
// 不返回 Go 錯誤：失敗以 status:error 回應表示。
func (p *Pipeline) Plan(ctx context.Context, req PlanRequest) *mealplan.Response {
	start := time.Now()
	req = p.Normalize(req)
	requestID := common.RequestIDFromContext(ctx)

	products, resp := p.selectProducts(req.ProductNames)
	if resp != nil {
		p.deps.Metrics.PlanFinished(mealplan.StatusError)
		return resp
	}

	var question string
	var keys []string
	p.stage(ctx, "translate", func() {
		question = p.deps.Translator.TranslateOrOriginal(ctx, req.Query)
		keys = p.deps.Translator.ProductKeys(ctx, products)
	})

	var query string
	p.stage(ctx, "rewrite", func() {
		query = p.deps.Rewriter.Rewrite(ctx, question)
	})

	var buckets *recipe.Buckets
	p.stage(ctx, "retrieve", func() {
		// 錯誤已在檢索引擎內記錄，空桶照常使用
		buckets, _ = p.deps.Retriever.BatchSearch(ctx, query, keys, p.retrieval.TopK)
	})

	var grounding Context
	p.stage(ctx, "assemble", func() {
		grounding = p.deps.Assembler.Assemble(products, keys, buckets)
	})

	var plan *mealplan.MealPlan
	var err error
	p.stage(ctx, "generate", func() {
		plan, err = p.deps.Generator.Generate(ctx, GenerateInput{
			Context:             grounding,
			Days:                req.Days,
			People:              req.People,
			Question:            req.Query,
			DietaryRestrictions: req.DietaryRestrictions,
			MealTypes:           req.MealTypes,
			ExcludedIngredients: req.ExcludedIngredients,
			Currency:            p.planner.Currency,
		})
	})
	if err != nil {
		return p.fail(err, requestID, start)
	}

	names := make([]string, 0, len(products)*2)
	for i, prod := range products {
		names = append(names, prod.Name)
		if i < len(keys) {
			names = append(names, keys[i])
		}
	}
	report := mealplan.Validate(plan, mealplan.Constraints{
		MealTypes:           req.MealTypes,
		DietaryRestrictions: req.DietaryRestrictions,
		ExcludedIngredients: req.ExcludedIngredients,
		ProductNames:        names,
	})
	for _, w := range report.Warnings {
		common.LogWarn("餐單檢查警告", zap.String("warning", w), zap.String("request_id", requestID))
	}
	if !report.OK() {
		if p.planner.StrictValidation {
			return p.fail(&PlanError{
				Kind:    ErrGeneration,
				Message: "Generated plan violates constraints: " + strings.Join(report.Violations, "; "),
			}, requestID, start)
		}
		common.LogWarn("餐單違反限制", zap.Strings("violations", report.Violations), zap.String("request_id", requestID))
	}

	var out *mealplan.MealPlan
	p.stage(ctx, "reconcile", func() {
		out = mealplan.Reconcile(plan, p.planner.Currency)
	})

	p.deps.Metrics.PlanFinished(mealplan.StatusSuccess)
	common.LogInfo("餐單生成完成",
		zap.String("request_id", requestID),
		zap.Int("products", len(products)),
		zap.Int("recipes", buckets.Total()),
		zap.Int("meals", len(out.Meals)),
		zap.String("total", out.PlanInfo.EstimatedTotalCost.String()),
		zap.Duration("duration", time.Since(start)),
	)
	return mealplan.Success(out)
}

func (p *Pipeline) selectProducts(names []string) ([]*catalog.Product, *mealplan.Response) {
	names = nonBlank(names)
	if len(names) == 0 {
		products := p.deps.Catalog.All()
		if len(products) == 0 {
			return nil, mealplan.Failure(common.ErrNoProducts.Message)
		}
		return products, nil
	}

	sel := p.deps.Catalog.Select(names)
	if len(sel.NotFound) > 0 {
		common.LogInfo("部分商品未找到", zap.Strings("not_found", sel.NotFound))
	}
	if len(sel.Products) == 0 {
		return nil, mealplan.Failure(common.ErrNoProducts.Message)
	}
	return sel.Products, nil
}

func (p *Pipeline) fail(err error, requestID string, start time.Time) *mealplan.Response {
	p.deps.Metrics.PlanFinished(mealplan.StatusError)

	message := "Failed to generate plan"
	var raw string
	var pe *PlanError
	if errors.As(err, &pe) {
		message = pe.Message
		raw = pe.Raw
	}

	common.LogError("餐單生成失敗",
		zap.String("request_id", requestID),
		zap.Error(err),
		zap.Duration("duration", time.Since(start)),
	)

	resp := mealplan.Failure(message)
	if p.deps.IncludeRaw {
		resp.Raw = raw
	}
	return resp
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func()) {
	start := time.Now()
	fn()
	d := time.Since(start)
	p.deps.Metrics.StageDuration(name, d)
	common.LogStage(name, d, common.RequestIDFromContext(ctx))
}

func nonBlank(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
