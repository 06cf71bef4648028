package api

import (
	"time"

	"promo-meal-planner/internal/api/handlers"
	"promo-meal-planner/internal/api/handlers/health"
	planHandler "promo-meal-planner/internal/api/handlers/plan"
	recipeHandler "promo-meal-planner/internal/api/handlers/recipe"
	"promo-meal-planner/internal/api/middleware"
	"promo-meal-planner/internal/core/ai/queue"
	"promo-meal-planner/internal/core/catalog"
	"promo-meal-planner/internal/core/planner"
	"promo-meal-planner/internal/core/recipe"
	"promo-meal-planner/internal/core/translation"
	"promo-meal-planner/internal/infrastructure/config"
	"promo-meal-planner/internal/infrastructure/metrics"
	"promo-meal-planner/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services 路由需要的元件，由 main 建立
type Services struct {
	Pipeline     *planner.Pipeline
	Queue        *queue.Manager
	Catalog      *catalog.Catalog
	Index        *recipe.Index
	Retriever    *recipe.Engine
	Translator   *translation.Translator
	Rewriter     *planner.Rewriter
	Metrics      *metrics.Collector
	Cache        health.CacheStats
	Deduplicator *middleware.Deduplicator
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(svc.Metrics.Middleware())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.RequestContext(cfg.Server.RequestTimeout))

	// 健康檢查路由
	healthHandler := health.NewHandler(health.Deps{
		Version:  cfg.App.Version,
		Queue:    svc.Queue,
		Cache:    svc.Cache,
		Products: svc.Catalog,
		Recipes:  svc.Index,
	})
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(svc.Metrics.Handler()))

	// 規劃相關路由：限流與去重
	planning := []gin.HandlerFunc{}
	if cfg.RateLimit.Enabled {
		planning = append(planning, middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if svc.Deduplicator != nil {
		planning = append(planning, svc.Deduplicator.Middleware())
	}

	plans := planHandler.NewHandler(svc.Pipeline, svc.Queue, svc.Catalog)

	legacy := router.Group("/api", planning...)
	{
		legacy.POST("/ask", plans.HandleAsk)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", plans.HandleProducts)

		planGroup := v1.Group("/plan", planning...)
		{
			planGroup.POST("", plans.HandleAsk)
			planGroup.POST("/quick", plans.HandleQuick)
		}

		recipes := recipeHandler.NewHandler(svc.Retriever, svc.Translator)
		v1.POST("/recipes/search", recipes.HandleSearch)

		ai := handlers.NewAIHandler(svc.Translator, svc.Rewriter)
		v1.POST("/translate", ai.Translate)
		v1.POST("/query/rewrite", ai.Rewrite)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(common.ErrNotFound.Status, gin.H{
			"status":  "error",
			"message": common.ErrNotFound.Message,
			"code":    common.ErrNotFound.Code,
		})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(common.ErrMethodNotAllowed.Status, gin.H{
			"status":  "error",
			"message": common.ErrMethodNotAllowed.Message,
			"code":    common.ErrMethodNotAllowed.Code,
		})
	})

	common.LogInfo("Router setup completed successfully",
		zap.Int("products", svc.Catalog.Len()),
		zap.Int("recipes", svc.Index.Len()),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}
