package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"promo-meal-planner/internal/api"
	"promo-meal-planner/internal/api/middleware"
	"promo-meal-planner/internal/core/ai/cache"
	"promo-meal-planner/internal/core/ai/openai"
	"promo-meal-planner/internal/core/ai/provider"
	"promo-meal-planner/internal/core/ai/queue"
	"promo-meal-planner/internal/core/ai/service"
	"promo-meal-planner/internal/core/catalog"
	"promo-meal-planner/internal/core/planner"
	"promo-meal-planner/internal/core/recipe"
	"promo-meal-planner/internal/core/translation"
	"promo-meal-planner/internal/infrastructure/config"
	"promo-meal-planner/internal/infrastructure/metrics"
	"promo-meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(common.LogOptions{
		Level:   cfg.LogLevel,
		Dir:     cfg.LogDir,
		Mode:    cfg.LogMode,
		Service: cfg.App.Name,
	}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("chat_model", cfg.OpenAI.ChatModel),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("products_file", cfg.Data.ProductsFile),
		zap.String("recipes_file", cfg.Data.RecipesFile),
	)

	collector := metrics.New()

	// 快取：記憶體層在前，Redis 層在後
	cacheManager := cache.NewManager(cfg.Cache)
	defer cacheManager.Close()

	var redisCache *cache.Service
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err = cache.NewService(ctx, cfg.Redis)
		cancel()
		if err != nil {
			// Redis 不可用時只用記憶體快取
			common.LogWarn("Redis cache unavailable", zap.Error(err))
			redisCache = nil
		}
	}
	defer redisCache.Close()

	client := openai.NewClient(provider.Config{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		ChatModel:         cfg.OpenAI.ChatModel,
		EmbeddingModel:    cfg.OpenAI.EmbeddingModel,
		Timeout:           cfg.OpenAI.Timeout,
		MaxRetries:        2,
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		Burst:             cfg.OpenAI.Burst,
	})

	aiService, err := service.NewService(client, cache.NewLayered(cacheManager, redisCache), collector)
	if err != nil {
		common.LogFatal("Failed to create AI service", zap.Error(err))
	}

	// 資料檔
	products, err := catalog.LoadFile(cfg.Data.ProductsFile)
	if err != nil {
		common.LogFatal("Failed to load product catalog", zap.Error(err))
	}
	index, err := recipe.LoadIndex(cfg.Data.RecipesFile)
	if err != nil {
		common.LogFatal("Failed to load recipe index", zap.Error(err))
	}

	translator, err := translation.NewTranslator(aiService, cfg.Planner.TargetLanguage, collector)
	if err != nil {
		common.LogFatal("Failed to create translator", zap.Error(err))
	}
	rewriter, err := planner.NewRewriter(aiService, collector)
	if err != nil {
		common.LogFatal("Failed to create query rewriter", zap.Error(err))
	}
	engine, err := recipe.NewEngine(client, index, cfg.Retrieval, collector)
	if err != nil {
		common.LogFatal("Failed to create retrieval engine", zap.Error(err))
	}
	generator, err := planner.NewGenerator(aiService, planner.GeneratorConfig{
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		DebugDump:   cfg.Data.DebugDump,
		DebugDir:    cfg.Data.DebugDir,
	})
	if err != nil {
		common.LogFatal("Failed to create plan generator", zap.Error(err))
	}

	pipeline, err := planner.NewPipeline(planner.Deps{
		Catalog:    products,
		Translator: translator,
		Rewriter:   rewriter,
		Retriever:  engine,
		Assembler:  planner.NewAssembler(cfg.Retrieval.ExcerptChars, cfg.Planner.Currency),
		Generator:  generator,
		Metrics:    collector,
		IncludeRaw: cfg.App.Debug,
	}, cfg.Planner, cfg.Retrieval)
	if err != nil {
		common.LogFatal("Failed to create planning pipeline", zap.Error(err))
	}

	queueManager := queue.NewManager(cfg.Queue, collector)
	queueManager.Start()
	defer queueManager.Close()

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	defer dedup.Close()

	router := api.SetupRouter(cfg, api.Services{
		Pipeline:     pipeline,
		Queue:        queueManager,
		Catalog:      products,
		Index:        index,
		Retriever:    engine,
		Translator:   translator,
		Rewriter:     rewriter,
		Metrics:      collector,
		Cache:        cacheManager,
		Deduplicator: dedup,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中斷信號或啟動失敗
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		common.LogError("Failed to start server", zap.Error(err))
		return
	}

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
