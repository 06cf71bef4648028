package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	OpenAI      OpenAIConfig    `mapstructure:"openai"`
	Data        DataConfig      `mapstructure:"data"`
	Retrieval   RetrievalConfig `mapstructure:"retrieval"`
	Planner     PlannerConfig   `mapstructure:"planner"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Queue       QueueConfig     `mapstructure:"queue"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
	LogDir      string          `mapstructure:"log_dir"`
	LogMode     string          `mapstructure:"log_mode"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// OpenAIConfig OpenAI 相容 API 配置
type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	ChatModel         string        `mapstructure:"chat_model"`
	EmbeddingModel    string        `mapstructure:"embedding_model"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// DataConfig 資料檔案設定
type DataConfig struct {
	ProductsFile string `mapstructure:"products_file"`
	RecipesFile  string `mapstructure:"recipes_file"`
	DebugDir     string `mapstructure:"debug_dir"`
	DebugDump    bool   `mapstructure:"debug_dump"`
}

// RetrievalConfig 食譜檢索設定
type RetrievalConfig struct {
	TopK         int `mapstructure:"top_k"`
	SearchCap    int `mapstructure:"search_cap"`
	ExcerptChars int `mapstructure:"excerpt_chars"`
}

// PlannerConfig 餐單規劃設定
type PlannerConfig struct {
	DefaultDays      int      `mapstructure:"default_days"`
	DefaultPeople    int      `mapstructure:"default_people"`
	DefaultMealTypes []string `mapstructure:"default_meal_types"`
	TargetLanguage   string   `mapstructure:"target_language"`
	StrictValidation bool     `mapstructure:"strict_validation"`
	Currency         string   `mapstructure:"currency"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 翻譯快取設定
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// QueueConfig 請求隊列設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（可選）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("openai.chat_model", "OPENAI_CHAT_MODEL")
	v.BindEnv("openai.embedding_model", "OPENAI_EMBEDDING_MODEL")
	v.BindEnv("data.products_file", "PRODUCTS_FILE")
	v.BindEnv("data.recipes_file", "RECIPES_FILE")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("dedup_window", "DEDUP_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("log_dir", "LOG_DIR")
	v.BindEnv("log_mode", "LOG_MODE")

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration", "openai_api_key:", maskAPIKey(v.GetString("openai.api_key")), "chat_model:", v.GetString("openai.chat_model"))

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	return maskAPIKey(key)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "promo-meal-planner")

	// 伺服器設定
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "150s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	// OpenAI 設定
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.max_tokens", 8000)
	v.SetDefault("openai.timeout", "60s")
	v.SetDefault("openai.requests_per_second", 5.0)
	v.SetDefault("openai.burst", 10)

	// 資料設定
	v.SetDefault("data.products_file", "shared_data/biedronka_offers_enhanced.json")
	v.SetDefault("data.recipes_file", "shared_data/recipe_index.json")
	v.SetDefault("data.debug_dir", "shared_data")
	v.SetDefault("data.debug_dump", false)

	// 檢索設定
	v.SetDefault("retrieval.top_k", 1)
	v.SetDefault("retrieval.search_cap", 100)
	v.SetDefault("retrieval.excerpt_chars", 1000)

	// 規劃設定
	v.SetDefault("planner.default_days", 1)
	v.SetDefault("planner.default_people", 1)
	v.SetDefault("planner.default_meal_types", []string{"śniadanie", "obiad", "kolacja"})
	v.SetDefault("planner.target_language", "English")
	v.SetDefault("planner.strict_validation", true)
	v.SetDefault("planner.currency", "PLN")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 5000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Redis 設定
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "168h")
	v.SetDefault("redis.key_prefix", "mealplanner")

	// 隊列設定
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.max_size", 32)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_mode", "")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證模型設定
	if config.OpenAI.BaseURL == "" {
		return fmt.Errorf("openai base url is required")
	}
	if config.OpenAI.Timeout <= 0 {
		return fmt.Errorf("invalid openai timeout")
	}

	// 驗證檢索設定
	if config.Retrieval.TopK <= 0 {
		return fmt.Errorf("invalid retrieval top_k")
	}
	if config.Retrieval.SearchCap <= 0 {
		return fmt.Errorf("invalid retrieval search cap")
	}
	if config.Retrieval.ExcerptChars <= 0 {
		return fmt.Errorf("invalid retrieval excerpt size")
	}

	// 驗證規劃預設值
	if config.Planner.DefaultDays <= 0 || config.Planner.DefaultPeople <= 0 {
		return fmt.Errorf("invalid planner defaults")
	}
	if len(config.Planner.DefaultMealTypes) == 0 {
		return fmt.Errorf("planner default meal types are required")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Redis.Enabled && config.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}

	// 驗證隊列設定
	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	return nil
}
