package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir 切換到沒有 .env 的暫存目錄
func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.InDelta(t, 0.3, cfg.OpenAI.Temperature, 1e-9)
	assert.Equal(t, 8000, cfg.OpenAI.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, 1, cfg.Retrieval.TopK)
	assert.Equal(t, 100, cfg.Retrieval.SearchCap)
	assert.Equal(t, 1000, cfg.Retrieval.ExcerptChars)
	assert.Equal(t, 1, cfg.Planner.DefaultDays)
	assert.Equal(t, 1, cfg.Planner.DefaultPeople)
	assert.Equal(t, []string{"śniadanie", "obiad", "kolacja"}, cfg.Planner.DefaultMealTypes)
	assert.Equal(t, "PLN", cfg.Planner.Currency)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Second, cfg.DedupWindow)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	inTempDir(t)

	t.Setenv("OPENAI_API_KEY", "sk-test-1234567890")
	t.Setenv("OPENAI_CHAT_MODEL", "gpt-4o")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("APP_RETRIEVAL_TOP_K", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_MODE", "concise")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk-test-1234567890", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "concise", cfg.LogMode)
	assert.Equal(t, "logs", cfg.LogDir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	inTempDir(t)

	t.Setenv("APP_RETRIEVAL_TOP_K", "0")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_k")
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"empty", "", "****"},
		{"short", "abcd1234", "****"},
		{"long", "sk-abcdefghijklmnop", "sk-a...mnop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskAPIKey(tt.key))
		})
	}
}
