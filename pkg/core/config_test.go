package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8000"},
		Auth: AuthConfig{
			SecretKey: "secret",
			TokenTTL:  30 * time.Minute,
		},
		LLM: LLMConfig{
			Provider: "openai",
			APIKey:   "sk-test",
			Model:    "gpt-4o-mini",
		},
		Embedder: EmbedderConfig{
			Provider:   "openai",
			APIKey:     "sk-test",
			Dimensions: 1536,
		},
		History: HistoryConfig{
			Provider: "sqlite",
			DSN:      "./test.db",
		},
		Retrieval: RetrievalConfig{
			DataDir:       "data",
			ChunkSize:     DefaultChunkSize,
			ChunkOverlap:  DefaultChunkOverlap,
			TopK:          DefaultTopK,
			HistoryWindow: DefaultHistoryWindow,
			ChatTimeout:   DefaultChatTimeout,
		},
	}
}

func TestConfig_ValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_ValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing llm provider", func(c *Config) { c.LLM.Provider = "" }},
		{"openai without key", func(c *Config) { c.LLM.APIKey = "" }},
		{"missing embedder provider", func(c *Config) { c.Embedder.Provider = "" }},
		{"missing history provider", func(c *Config) { c.History.Provider = "" }},
		{"zero chunk size", func(c *Config) { c.Retrieval.ChunkSize = 0 }},
		{"overlap equals size", func(c *Config) { c.Retrieval.ChunkOverlap = c.Retrieval.ChunkSize }},
		{"negative overlap", func(c *Config) { c.Retrieval.ChunkOverlap = -1 }},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"ADDR", "SECRET_KEY", "ACCESS_TOKEN_EXPIRE_MINUTES",
		"CHAT_OPEN_AI", "CHAT_OPEN_AI_TEMPERATURE",
		"RETRIEVER_MODEL_K", "MAX_CHAT_HISTORY", "DATA_DIR",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "CHAT_TIMEOUT_SECONDS",
		"HISTORY_PROVIDER",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "sqlite", cfg.History.Provider)
	assert.Equal(t, DefaultTopK, cfg.Retrieval.TopK)
	assert.Equal(t, DefaultHistoryWindow, cfg.Retrieval.HistoryWindow)
	assert.Equal(t, DefaultChatTimeout, cfg.Retrieval.ChatTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHAT_OPEN_AI", "gpt-4o")
	t.Setenv("RETRIEVER_MODEL_K", "12")
	t.Setenv("MAX_CHAT_HISTORY", "10")
	t.Setenv("CHAT_TIMEOUT_SECONDS", "5")
	t.Setenv("HISTORY_PROVIDER", "postgres")
	t.Setenv("HISTORY_DSN", "host=localhost dbname=soulrag")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 12, cfg.Retrieval.TopK)
	assert.Equal(t, 10, cfg.Retrieval.HistoryWindow)
	assert.Equal(t, 5*time.Second, cfg.Retrieval.ChatTimeout)
	assert.Equal(t, "postgres", cfg.History.Provider)
	assert.Equal(t, "host=localhost dbname=soulrag", cfg.History.DSN)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"llm": {"provider": "openai", "api_key": "sk-test"},
		"embedder": {"provider": "openai", "dimensions": 1536},
		"history": {"provider": "sqlite", "dsn": "./x.db"},
		"retrieval": {"chunk_size": 500, "chunk_overlap": 50, "top_k": 4}
	}`), 0o644))

	cfg, err := LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 500, cfg.Retrieval.ChunkSize)
	assert.NoError(t, cfg.Validate())

	_, err = LoadConfigFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
