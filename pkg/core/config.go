// Package core provides configuration and shared error types for the SoulRAG
// counseling backend.
package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for the counseling backend.
//
// It is constructed once at process start (typically via LoadConfigFromEnv)
// and passed by reference into each component's constructor. No component
// reads ambient process state directly.
//
// Example:
//
//	config := &core.Config{
//	    LLM: core.LLMConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	        Model:    "gpt-4o-mini",
//	    },
//	    Embedder: core.EmbedderConfig{
//	        Provider:   "openai",
//	        APIKey:     "sk-...",
//	        Dimensions: 1536,
//	    },
//	    History: core.HistoryConfig{
//	        Provider: "sqlite",
//	        DSN:      "./soulrag.db",
//	    },
//	}
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server"`

	// Auth contains authentication configuration.
	Auth AuthConfig `json:"auth"`

	// LLM contains LLM provider configuration.
	LLM LLMConfig `json:"llm"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// History contains relational history store configuration.
	History HistoryConfig `json:"history"`

	// Retrieval contains chunking, retrieval, and session window settings.
	Retrieval RetrievalConfig `json:"retrieval"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (e.g., ":8000").
	Addr string `json:"addr"`
}

// AuthConfig contains configuration for user authentication.
type AuthConfig struct {
	// SecretKey signs and verifies JWT access tokens.
	SecretKey string `json:"secret_key"`

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration `json:"token_ttl"`

	// UsersDBPath is the path to the SQLite database holding user accounts
	// and soul settings.
	UsersDBPath string `json:"users_db_path"`
}

// LLMConfig contains configuration for the LLM provider.
//
// Supported providers: openai, ollama. The openai provider accepts a custom
// BaseURL, which also covers OpenAI-compatible endpoints such as DeepSeek
// and Qwen.
type LLMConfig struct {
	// Provider is the LLM provider name (openai, ollama).
	Provider string `json:"provider"`

	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key"`

	// Model is the model name to use (e.g., "gpt-4o-mini").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, provider default if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Temperature is the sampling temperature for generation.
	Temperature float64 `json:"temperature"`
}

// EmbedderConfig contains configuration for the embedding provider.
type EmbedderConfig struct {
	// Provider is the embedding provider name (openai).
	Provider string `json:"provider"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key"`

	// Model is the embedding model name (e.g., "text-embedding-3-small").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, provider default if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors (e.g., 1536).
	Dimensions int `json:"dimensions,omitempty"`
}

// HistoryConfig contains configuration for the relational chat history store.
//
// Supported providers: sqlite, postgres, mysql.
type HistoryConfig struct {
	// Provider is the history store provider name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// DSN is the data source name. For sqlite this is a file path; for
	// postgres and mysql it is the driver connection string.
	DSN string `json:"dsn"`
}

// RetrievalConfig contains chunking, retrieval, and session window settings.
type RetrievalConfig struct {
	// DataDir is the root directory under which each user's semantic index
	// lives. One subdirectory per user identity.
	DataDir string `json:"data_dir"`

	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `json:"chunk_size"`

	// ChunkOverlap is the number of characters shared by adjacent chunks.
	// Must be smaller than ChunkSize.
	ChunkOverlap int `json:"chunk_overlap"`

	// TopK is the number of chunks retrieved per question.
	TopK int `json:"top_k"`

	// HistoryWindow is the number of recent turns included as chat history.
	HistoryWindow int `json:"history_window"`

	// ChatTimeout bounds each LLM call during a chat turn. A timeout maps to
	// the user-visible fallback message, never to a hang.
	ChatTimeout time.Duration `json:"chat_timeout"`
}

// Default retrieval settings.
const (
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 100
	DefaultTopK          = 6
	DefaultHistoryWindow = 6
	DefaultChatTimeout   = 60 * time.Second
)

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for a .env file (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - ADDR, SECRET_KEY, ACCESS_TOKEN_EXPIRE_MINUTES, USERS_DB_PATH
//   - LLM_PROVIDER, OPENAI_API_KEY, CHAT_OPEN_AI (model name),
//     CHAT_OPEN_AI_TEMPERATURE, LLM_BASE_URL
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL,
//     EMBEDDING_BASE_URL, EMBEDDING_MODEL_DIMS
//   - HISTORY_PROVIDER (sqlite, postgres, mysql), HISTORY_DSN
//   - DATA_DIR, CHUNK_SIZE, CHUNK_OVERLAP, RETRIEVER_MODEL_K,
//     MAX_CHAT_HISTORY, CHAT_TIMEOUT_SECONDS
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	tokenMinutes, _ := strconv.Atoi(getEnvOrDefault("ACCESS_TOKEN_EXPIRE_MINUTES", "30"))
	temperature, _ := strconv.ParseFloat(getEnvOrDefault("CHAT_OPEN_AI_TEMPERATURE", "0.3"), 64)
	dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_MODEL_DIMS", "1536"))
	chunkSize, _ := strconv.Atoi(getEnvOrDefault("CHUNK_SIZE", strconv.Itoa(DefaultChunkSize)))
	chunkOverlap, _ := strconv.Atoi(getEnvOrDefault("CHUNK_OVERLAP", strconv.Itoa(DefaultChunkOverlap)))
	topK, _ := strconv.Atoi(getEnvOrDefault("RETRIEVER_MODEL_K", strconv.Itoa(DefaultTopK)))
	window, _ := strconv.Atoi(getEnvOrDefault("MAX_CHAT_HISTORY", strconv.Itoa(DefaultHistoryWindow)))
	timeoutSeconds, _ := strconv.Atoi(getEnvOrDefault("CHAT_TIMEOUT_SECONDS", "60"))

	apiKey := os.Getenv("OPENAI_API_KEY")
	usersDBPath := getEnvOrDefault("USERS_DB_PATH", "./users.db")

	config := &Config{
		Server: ServerConfig{
			Addr: getEnvOrDefault("ADDR", ":8000"),
		},
		Auth: AuthConfig{
			SecretKey:   getEnvOrDefault("SECRET_KEY", "your_secret_key"),
			TokenTTL:    time.Duration(tokenMinutes) * time.Minute,
			UsersDBPath: usersDBPath,
		},
		LLM: LLMConfig{
			Provider:    getEnvOrDefault("LLM_PROVIDER", "openai"),
			APIKey:      apiKey,
			Model:       getEnvOrDefault("CHAT_OPEN_AI", "gpt-4o-mini"),
			BaseURL:     os.Getenv("LLM_BASE_URL"),
			Temperature: temperature,
		},
		Embedder: EmbedderConfig{
			Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", "openai"),
			APIKey:     getEnvOrDefault("EMBEDDING_API_KEY", apiKey),
			Model:      getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: dims,
		},
		History: HistoryConfig{
			Provider: getEnvOrDefault("HISTORY_PROVIDER", "sqlite"),
			DSN:      getEnvOrDefault("HISTORY_DSN", usersDBPath),
		},
		Retrieval: RetrievalConfig{
			DataDir:       getEnvOrDefault("DATA_DIR", "data"),
			ChunkSize:     chunkSize,
			ChunkOverlap:  chunkOverlap,
			TopK:          topK,
			HistoryWindow: window,
			ChatTimeout:   time.Duration(timeoutSeconds) * time.Second,
		},
	}

	return config, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewSoulError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewSoulError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Missing generation credentials and invalid chunk parameters are
// configuration errors: fatal at startup, never retried.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return NewSoulError("Validate", fmt.Errorf("%w: llm provider not set", ErrInvalidConfig))
	}
	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		return NewSoulError("Validate", fmt.Errorf("%w: OpenAI API key not found", ErrInvalidConfig))
	}
	if c.Embedder.Provider == "" {
		return NewSoulError("Validate", fmt.Errorf("%w: embedder provider not set", ErrInvalidConfig))
	}
	if c.History.Provider == "" {
		return NewSoulError("Validate", fmt.Errorf("%w: history provider not set", ErrInvalidConfig))
	}
	if c.Retrieval.ChunkSize <= 0 || c.Retrieval.ChunkOverlap < 0 ||
		c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return NewSoulError("Validate", fmt.Errorf("%w: chunk overlap must be non-negative and smaller than chunk size", ErrInvalidConfig))
	}
	if c.Retrieval.TopK <= 0 {
		return NewSoulError("Validate", fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig))
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
