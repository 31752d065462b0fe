// Command soulrag-server runs the counseling backend HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/soulrag/soulrag-go/pkg/api"
	"github.com/soulrag/soulrag-go/pkg/auth"
	authsqlite "github.com/soulrag/soulrag-go/pkg/auth/sqlite"
	"github.com/soulrag/soulrag-go/pkg/core"
	"github.com/soulrag/soulrag-go/pkg/counselor"
	"github.com/soulrag/soulrag-go/pkg/embedder"
	embedderopenai "github.com/soulrag/soulrag-go/pkg/embedder/openai"
	"github.com/soulrag/soulrag-go/pkg/history"
	historymysql "github.com/soulrag/soulrag-go/pkg/history/mysql"
	historypostgres "github.com/soulrag/soulrag-go/pkg/history/postgres"
	historysqlite "github.com/soulrag/soulrag-go/pkg/history/sqlite"
	"github.com/soulrag/soulrag-go/pkg/index"
	indexsqlite "github.com/soulrag/soulrag-go/pkg/index/sqlite"
	"github.com/soulrag/soulrag-go/pkg/llm"
	llmollama "github.com/soulrag/soulrag-go/pkg/llm/ollama"
	llmopenai "github.com/soulrag/soulrag-go/pkg/llm/openai"
	soulsqlite "github.com/soulrag/soulrag-go/pkg/soul/sqlite"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "soulrag",
	})

	if err := run(logger); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}

func run(logger *log.Logger) error {
	cfg, err := core.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	ctx := context.Background()

	llmProvider, err := newLLMProvider(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = llmProvider.Close() }()

	emb, err := newEmbedderProvider(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	historyStore, err := newHistoryStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = historyStore.Close() }()

	soulStore, err := soulsqlite.NewStore(ctx, &soulsqlite.Config{
		DBPath: filepath.Join(cfg.Retrieval.DataDir, "soul.db"),
	})
	if err != nil {
		return err
	}
	defer func() { _ = soulStore.Close() }()

	userStore, err := authsqlite.NewStore(ctx, &authsqlite.Config{DBPath: cfg.Auth.UsersDBPath})
	if err != nil {
		return err
	}
	defer func() { _ = userStore.Close() }()

	indexes, err := index.NewManager(cfg.Retrieval.DataDir, emb, indexsqlite.Open)
	if err != nil {
		return err
	}
	defer func() { _ = indexes.Close() }()

	engine := counselor.NewEngine(llmProvider, indexes, historyStore, soulStore, counselor.Config{
		TopK:          cfg.Retrieval.TopK,
		HistoryWindow: cfg.Retrieval.HistoryWindow,
		ChunkSize:     cfg.Retrieval.ChunkSize,
		ChunkOverlap:  cfg.Retrieval.ChunkOverlap,
		ChatTimeout:   cfg.Retrieval.ChatTimeout,
		Temperature:   cfg.LLM.Temperature,
		Logger:        logger,
	})

	server := api.New(api.Config{
		Addr:    cfg.Server.Addr,
		Auth:    auth.NewService(userStore, cfg.Auth.SecretKey, cfg.Auth.TokenTTL),
		Engine:  engine,
		History: historyStore,
		Souls:   soulStore,
		Logger:  logger,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLLMProvider(cfg *core.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return llmopenai.NewClient(&llmopenai.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
	case "ollama":
		return llmollama.NewClient(&llmollama.Config{
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", core.ErrInvalidConfig, cfg.LLM.Provider)
	}
}

func newEmbedderProvider(cfg *core.Config) (embedder.Provider, error) {
	switch cfg.Embedder.Provider {
	case "openai":
		return embedderopenai.NewClient(&embedderopenai.Config{
			APIKey:     cfg.Embedder.APIKey,
			Model:      cfg.Embedder.Model,
			BaseURL:    cfg.Embedder.BaseURL,
			Dimensions: cfg.Embedder.Dimensions,
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedder provider %q", core.ErrInvalidConfig, cfg.Embedder.Provider)
	}
}

func newHistoryStore(ctx context.Context, cfg *core.Config) (history.Store, error) {
	switch cfg.History.Provider {
	case "sqlite":
		dbPath := cfg.History.DSN
		if dbPath == "" {
			dbPath = filepath.Join(cfg.Retrieval.DataDir, "history.db")
		}
		return historysqlite.NewStore(ctx, &historysqlite.Config{DBPath: dbPath})
	case "postgres":
		return historypostgres.NewStore(ctx, &historypostgres.Config{DSN: cfg.History.DSN})
	case "mysql":
		return historymysql.NewStore(ctx, &historymysql.Config{DSN: cfg.History.DSN})
	default:
		return nil, fmt.Errorf("%w: unknown history provider %q", core.ErrInvalidConfig, cfg.History.Provider)
	}
}
