// Package counselor orchestrates the retrieval-augmented counseling
// conversation.
//
// The pipeline for one chat turn: resolve the user's personality profile,
// load their semantic index, pull the recent transcript window, condense the
// follow-up question into a standalone one, retrieve the most similar
// chunks, and generate the answer with the personality preamble. Any
// internal failure degrades to a fixed fallback message so the user always
// gets a reply.
package counselor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/soulrag/soulrag-go/pkg/chunker"
	"github.com/soulrag/soulrag-go/pkg/core"
	"github.com/soulrag/soulrag-go/pkg/history"
	"github.com/soulrag/soulrag-go/pkg/index"
	"github.com/soulrag/soulrag-go/pkg/llm"
	"github.com/soulrag/soulrag-go/pkg/soul"
)

// User-visible fixed replies. FallbackAnswer covers every internal failure;
// EmptyAnswer covers a model that returned nothing.
const (
	FallbackAnswer = "Sorry, something went wrong while generating a response."
	EmptyAnswer    = "I couldn't generate a response."
)

// Config tunes the conversation pipeline.
type Config struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// HistoryWindow is the number of recent turns fed to condensation.
	HistoryWindow int

	// ChunkSize and ChunkOverlap control document ingestion, in runes.
	ChunkSize    int
	ChunkOverlap int

	// ChatTimeout bounds each model call. Zero means no bound.
	ChatTimeout time.Duration

	// Temperature overrides the provider's sampling temperature when
	// positive.
	Temperature float64

	// Logger receives pipeline diagnostics. Defaults to log.Default().
	Logger *log.Logger
}

// Engine runs the counseling pipeline for all users.
//
// Operations for the same user are serialized with a per-user mutex, so a
// chat turn never interleaves with an ingestion for that user. Different
// users proceed concurrently.
type Engine struct {
	llm     llm.Provider
	indexes *index.Manager
	history history.Store
	souls   soul.Store
	cfg     Config
	logger  *log.Logger

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewEngine assembles a conversation engine from its collaborators.
func NewEngine(provider llm.Provider, indexes *index.Manager, historyStore history.Store, soulStore soul.Store, cfg Config) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = core.DefaultTopK
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = core.DefaultHistoryWindow
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = core.DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = core.DefaultChunkOverlap
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		llm:     provider,
		indexes: indexes,
		history: historyStore,
		souls:   soulStore,
		cfg:     cfg,
		logger:  logger,
		users:   make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing operations for one user.
func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	mu, ok := e.users[userID]
	if !ok {
		mu = &sync.Mutex{}
		e.users[userID] = mu
	}
	return mu
}

// Chat answers one user question through the full pipeline.
//
// It never returns an error to the caller: any internal failure is logged
// and replaced with FallbackAnswer, and an empty model reply becomes
// EmptyAnswer.
func (e *Engine) Chat(ctx context.Context, userID, question string) string {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	answer, err := e.chat(ctx, userID, question)
	if err != nil {
		e.logger.Error("chat pipeline failed", "user_id", userID, "err", err)
		return FallbackAnswer
	}
	return answer
}

func (e *Engine) chat(ctx context.Context, userID, question string) (string, error) {
	profile, err := e.souls.Resolve(ctx, userID)
	if err != nil {
		return "", core.NewSoulError("Chat", err)
	}

	ix, found, err := e.indexes.Load(ctx, userID)
	if err != nil {
		return "", core.NewSoulError("Chat", err)
	}
	if !found {
		return "", core.NewSoulError("Chat", fmt.Errorf("%w: user %s", core.ErrNoKnowledgeBase, userID))
	}

	turns, err := e.history.Recent(ctx, userID, e.cfg.HistoryWindow)
	if err != nil {
		return "", core.NewSoulError("Chat", err)
	}

	standalone := question
	if len(turns) > 0 {
		standalone, err = e.condense(ctx, turns, question)
		if err != nil {
			return "", core.NewSoulError("Chat", err)
		}
	}

	chunks, err := ix.Query(ctx, standalone, e.cfg.TopK)
	if err != nil {
		return "", core.NewSoulError("Chat", err)
	}

	e.logger.Info("generating response", "user_id", userID, "retrieved", len(chunks))

	answer, err := e.generate(ctx, answerPrompt(profile.Render(), chunks, standalone))
	if err != nil {
		return "", core.NewSoulError("Chat", fmt.Errorf("%w: %v", core.ErrGenerationFailed, err))
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return EmptyAnswer, nil
	}
	return answer, nil
}

// condense rewrites a follow-up question into a standalone one using the
// recent transcript window.
func (e *Engine) condense(ctx context.Context, turns []*history.Turn, question string) (string, error) {
	out, err := e.generate(ctx, condensePrompt(turns, question))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		// A silent model must not erase the question.
		return question, nil
	}
	return out, nil
}

// generate runs one model call under the configured timeout.
func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	if e.cfg.ChatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ChatTimeout)
		defer cancel()
	}
	var opts []llm.GenerateOption
	if e.cfg.Temperature > 0 {
		opts = append(opts, llm.WithTemperature(e.cfg.Temperature))
	}
	return e.llm.Generate(ctx, prompt, opts...)
}

// IngestDocument chunks text and writes it into the user's index, creating
// the index if this is the user's first document. Returns the number of
// chunks written.
func (e *Engine) IngestDocument(ctx context.Context, userID, text string) (int, error) {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	chunks, err := chunker.Split(text, e.cfg.ChunkSize, e.cfg.ChunkOverlap)
	if err != nil {
		return 0, core.NewSoulError("IngestDocument", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	ix, err := e.indexes.Create(ctx, userID)
	if err != nil {
		return 0, core.NewSoulError("IngestDocument", err)
	}

	if err := ix.Upsert(ctx, chunks, time.Now().UTC().Format("2006-01-02")); err != nil {
		return 0, core.NewSoulError("IngestDocument", err)
	}

	e.logger.Info("document ingested", "user_id", userID, "chunks", len(chunks))
	return len(chunks), nil
}

// IndexExchange writes one completed question/answer exchange into the
// user's index so later sessions can retrieve it.
func (e *Engine) IndexExchange(ctx context.Context, userID, userText, answer string) error {
	ts := time.Now().UTC().Format(time.RFC3339)
	text := fmt.Sprintf("[USER @ %s]\n%s\n\n[ASSISTANT @ %s]\n%s", ts, userText, ts, answer)
	_, err := e.IngestDocument(ctx, userID, text)
	return err
}

// Close releases the engine's generation backend.
func (e *Engine) Close() error {
	return e.llm.Close()
}
