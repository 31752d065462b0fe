package counselor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulrag/soulrag-go/pkg/history"
	historysqlite "github.com/soulrag/soulrag-go/pkg/history/sqlite"
	"github.com/soulrag/soulrag-go/pkg/index"
	indexsqlite "github.com/soulrag/soulrag-go/pkg/index/sqlite"
	"github.com/soulrag/soulrag-go/pkg/llm"
	soulsqlite "github.com/soulrag/soulrag-go/pkg/soul/sqlite"
)

// fakeLLM replays canned replies and records every prompt it sees.
type fakeLLM struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ ...llm.GenerateOption) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeLLM) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return f.Generate(ctx, last, opts...)
}

func (f *fakeLLM) Close() error { return nil }

// blockingLLM never answers; it waits for its context to be cancelled.
type blockingLLM struct{}

func (b *blockingLLM) Generate(ctx context.Context, _ string, _ ...llm.GenerateOption) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (b *blockingLLM) GenerateWithMessages(ctx context.Context, _ []llm.Message, _ ...llm.GenerateOption) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (b *blockingLLM) Close() error { return nil }

// hashEmbedder maps each text to a deterministic vector.
type hashEmbedder struct{ dims int }

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dims)
	for i, r := range text {
		vec[(i+int(r))%e.dims]++
	}
	return vec, nil
}

func (e *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *hashEmbedder) Dimensions() int { return e.dims }
func (e *hashEmbedder) Close() error    { return nil }

func newTestEngine(t *testing.T, provider llm.Provider) (*Engine, history.Store) {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	indexes, err := index.NewManager(filepath.Join(dir, "data"), &hashEmbedder{dims: 16}, indexsqlite.Open)
	require.NoError(t, err)
	t.Cleanup(func() { _ = indexes.Close() })

	historyStore, err := historysqlite.NewStore(ctx, &historysqlite.Config{
		DBPath: filepath.Join(dir, "history.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = historyStore.Close() })

	soulStore, err := soulsqlite.NewStore(ctx, &soulsqlite.Config{
		DBPath: filepath.Join(dir, "soul.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = soulStore.Close() })

	engine := NewEngine(provider, indexes, historyStore, soulStore, Config{
		TopK:          3,
		HistoryWindow: 6,
		ChunkSize:     200,
		ChunkOverlap:  20,
	})
	return engine, historyStore
}

func TestChat_FallbackWhenNoKnowledgeBase(t *testing.T) {
	provider := &fakeLLM{replies: []string{"should never be used"}}
	engine, _ := newTestEngine(t, provider)

	answer := engine.Chat(context.Background(), "u1", "how am I doing?")
	assert.Equal(t, FallbackAnswer, answer)
	assert.Empty(t, provider.prompts, "no model call may happen without an index")
}

func TestChat_FallbackWhenGenerationFails(t *testing.T) {
	provider := &fakeLLM{err: errors.New("model unavailable")}
	engine, _ := newTestEngine(t, provider)
	ctx := context.Background()

	_, err := engine.IngestDocument(ctx, "u1", "some journal notes")
	require.NoError(t, err)

	answer := engine.Chat(ctx, "u1", "how am I doing?")
	assert.Equal(t, FallbackAnswer, answer)
}

func TestChat_TimeoutProducesFallback(t *testing.T) {
	engine, _ := newTestEngine(t, &blockingLLM{})
	engine.cfg.ChatTimeout = 25 * time.Millisecond
	ctx := context.Background()

	_, err := engine.IngestDocument(ctx, "u1", "some journal notes")
	require.NoError(t, err)

	start := time.Now()
	answer := engine.Chat(ctx, "u1", "how am I doing?")
	assert.Equal(t, FallbackAnswer, answer)
	assert.Less(t, time.Since(start), 5*time.Second, "a stalled model call must be cut off")
}

func TestChat_EmptyModelOutputBecomesFixedReply(t *testing.T) {
	provider := &fakeLLM{replies: []string{""}}
	engine, _ := newTestEngine(t, provider)
	ctx := context.Background()

	_, err := engine.IngestDocument(ctx, "u1", "some journal notes")
	require.NoError(t, err)

	answer := engine.Chat(ctx, "u1", "how am I doing?")
	assert.Equal(t, EmptyAnswer, answer)
}

func TestChat_PromptCarriesPersonalityAndRetrievedContext(t *testing.T) {
	provider := &fakeLLM{replies: []string{"you mentioned trouble sleeping"}}
	engine, _ := newTestEngine(t, provider)
	ctx := context.Background()

	_, err := engine.IngestDocument(ctx, "u1", "I have been sleeping badly since the move")
	require.NoError(t, err)

	answer := engine.Chat(ctx, "u1", "what did I say about sleep?")
	assert.Equal(t, "you mentioned trouble sleeping", answer)

	// No history yet, so the only model call is the answer prompt.
	require.Len(t, provider.prompts, 1)
	prompt := provider.prompts[0]
	assert.True(t, strings.HasPrefix(prompt, "--- USER'S AI SOUL PERSONALITY ---"))
	assert.Contains(t, prompt, "Tone: gentle")
	assert.Contains(t, prompt, "=== Retrieved Context ===")
	assert.Contains(t, prompt, "I have been sleeping badly since the move")
	assert.Contains(t, prompt, "Question: what did I say about sleep?")
}

func TestChat_CondensesFollowUpWhenHistoryExists(t *testing.T) {
	provider := &fakeLLM{replies: []string{
		"What helps the user sleep better?",
		"warm tea before bed",
	}}
	engine, historyStore := newTestEngine(t, provider)
	ctx := context.Background()

	_, err := engine.IngestDocument(ctx, "u1", "warm tea helps me wind down at night")
	require.NoError(t, err)

	_, err = historyStore.Append(ctx, "u1", history.RoleUser, "I sleep badly")
	require.NoError(t, err)
	_, err = historyStore.Append(ctx, "u1", history.RoleAssistant, "Tell me more about your evenings")
	require.NoError(t, err)

	answer := engine.Chat(ctx, "u1", "what helps with that?")
	assert.Equal(t, "warm tea before bed", answer)

	require.Len(t, provider.prompts, 2)
	condense := provider.prompts[0]
	assert.Contains(t, condense, "=== Chat history ===")
	assert.Contains(t, condense, "Human: I sleep badly")
	assert.Contains(t, condense, "Assistant: Tell me more about your evenings")
	assert.Contains(t, condense, "Follow-up question: what helps with that?")

	// The answer prompt uses the condensed question, not the follow-up.
	assert.Contains(t, provider.prompts[1], "Question: What helps the user sleep better?")
}

func TestIngestDocument_ReturnsChunkCount(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeLLM{})
	ctx := context.Background()

	count, err := engine.IngestDocument(ctx, "u1", strings.Repeat("a", 500))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	empty, err := engine.IngestDocument(ctx, "u1", "")
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestIndexExchange_MakesExchangeRetrievable(t *testing.T) {
	provider := &fakeLLM{replies: []string{"echo"}}
	engine, _ := newTestEngine(t, provider)
	ctx := context.Background()

	err := engine.IndexExchange(ctx, "u1", "I started journaling", "That sounds like a healthy habit")
	require.NoError(t, err)

	engine.Chat(ctx, "u1", "what habit did I start?")
	require.NotEmpty(t, provider.prompts)
	prompt := provider.prompts[len(provider.prompts)-1]
	assert.Contains(t, prompt, "[USER @ ")
	assert.Contains(t, prompt, "I started journaling")
	assert.Contains(t, prompt, "[ASSISTANT @ ")
	assert.Contains(t, prompt, "That sounds like a healthy habit")
}
