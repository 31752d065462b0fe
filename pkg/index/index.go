// Package index manages per-user semantic indexes.
//
// Each user's index is a durable on-disk store of embedded text chunks,
// living in its own directory under the configured data root. The Manager is
// the single source of truth for where a user's data lives: both the chat
// path and the document ingestion path resolve directories through it.
package index

import (
	"context"

	"github.com/bwmarrin/snowflake"

	"github.com/soulrag/soulrag-go/pkg/embedder"
)

// Chunk is one indexed text fragment with its uniform metadata.
type Chunk struct {
	// ID is a unique, insertion-ordered identifier.
	ID int64 `json:"id"`

	// UserID is the owning user identity.
	UserID string `json:"user_id"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Embedding is the chunk's vector. Empty on query results.
	Embedding []float64 `json:"-"`

	// Timestamp is the indexing date (ISO 8601 date).
	Timestamp string `json:"timestamp"`

	// Score is the similarity to the query; set only on query results.
	Score float64 `json:"score,omitempty"`
}

// Store is the vector storage backing one user's index.
//
// Insert must be atomic over the whole batch: on failure no chunk from the
// batch is committed.
type Store interface {
	Insert(ctx context.Context, chunks []*Chunk) error
	Search(ctx context.Context, embedding []float64, limit int) ([]*Chunk, error)
	Close() error
}

// Index is an open handle to one user's semantic index.
type Index struct {
	userID   string
	store    Store
	embedder embedder.Provider
	node     *snowflake.Node
}

// UserID returns the identity this index belongs to.
func (ix *Index) UserID() string {
	return ix.userID
}

// Upsert embeds the given chunk texts and writes them to the index with
// uniform {timestamp, user_id} metadata.
//
// The write is all-or-nothing: if embedding or storage fails, no chunk from
// the batch is committed.
func (ix *Index) Upsert(ctx context.Context, texts []string, timestamp string) error {
	if len(texts) == 0 {
		return nil
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	chunks := make([]*Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &Chunk{
			ID:        ix.node.Generate().Int64(),
			UserID:    ix.userID,
			Text:      text,
			Embedding: embeddings[i],
			Timestamp: timestamp,
		}
	}

	return ix.store.Insert(ctx, chunks)
}

// Query embeds the query text and returns at most k chunks ordered by
// decreasing similarity.
func (ix *Index) Query(ctx context.Context, query string, k int) ([]*Chunk, error) {
	queryEmbedding, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return ix.store.Search(ctx, queryEmbedding, k)
}
