// Package sqlite provides the on-disk vector store behind each user's
// semantic index.
//
// One SQLite file per user keeps user data fully isolated on disk. Vectors
// are stored as JSON strings in TEXT columns and similarity search runs
// in memory with cosine similarity, which is adequate for the per-user
// index sizes a counseling history produces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soulrag/soulrag-go/pkg/index"
)

// Store implements index.Store using a single SQLite file.
type Store struct {
	db *sql.DB
}

var _ index.Store = (*Store)(nil)

// Config configures a sqlite chunk store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// Open opens the store at dbPath. It satisfies index.StoreOpener, letting
// the index manager construct per-user stores without depending on this
// package.
func Open(ctx context.Context, dbPath string) (index.Store, error) {
	return NewStore(ctx, &Config{DBPath: dbPath})
}

// NewStore opens (creating if necessary) the chunk store at cfg.DBPath.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return nil, fmt.Errorf("NewStore: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewStore: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewStore: %w", err)
	}

	s := &Store{db: db}
	if err := s.initTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding TEXT NOT NULL,
			ts TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := `CREATE INDEX IF NOT EXISTS idx_chunks_user ON chunks(user_id)`
	if _, err := s.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Insert writes a batch of chunks in a single transaction.
//
// The batch is all-or-nothing: any failure rolls back every chunk, so a
// caller never observes a partially committed upsert.
func (s *Store) Insert(ctx context.Context, chunks []*index.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, user_id, content, embedding, ts)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, chunk := range chunks {
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("Insert: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.UserID, chunk.Text, string(embeddingJSON), chunk.Timestamp,
		); err != nil {
			return fmt.Errorf("Insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	return nil
}

// Search returns at most limit chunks ordered by decreasing cosine
// similarity to the given embedding.
func (s *Store) Search(ctx context.Context, embedding []float64, limit int) ([]*index.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, content, embedding, ts
		FROM chunks
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []*index.Chunk
	for rows.Next() {
		var chunk index.Chunk
		var embeddingStr string
		if err := rows.Scan(&chunk.ID, &chunk.UserID, &chunk.Text, &embeddingStr, &chunk.Timestamp); err != nil {
			return nil, fmt.Errorf("Search: %w", err)
		}
		if err := json.Unmarshal([]byte(embeddingStr), &chunk.Embedding); err != nil {
			return nil, fmt.Errorf("Search: parse embedding: %w", err)
		}

		chunk.Score = cosineSimilarity(embedding, chunk.Embedding)
		chunk.Embedding = nil
		chunks = append(chunks, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}

	return chunks, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched or zero-length vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
