// Package sqlite persists personality profiles in a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soulrag/soulrag-go/pkg/soul"
)

// Store implements soul.Store on a SQLite file.
type Store struct {
	db *sql.DB
}

var _ soul.Store = (*Store)(nil)

// Config configures a sqlite profile store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewStore opens (creating if necessary) the profile store at cfg.DBPath.
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
		CREATE TABLE IF NOT EXISTS soul_settings (
			user_id TEXT PRIMARY KEY,
			tone TEXT NOT NULL,
			empathy_level INTEGER NOT NULL,
			reasoning_depth INTEGER NOT NULL,
			creativity_level INTEGER NOT NULL,
			memory_aggressiveness INTEGER NOT NULL,
			boundaries TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// Resolve returns the user's profile, creating the default one if absent.
func (s *Store) Resolve(ctx context.Context, userID string) (*soul.Profile, error) {
	profile, err := s.get(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Resolve: %w", err)
	}

	profile = soul.DefaultProfile(userID)
	if err := s.put(ctx, profile); err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}
	return profile, nil
}

// Update applies a partial change to the user's profile, creating it with
// defaults first if absent.
func (s *Store) Update(ctx context.Context, userID string, update *soul.Update) (*soul.Profile, error) {
	profile, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := profile.Apply(update); err != nil {
		return nil, err
	}
	if err := s.put(ctx, profile); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	return profile, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) get(ctx context.Context, userID string) (*soul.Profile, error) {
	var p soul.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, tone, empathy_level, reasoning_depth, creativity_level, memory_aggressiveness, boundaries
		FROM soul_settings
		WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.Tone, &p.EmpathyLevel, &p.ReasoningDepth,
		&p.CreativityLevel, &p.MemoryAggressiveness, &p.Boundaries)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) put(ctx context.Context, p *soul.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO soul_settings (user_id, tone, empathy_level, reasoning_depth, creativity_level, memory_aggressiveness, boundaries)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			tone = excluded.tone,
			empathy_level = excluded.empathy_level,
			reasoning_depth = excluded.reasoning_depth,
			creativity_level = excluded.creativity_level,
			memory_aggressiveness = excluded.memory_aggressiveness,
			boundaries = excluded.boundaries
	`, p.UserID, p.Tone, p.EmpathyLevel, p.ReasoningDepth,
		p.CreativityLevel, p.MemoryAggressiveness, p.Boundaries)
	return err
}
