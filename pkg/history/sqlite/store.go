// Package sqlite is the embedded transcript store, suitable for single-node
// deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	_ "github.com/mattn/go-sqlite3"

	"github.com/soulrag/soulrag-go/pkg/history"
)

// Store implements history.Store on a SQLite file.
type Store struct {
	db   *sql.DB
	node *snowflake.Node
}

var _ history.Store = (*Store)(nil)

// Config configures a sqlite transcript store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewStore opens (creating if necessary) the transcript store at cfg.DBPath.
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

	node, err := snowflake.NewNode(1)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewStore: %w", err)
	}

	s := &Store{db: db, node: node}
	if err := s.initTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS chat_turns (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			ts DATETIME NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := `CREATE INDEX IF NOT EXISTS idx_chat_turns_user_ts ON chat_turns(user_id, ts, id)`
	if _, err := s.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// Append persists one turn and returns it with its assigned ID.
func (s *Store) Append(ctx context.Context, userID, role, content string) (*history.Turn, error) {
	if err := history.CheckRole(role); err != nil {
		return nil, err
	}

	turn := &history.Turn{
		ID:        s.node.Generate().Int64(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_turns (id, user_id, role, content, ts)
		VALUES (?, ?, ?, ?, ?)
	`, turn.ID, turn.UserID, turn.Role, turn.Content, turn.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("Append: %w", err)
	}
	return turn, nil
}

// Recent returns the most recent limit turns in chronological order.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]*history.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	// Take the newest limit rows, then flip back to chronological order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, content, ts FROM (
			SELECT id, user_id, role, content, ts
			FROM chat_turns
			WHERE user_id = ?
			ORDER BY ts DESC, id DESC
			LIMIT ?
		) ORDER BY ts ASC, id ASC
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTurns(rows, "Recent")
}

// List returns the user's turns per opts, in chronological order.
func (s *Store) List(ctx context.Context, userID string, opts history.ListOptions) ([]*history.Turn, error) {
	query := `
		SELECT id, user_id, role, content, ts
		FROM chat_turns
		WHERE user_id = ?
	`
	args := []interface{}{userID}
	if opts.Role != "" {
		query += " AND role = ?"
		args = append(args, opts.Role)
	}
	query += " ORDER BY ts ASC, id ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		// SQLite requires LIMIT when OFFSET is present.
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTurns(rows, "List")
}

// Count returns the number of the user's turns, optionally filtered by role.
func (s *Store) Count(ctx context.Context, userID, role string) (int64, error) {
	query := `SELECT COUNT(*) FROM chat_turns WHERE user_id = ?`
	args := []interface{}{userID}
	if role != "" {
		query += " AND role = ?"
		args = append(args, role)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

// DeleteAll removes every turn for the user and returns how many.
func (s *Store) DeleteAll(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_turns WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("DeleteAll: %w", err)
	}
	return result.RowsAffected()
}

// DeleteBefore removes the user's turns strictly older than the cutoff.
func (s *Store) DeleteBefore(ctx context.Context, userID string, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_turns WHERE user_id = ? AND ts < ?
	`, userID, before)
	if err != nil {
		return 0, fmt.Errorf("DeleteBefore: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanTurns(rows *sql.Rows, op string) ([]*history.Turn, error) {
	var turns []*history.Turn
	for rows.Next() {
		var turn history.Turn
		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.Role, &turn.Content, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		turns = append(turns, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return turns, nil
}
