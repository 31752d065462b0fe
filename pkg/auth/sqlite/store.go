// Package sqlite persists user accounts in a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwmarrin/snowflake"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/soulrag/soulrag-go/pkg/auth"
	"github.com/soulrag/soulrag-go/pkg/core"
)

// Store implements auth.UserStore on a SQLite file.
type Store struct {
	db   *sql.DB
	node *snowflake.Node
}

var _ auth.UserStore = (*Store)(nil)

// Config configures a sqlite user store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewStore opens (creating if necessary) the user store at cfg.DBPath.
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
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// Create persists a new account. A duplicate email fails with
// core.ErrEmailTaken.
func (s *Store) Create(ctx context.Context, username, email, passwordHash string) (*auth.User, error) {
	user := &auth.User{
		ID:           s.node.Generate().Int64(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, user.ID, user.Username, user.Email, user.PasswordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, core.NewSoulError("Create", core.ErrEmailTaken)
		}
		return nil, fmt.Errorf("Create: %w", err)
	}
	return user, nil
}

// ByEmail returns the account with the given email, or core.ErrNotFound.
func (s *Store) ByEmail(ctx context.Context, email string) (*auth.User, error) {
	var user auth.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash
		FROM users
		WHERE email = ?
	`, email).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewSoulError("ByEmail", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ByEmail: %w", err)
	}
	return &user, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
