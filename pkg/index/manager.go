package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bwmarrin/snowflake"

	"github.com/soulrag/soulrag-go/pkg/core"
	"github.com/soulrag/soulrag-go/pkg/embedder"
)

// indexFileName is the on-disk store inside each user directory.
const indexFileName = "index.db"

// StoreOpener opens the vector store backing one user's index at dbPath.
// Backends provide one (see index/sqlite.Open); the manager stays unaware
// of which backend it is running on.
type StoreOpener func(ctx context.Context, dbPath string) (Store, error)

// Manager owns the lifecycle of per-user semantic indexes.
//
// An index is absent until the first write for that user; once created it is
// loaded on every subsequent session. Open handles are cached per user and
// never explicitly closed during normal operation (the process has exclusive
// access to a given user's directory at any instant).
type Manager struct {
	dataDir  string
	embedder embedder.Provider
	opener   StoreOpener
	node     *snowflake.Node

	mu   sync.Mutex
	open map[string]*Index
}

// NewManager creates an index manager rooted at dataDir, opening per-user
// stores through the given opener.
func NewManager(dataDir string, emb embedder.Provider, opener StoreOpener) (*Manager, error) {
	if opener == nil {
		return nil, core.NewSoulError("NewManager", core.ErrInvalidConfig)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, core.NewSoulError("NewManager", err)
	}

	return &Manager{
		dataDir:  dataDir,
		embedder: emb,
		opener:   opener,
		node:     node,
		open:     make(map[string]*Index),
	}, nil
}

// Dir resolves the directory holding the given user's index, creating it if
// missing. Idempotent: an existing directory is not an error.
func (m *Manager) Dir(userID string) (string, error) {
	dir := filepath.Join(m.dataDir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", core.NewSoulError("Dir", err)
	}
	return dir, nil
}

// Load returns an open handle to the user's index if one has been persisted.
//
// Absence is an expected state for new users, reported via found=false
// rather than an error; the caller decides whether absence is fatal for its
// request.
func (m *Manager) Load(ctx context.Context, userID string) (*Index, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ix, ok := m.open[userID]; ok {
		return ix, true, nil
	}

	dir, err := m.Dir(userID)
	if err != nil {
		return nil, false, err
	}

	dbPath := filepath.Join(dir, indexFileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, core.NewSoulError("Load", err)
	}

	ix, err := m.openLocked(ctx, userID, dbPath)
	if err != nil {
		return nil, false, err
	}
	return ix, true, nil
}

// Create returns an open handle to the user's index, creating its backing
// storage if it does not yet exist.
func (m *Manager) Create(ctx context.Context, userID string) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ix, ok := m.open[userID]; ok {
		return ix, nil
	}

	dir, err := m.Dir(userID)
	if err != nil {
		return nil, err
	}

	return m.openLocked(ctx, userID, filepath.Join(dir, indexFileName))
}

// openLocked opens the backing store and caches the handle. Caller holds m.mu.
func (m *Manager) openLocked(ctx context.Context, userID, dbPath string) (*Index, error) {
	store, err := m.opener(ctx, dbPath)
	if err != nil {
		return nil, core.NewSoulError("open", err)
	}

	ix := &Index{
		userID:   userID,
		store:    store,
		embedder: m.embedder,
		node:     m.node,
	}
	m.open[userID] = ix
	return ix, nil
}

// Close closes all open index handles. Intended for process shutdown and
// tests.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for userID, ix := range m.open {
		if err := ix.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.open, userID)
	}
	return firstErr
}
