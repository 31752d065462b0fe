package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulrag/soulrag-go/pkg/soul"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), &Config{
		DBPath: filepath.Join(t.TempDir(), "soul.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_ResolveCreatesDefaultOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, soul.DefaultProfile("u1"), first)

	// Resolving again returns the persisted row, not a fresh default.
	second, err := store.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStore_UpdatePersistsAcrossResolve(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tone := "formal"
	reasoning := 10
	updated, err := store.Update(ctx, "u1", &soul.Update{Tone: &tone, ReasoningDepth: &reasoning})
	require.NoError(t, err)
	assert.Equal(t, "formal", updated.Tone)
	assert.Equal(t, 10, updated.ReasoningDepth)

	resolved, err := store.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, updated, resolved)
}

func TestStore_UpdateRejectsInvalidValues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tone := "hostile"
	_, err := store.Update(ctx, "u1", &soul.Update{Tone: &tone})
	require.Error(t, err)

	profile, err := store.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "gentle", profile.Tone)
}

func TestStore_ProfilesAreScopedPerUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tone := "casual"
	_, err := store.Update(ctx, "alice", &soul.Update{Tone: &tone})
	require.NoError(t, err)

	bob, err := store.Resolve(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "gentle", bob.Tone)
}
