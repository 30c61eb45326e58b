package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "focusdeck.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.Get(ctx, "focusdeck.v1.tasks")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "focusdeck.v1.tasks", `[]`))
	val, found, err := s.Get(ctx, "focusdeck.v1.tasks")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `[]`, val)

	require.NoError(t, s.Set(ctx, "focusdeck.v1.tasks", `[{"id":"a"}]`))
	val, _, err = s.Get(ctx, "focusdeck.v1.tasks")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, val)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting a missing key is fine.
	require.NoError(t, s.Delete(ctx, "k"))
}

func TestSetMulti(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetMulti(ctx, map[string]string{
		"focusdeck.v1.project-state":  `{"alpha":{"stage":"building"}}`,
		"focusdeck.v1.project-ledger": `{"alpha":{"last_updated":1}}`,
	}))

	val, found, err := s.Get(ctx, "focusdeck.v1.project-state")
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, val, "building")

	_, found, err = s.Get(ctx, "focusdeck.v1.project-ledger")
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, s.SetMulti(ctx, nil))
}

func TestLegacyStatusMigration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "focusdeck.db")
	ctx := context.Background()

	s, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, legacyStatusKey, `{"alpha":{"stage":"paused"}}`))
	require.NoError(t, s.Close())

	s, err = New(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	val, found, err := s.Get(ctx, stateKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, val, "paused")

	_, found, err = s.Get(ctx, legacyStatusKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLegacyMigrationSkippedWhenStateExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "focusdeck.db")
	ctx := context.Background()

	s, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, stateKey, `{"alpha":{"stage":"building"}}`))
	require.NoError(t, s.Set(ctx, legacyStatusKey, `{"alpha":{"stage":"paused"}}`))
	require.NoError(t, s.Close())

	s, err = New(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	val, _, err := s.Get(ctx, stateKey)
	require.NoError(t, err)
	assert.Contains(t, val, "building")
}
