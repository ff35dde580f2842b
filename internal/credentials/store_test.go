package credentials

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.keystore")
	store, err := NewFileStore(path, "unit-test-secret")
	require.NoError(t, err)

	_, err = store.Get("svc", "acct")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set("svc", "acct", "value-1"))

	got, err := store.Get("svc", "acct")
	require.NoError(t, err)
	assert.Equal(t, "value-1", got)

	// Set replaces the prior value
	require.NoError(t, store.Set("svc", "acct", "value-2"))
	got, err = store.Get("svc", "acct")
	require.NoError(t, err)
	assert.Equal(t, "value-2", got)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.keystore")

	store, err := NewFileStore(path, "unit-test-secret")
	require.NoError(t, err)
	require.NoError(t, store.Set("svc", "acct", "persisted"))

	reopened, err := NewFileStore(path, "unit-test-secret")
	require.NoError(t, err)

	got, err := reopened.Get("svc", "acct")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}

func TestFileStoreWrongSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.keystore")

	store, err := NewFileStore(path, "right-secret")
	require.NoError(t, err)
	require.NoError(t, store.Set("svc", "acct", "secret-value"))

	wrong, err := NewFileStore(path, "wrong-secret")
	require.NoError(t, err)

	_, err = wrong.Get("svc", "acct")
	assert.Error(t, err)
}

func TestFileStoreDeleteAbsentIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.keystore")
	store, err := NewFileStore(path, "unit-test-secret")
	require.NoError(t, err)

	assert.NoError(t, store.Delete("svc", "missing"))
}

func TestFileStoreRequiresSecret(t *testing.T) {
	_, err := NewFileStore("x.keystore", "")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()

	_, err := store.Get("svc", "acct")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set("svc", "acct", "v"))
	got, err := store.Get("svc", "acct")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, store.Delete("svc", "acct"))
	_, err = store.Get("svc", "acct")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPINHashing(t *testing.T) {
	hash, err := HashPIN("4321")
	require.NoError(t, err)
	assert.NotEqual(t, "4321", hash)

	assert.True(t, CheckPIN(hash, "4321"))
	assert.False(t, CheckPIN(hash, "1234"))
	assert.False(t, CheckPIN(hash, ""))
}
