package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKVRoundTrip(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Put(ctx, "theme", []byte("dark")))

	data, ok, err := kv.Get(ctx, "theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dark", string(data))

	// Overwrite replaces in place.
	require.NoError(t, kv.Put(ctx, "theme", []byte("light")))
	data, _, err = kv.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", string(data))
}

func TestFileKVLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	require.NoError(t, kv.Put(context.Background(), "property_tasks", []byte("[]")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "property_tasks.json", entries[0].Name())
}

func TestNewFileKVCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	_, err := NewFileKV(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
