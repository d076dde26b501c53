package cli

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuchen-w/fangnote/internal/models"
	"github.com/yuchen-w/fangnote/internal/service"
	"github.com/yuchen-w/fangnote/internal/store"
)

func managerWithTasks(t *testing.T, tasks ...models.Task) *service.Manager {
	t.Helper()
	kv, err := store.NewFileKV(t.TempDir())
	require.NoError(t, err)
	s := store.New(kv, slog.New(slog.DiscardHandler), nil)
	require.NoError(t, s.SaveTasks(context.Background(), tasks))

	mgr := service.NewManager(nil, s, slog.New(slog.DiscardHandler))
	mgr.LoadPersisted(context.Background())
	return mgr
}

func TestResolveTaskID(t *testing.T) {
	a := models.NewFailedTask("a", "a", "boom")
	a.ID = "aaaa1111-0000-0000-0000-000000000000"
	b := models.NewFailedTask("b", "b", "boom")
	b.ID = "aabb2222-0000-0000-0000-000000000000"

	mgr := managerWithTasks(t, a, b)

	// Unique prefix expands to the full id.
	id, err := resolveTaskID(mgr, "aaaa")
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	// Shared prefix is ambiguous.
	_, err = resolveTaskID(mgr, "aa")
	assert.ErrorContains(t, err, "ambiguous")

	// Unknown prefix.
	_, err = resolveTaskID(mgr, "zz")
	assert.ErrorContains(t, err, "no task")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "aaaa1111", shortID("aaaa1111-0000-0000-0000-000000000000"))
	assert.Equal(t, "abc", shortID("abc"))
}
