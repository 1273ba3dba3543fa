package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "exchanges.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AppendAndRecent(t *testing.T) {
	store := newTestStore(t)

	first := &Entry{CommandKind: "request_kernel_info", EventKind: "kernel_info_produced", Detail: `{"info":{}}`}
	second := &Entry{CommandKind: "submit_code", EventKind: "command_succeeded"}
	require.NoError(t, store.Append(first))
	require.NoError(t, store.Append(second))
	assert.NotZero(t, first.ID)
	assert.NotZero(t, second.ID)

	entries, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// 新的在前
	assert.Equal(t, "submit_code", entries[0].CommandKind)
	assert.Equal(t, "request_kernel_info", entries[1].CommandKind)
	assert.Equal(t, `{"info":{}}`, entries[1].Detail)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestStore_RecentHonorsLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(&Entry{CommandKind: "submit_code", EventKind: "command_succeeded"}))
	}

	entries, err := store.Recent(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// 非法 limit 回退到默认值
	entries, err = store.Recent(0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}
