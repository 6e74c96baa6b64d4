package corpus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	writeCorpus(t, path, "a,phone,0412 345 678,safe,Bank")

	store := NewStore(newTestLoader(t), path, zaptest.NewLogger(t))
	_, err := store.Reload(context.Background())
	require.NoError(t, err)
	first := store.Current()

	w, err := NewWatcher(path, 20*time.Millisecond, store, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	writeCorpus(t, path, "a,phone,0412 345 678,safe,Bank", "b,phone,0299998888,threat,X")

	require.Eventually(t, func() bool {
		return store.Current() != first && store.Current().Len() == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, w.Reloads(), int64(1))
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contacts.csv")
	writeCorpus(t, path, "a,phone,0412 345 678,safe,Bank")

	store := NewStore(newTestLoader(t), path, zaptest.NewLogger(t))
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	w, err := NewWatcher(path, 10*time.Millisecond, store, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	writeCorpus(t, filepath.Join(dir, "other.csv"), "b,phone,0299998888,threat,X")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(0), w.Reloads())
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher("", 0, nil, nil)
	assert.Error(t, err)
}
