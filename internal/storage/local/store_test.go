// Package local_test tests the local filesystem store.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/referer-classifier/internal/storage"
	"github.com/JakeFAU/referer-classifier/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()}, nil)
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{}, nil)
		assert.Error(t, err)
	})

	t.Run("BaseDirDoesNotExist", func(t *testing.T) {
		_, err := local.New(local.Config{BaseDir: filepath.Join(t.TempDir(), "nope")}, nil)
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "referers.json")
		require.NoError(t, os.WriteFile(file, []byte("{}"), 0o600))
		_, err := local.New(local.Config{BaseDir: file}, nil)
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "referers.json"), []byte(`{"search":{}}`), 0o600))

	store, err := local.New(local.Config{BaseDir: dir}, zap.NewNop())
	require.NoError(t, err)

	t.Run("ValidLoad", func(t *testing.T) {
		data, err := store.Load(context.Background(), "nested/referers.json")
		require.NoError(t, err)
		assert.Equal(t, `{"search":{}}`, string(data))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.Load(context.Background(), " ")
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.Load(context.Background(), "../outside.json")
		assert.ErrorContains(t, err, "path traversal")
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := store.Load(context.Background(), "missing.json")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestWatchReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "referers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	store, err := local.New(local.Config{BaseDir: dir}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, "referers.json", func() { changes <- struct{}{} })
	}()

	// Unrelated files in the same directory are ignored; the watched file is
	// rewritten until the watcher (which starts asynchronously) notices.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o600))
	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte(`{"social":{}}`), 0o600); err != nil {
			return false
		}
		select {
		case <-changes:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}

func TestWatchRejectsTraversal(t *testing.T) {
	store, err := local.New(local.Config{BaseDir: t.TempDir()}, nil)
	require.NoError(t, err)
	err = store.Watch(context.Background(), "../x.json", func() {})
	require.Error(t, err)
}

func TestLoadRelativeBaseDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "referers.json"), []byte(`{"email":{}}`), 0o600))
	t.Chdir(dir)

	store, err := local.New(local.Config{BaseDir: "."}, zap.NewNop())
	require.NoError(t, err)

	data, err := store.Load(context.Background(), "referers.json")
	require.NoError(t, err)
	assert.Equal(t, `{"email":{}}`, string(data))

	_, err = store.Load(context.Background(), "../referers.json")
	assert.ErrorContains(t, err, "path traversal")
	_, err = store.Load(context.Background(), "sub/..")
	assert.ErrorContains(t, err, "path traversal")
}

func TestLoadRootBaseDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "referers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	store, err := local.New(local.Config{BaseDir: string(filepath.Separator)}, nil)
	require.NoError(t, err)

	data, err := store.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
