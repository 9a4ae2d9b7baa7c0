package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/referer-classifier/internal/storage"
)

func TestStoreCopiesData(t *testing.T) {
	t.Parallel()

	store := New()
	payload := []byte(`{"search":{}}`)
	store.Put("referers.json", payload)
	payload[0] = '['

	got, err := store.Load(context.Background(), "referers.json")
	require.NoError(t, err)
	require.Equal(t, `{"search":{}}`, string(got))

	got[0] = '['
	again, err := store.Load(context.Background(), "referers.json")
	require.NoError(t, err)
	require.Equal(t, byte('{'), again[0])
}

func TestStoreMissingObject(t *testing.T) {
	t.Parallel()

	_, err := New().Load(context.Background(), "missing.json")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
