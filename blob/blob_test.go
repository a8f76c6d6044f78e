package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://cdn.test/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Put(ctx, "shipment_updates", "shipment-1/images/a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/uploads/shipment_updates/shipment-1/images/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "shipment_updates", "shipment-1", "images", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	key, ok := KeyFromURL(s, "shipment_updates", url)
	require.True(t, ok)
	assert.Equal(t, "shipment-1/images/a.png", key)

	require.NoError(t, s.Delete(ctx, "shipment_updates", key))
	assert.ErrorIs(t, s.Delete(ctx, "shipment_updates", key), ErrNotFound)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "http://cdn.test")
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "payment-proofs", "../../etc/passwd", strings.NewReader("x"), 1, "text/plain")
	assert.Error(t, err)
}

func TestKeyFromForeignURL(t *testing.T) {
	m := NewMemory()
	_, ok := KeyFromURL(m, "shipment_updates", "https://elsewhere/a.jpg")
	assert.False(t, ok)
}
