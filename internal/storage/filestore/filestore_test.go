package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutPhoto(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "photos")
	store, err := New(dir, "https://cdn.test/photos/")
	require.NoError(t, err)

	ctx := context.Background()
	url, err := store.PutPhoto(ctx, "PCSO24JBN000123", []byte("first"), "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/photos/PCSO24JBN000123.jpg", url)

	_, err = store.PutPhoto(ctx, "PCSO24JBN000123", []byte("second"), "image/jpeg")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "PCSO24JBN000123.jpg"))
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
}

func TestFileURL(t *testing.T) {
	store, err := New(t.TempDir(), "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(store.PublicURL("PCSO24JBN000123"), "file://"))
	require.True(t, strings.HasSuffix(store.PublicURL("PCSO24JBN000123"), "/PCSO24JBN000123.jpg"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.PutPhoto(ctx, "PCSO24JBN000123", []byte("x"), "image/jpeg")
	require.ErrorIs(t, err, context.Canceled)
}
