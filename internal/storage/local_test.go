package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"resume-engine/internal/config"
	"resume-engine/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndFetch(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("%PDF-1.4 fake")
	uploadID, err := store.Put(ctx, "cv.PDF", data)
	require.NoError(t, err)
	require.NotEmpty(t, uploadID)

	doc, err := store.Fetch(ctx, uploadID)
	require.NoError(t, err)
	assert.Equal(t, uploadID, doc.ID)
	assert.Equal(t, types.MediaTypePDF, doc.MediaType)
	assert.Equal(t, data, doc.Data)
}

func TestLocalStoreProbesImageExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.jpeg"), []byte{0xff, 0xd8}, 0o644))

	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	doc, err := store.Fetch(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, types.MediaTypeJPEG, doc.MediaType)
	assert.True(t, doc.MediaType.IsImage())
}

func TestLocalStoreFetchMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Fetch(context.Background(), "missing")
	require.ErrorIs(t, err, types.ErrDocumentNotFound)

	_, err = store.Fetch(context.Background(), "../etc/passwd")
	require.ErrorIs(t, err, types.ErrDocumentNotFound)
}

func TestLocalStoreRejectsUnsupportedType(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "cv.docx", []byte("x"))
	require.ErrorIs(t, err, types.ErrUnsupportedMediaType)
}

func TestNewDocumentStoreSelectsLocal(t *testing.T) {
	cfg := config.Default()
	cfg.Store.LocalDir = t.TempDir()

	store, err := NewDocumentStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	cfg.Store.Type = "ftp"
	_, err = NewDocumentStore(context.Background(), cfg)
	require.Error(t, err)
}

func TestMinIOObjectNaming(t *testing.T) {
	assert.Equal(t, "documents/u1/original.pdf", documentObjectName("u1", types.MediaTypePDF))
	assert.Equal(t, "documents/u1/", documentPrefix("u1"))

	mt, ok := resolveMediaType("documents/u1/original.png", "application/octet-stream")
	require.True(t, ok)
	assert.Equal(t, types.MediaTypePNG, mt)

	mt, ok = resolveMediaType("documents/u1/original", "image/heic")
	require.True(t, ok)
	assert.Equal(t, types.MediaTypeHEIC, mt)

	_, ok = resolveMediaType("documents/u1/original", "text/plain")
	assert.False(t, ok)
}
