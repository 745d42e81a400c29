// Package storagetest holds the behavior every emulator.BlobStore backend
// must share.
package storagetest

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
)

// Run exercises store. The store must start empty.
func Run(t *testing.T, store emulator.BlobStore) {
	ctx := context.Background()
	testKey := "remote/107410/alice/kpsteam_demo.pbo"
	testData := "Hello, World! This is test data."

	t.Run("Upload", func(t *testing.T) {
		err := store.Upload(ctx, testKey, strings.NewReader(testData))
		assert.NoError(t, err)
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := store.GetObjectMeta(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, testKey, meta.Key)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.NotEmpty(t, meta.ContentType)
	})

	t.Run("Download", func(t *testing.T) {
		reader, err := store.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()

		downloaded, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, string(downloaded))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Upload(ctx, testKey, strings.NewReader("v2")))
		meta, err := store.GetObjectMeta(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, int64(2), meta.Size)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Upload(ctx, "remote/107410/alice/a.txt", strings.NewReader("a")))
		require.NoError(t, store.Upload(ctx, "remote/107410/bob/b.txt", strings.NewReader("bb")))
		require.NoError(t, store.Upload(ctx, "items/107410/1/r1/content/sub/c.txt", strings.NewReader("ccc")))

		objs, err := store.List(ctx, "remote/107410/alice/")
		require.NoError(t, err)
		keys := make([]string, 0, len(objs))
		for _, o := range objs {
			keys = append(keys, o.Key)
		}
		assert.Equal(t, []string{"remote/107410/alice/a.txt", "remote/107410/alice/kpsteam_demo.pbo"}, keys)

		objs, err = store.List(ctx, "items/107410/1/")
		require.NoError(t, err)
		require.Len(t, objs, 1)
		assert.Equal(t, "items/107410/1/r1/content/sub/c.txt", objs[0].Key)
		assert.Equal(t, int64(3), objs[0].Size)

		objs, err = store.List(ctx, "nothing/here/")
		require.NoError(t, err)
		assert.Empty(t, objs)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, testKey))

		_, err := store.GetObjectMeta(ctx, testKey)
		assert.ErrorIs(t, err, emulator.ErrObjectNotFound)

		_, err = store.Download(ctx, testKey)
		assert.ErrorIs(t, err, emulator.ErrObjectNotFound)

		err = store.Delete(ctx, testKey)
		assert.ErrorIs(t, err, emulator.ErrObjectNotFound)
	})
}
