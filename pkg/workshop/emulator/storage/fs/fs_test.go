package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsstorage "github.com/tendant/simple-workshop/pkg/workshop/emulator/storage/fs"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator/storage/storagetest"
)

func TestFSBackend(t *testing.T) {
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	storagetest.Run(t, backend)
}

func TestFSBackendRequiresBaseDir(t *testing.T) {
	_, err := fsstorage.New(fsstorage.Config{})
	assert.Error(t, err)
}

func TestFSBackendRejectsEscapingKeys(t *testing.T) {
	base := t.TempDir()
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: filepath.Join(base, "store")})
	require.NoError(t, err)

	err = backend.Upload(context.Background(), "../outside.txt", strings.NewReader("x"))
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(base, "outside.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFSBackendCleansEmptyDirectories(t *testing.T) {
	base := t.TempDir()
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: base})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "remote/1/alice/f.txt", strings.NewReader("x")))
	require.NoError(t, backend.Delete(ctx, "remote/1/alice/f.txt"))

	_, err = os.Stat(filepath.Join(base, "remote"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(base)
	assert.NoError(t, err)
}
