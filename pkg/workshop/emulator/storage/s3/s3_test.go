package s3_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3storage "github.com/tendant/simple-workshop/pkg/workshop/emulator/storage/s3"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator/storage/storagetest"
)

func setupFakeS3(t *testing.T) (*httptest.Server, s3storage.Config) {
	t.Helper()
	faker := gofakes3.New(s3mem.New())
	server := httptest.NewServer(faker.Server())
	t.Cleanup(server.Close)

	return server, s3storage.Config{
		Region:                 "us-east-1",
		Bucket:                 "workshop-test",
		AccessKeyID:            "test",
		SecretAccessKey:        "test",
		Endpoint:               server.URL,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	}
}

func TestS3Backend(t *testing.T) {
	_, cfg := setupFakeS3(t)
	backend, err := s3storage.New(cfg)
	require.NoError(t, err)
	storagetest.Run(t, backend)
}

func TestS3BackendPrefixIsolation(t *testing.T) {
	_, cfg := setupFakeS3(t)
	ctx := context.Background()

	cfg.Prefix = "tenant-a"
	a, err := s3storage.New(cfg)
	require.NoError(t, err)
	cfg.Prefix = "tenant-b"
	cfg.CreateBucketIfNotExist = false
	b, err := s3storage.New(cfg)
	require.NoError(t, err)

	require.NoError(t, a.Upload(ctx, "remote/1/u/x", strings.NewReader("a")))

	objs, err := a.List(ctx, "remote/")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "remote/1/u/x", objs[0].Key)

	objs, err = b.List(ctx, "remote/")
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestS3BackendRequiresBucket(t *testing.T) {
	_, err := s3storage.New(s3storage.Config{})
	assert.Error(t, err)
}
