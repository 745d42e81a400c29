package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
)

type object struct {
	data      []byte
	updatedAt time.Time
}

// Backend is an in-memory implementation of the emulator.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New creates a new in-memory storage backend
func New() emulator.BlobStore {
	return &Backend{
		objects: make(map[string]object),
	}
}

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*emulator.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, emulator.ErrObjectNotFound
	}

	meta := &emulator.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(obj.data)),
		ContentType: "application/octet-stream",
		UpdatedAt:   obj.updatedAt,
	}

	return meta, nil
}

// Upload uploads content directly
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = object{data: data, updatedAt: time.Now().UTC()}
	return nil
}

// Download downloads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, emulator.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return emulator.ErrObjectNotFound
	}

	delete(b.objects, objectKey)
	return nil
}

// List returns the objects whose key starts with prefix, sorted by key
func (b *Backend) List(ctx context.Context, prefix string) ([]emulator.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []emulator.ObjectMeta
	for key, obj := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, emulator.ObjectMeta{
			Key:         key,
			Size:        int64(len(obj.data)),
			ContentType: "application/octet-stream",
			UpdatedAt:   obj.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
