package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator/repo/memory"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator/repo/repotest"
)

func TestMemoryRepository(t *testing.T) {
	repotest.Run(t, memory.New())
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	item := &emulator.Item{AppID: 1, Owner: "alice", Tags: []string{"a"}}
	require.NoError(t, repo.CreateItem(ctx, item))
	item.Tags[0] = "mutated"

	got, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Tags)

	got.Title = "changed without update"
	again, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Title)
}

func TestMemoryRepositoryConcurrency(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	const numGoroutines = 10
	const numItems = 20

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numItems; j++ {
				assert.NoError(t, repo.CreateItem(ctx, &emulator.Item{AppID: 7, Owner: "bob"}))
			}
		}()
	}
	wg.Wait()

	items, err := repo.ListItemsByOwner(ctx, 7, "bob", 0, 0)
	require.NoError(t, err)
	assert.Len(t, items, numGoroutines*numItems)
	seen := make(map[uint64]bool)
	for _, it := range items {
		assert.False(t, seen[uint64(it.ID)])
		seen[uint64(it.ID)] = true
	}
}
