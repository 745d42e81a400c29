package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tendant/simple-workshop/pkg/workshop"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
)

// Repository implements emulator.Repository using in-memory storage
type Repository struct {
	mu     sync.RWMutex
	items  map[workshop.ItemID]*emulator.Item
	nextID workshop.ItemID
}

// New creates a new in-memory repository
func New() emulator.Repository {
	return &Repository{
		items: make(map[workshop.ItemID]*emulator.Item),
	}
}

func copyItem(item *emulator.Item) *emulator.Item {
	c := *item
	c.Tags = append([]string(nil), item.Tags...)
	if item.DeletedAt != nil {
		t := *item.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func (r *Repository) CreateItem(ctx context.Context, item *emulator.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	item.ID = r.nextID
	r.items[item.ID] = copyItem(item)

	return nil
}

func (r *Repository) GetItem(ctx context.Context, id workshop.ItemID) (*emulator.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists || item.DeletedAt != nil {
		return nil, emulator.ErrItemNotFound
	}
	// Return a copy to prevent external modifications
	return copyItem(item), nil
}

func (r *Repository) UpdateItem(ctx context.Context, item *emulator.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.items[item.ID]
	if !exists || current.DeletedAt != nil {
		return emulator.ErrItemNotFound
	}

	r.items[item.ID] = copyItem(item)
	return nil
}

func (r *Repository) DeleteItem(ctx context.Context, id workshop.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[id]
	if !exists || item.DeletedAt != nil {
		return emulator.ErrItemNotFound
	}

	now := time.Now().UTC()
	item.DeletedAt = &now
	item.UpdatedAt = now
	return nil
}

func (r *Repository) ListItemsByOwner(ctx context.Context, app workshop.AppID, owner string, offset, limit int) ([]*emulator.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*emulator.Item
	for _, item := range r.items {
		if item.DeletedAt == nil && item.AppID == app && item.Owner == owner {
			result = append(result, copyItem(item))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}
