package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/guarzo/crosslist/internal/model"
)

// MemRepo is an in-memory item repository used by tests and by the CLI
// when no database path is configured. It satisfies the same contract
// as the sqlite store.
type MemRepo struct {
	mu    sync.RWMutex
	items map[string]*model.InventoryItem
	dirty map[string]bool
}

// NewMemRepo creates an empty in-memory repository.
func NewMemRepo() *MemRepo {
	return &MemRepo{
		items: make(map[string]*model.InventoryItem),
		dirty: make(map[string]bool),
	}
}

// Seed inserts items directly, for test setup.
func (r *MemRepo) Seed(items ...*model.InventoryItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[item.ID] = item
	}
}

// Insert adds a new item, assigning an id when none is set.
func (r *MemRepo) Insert(item *model.InventoryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	r.dirty[item.ID] = true
	return nil
}

// Find returns the item with the given id, or nil when absent.
func (r *MemRepo) Find(id string) (*model.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[id], nil
}

// All returns every item in insertion-independent order.
func (r *MemRepo) All() ([]*model.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.InventoryItem, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

// Update stores the item and marks it dirty.
func (r *MemRepo) Update(item *model.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	r.dirty[item.ID] = true
	return nil
}

// DirtyCount reports how many items have unsaved changes.
func (r *MemRepo) DirtyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.dirty)
}

// Save flushes the dirty set. In-memory state is already the source of
// truth, so this only clears the bookkeeping.
func (r *MemRepo) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty = make(map[string]bool)
	return nil
}
