// Package testutil provides item factories and credential helpers for
// tests across the module.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/guarzo/crosslist/internal/model"
)

// ItemFactory generates inventory items with deterministic randomness.
type ItemFactory struct {
	rand *rand.Rand
	seq  int
}

// NewItemFactory creates a factory with a seeded generator. A zero seed
// uses the clock.
func NewItemFactory(seed int64) *ItemFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &ItemFactory{rand: rand.New(rand.NewSource(seed))}
}

var categories = []string{"jackets", "tees", "shoes", "accessories", "home"}
var brands = []string{"Levis", "Nike", "Carhartt", "Patagonia", "Uniqlo"}

// Item produces a populated inventory item. Overrides can be applied
// by mutating the returned struct.
func (f *ItemFactory) Item() *model.InventoryItem {
	f.seq++
	return &model.InventoryItem{
		ID:         uuid.NewString(),
		SKU:        fmt.Sprintf("SKU-%04d", f.seq),
		Title:      fmt.Sprintf("%s item %d", brands[f.rand.Intn(len(brands))], f.seq),
		Brand:      brands[f.rand.Intn(len(brands))],
		Condition:  "good",
		Category:   categories[f.rand.Intn(len(categories))],
		Qty:        1,
		PriceCents: f.rand.Intn(50000) + 500,
		Platforms:  []string{"ebay"},
	}
}

// ListedItem produces an item actively listed on the given platforms,
// with listing dates daysAgo days in the past.
func (f *ItemFactory) ListedItem(daysAgo int, platforms ...string) *model.InventoryItem {
	item := f.Item()
	item.Platforms = platforms
	listed := time.Now().AddDate(0, 0, -daysAgo)
	for _, p := range platforms {
		item.SetStatus(p, model.StatusActive)
		item.SetListingDate(p, listed)
	}
	return item
}
