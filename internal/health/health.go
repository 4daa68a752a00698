// Package health derives read-only rollups from listing state for
// dashboards. Everything here is recomputed on demand; there is no
// stored aggregate that could drift from the underlying items.
package health

import (
	"github.com/guarzo/crosslist/internal/lifecycle"
	"github.com/guarzo/crosslist/internal/model"
)

// ItemHealth buckets one item's per-platform statuses.
type ItemHealth struct {
	Active         int `json:"active"`
	Sold           int `json:"sold"`
	SoldElsewhere  int `json:"soldElsewhere"`
	Expired        int `json:"expired"`
	Delisted       int `json:"delisted"`
	Draft          int `json:"draft"`
	TotalPlatforms int `json:"totalPlatforms"`
}

// FleetStats is the inventory-wide rollup over in-stock items.
type FleetStats struct {
	ItemsInStock   int `json:"itemsInStock"`
	TotalActive    int `json:"totalActive"`
	TotalExpired   int `json:"totalExpired"`
	ExpiringSoon   int `json:"expiringSoon"`
	SoldElsewhere  int `json:"soldElsewhere"`
	ZeroPlatform   int `json:"zeroPlatform"`
	SinglePlatform int `json:"singlePlatform"`
}

// ExpiringSoonWindow is the dashboard's "needs attention" horizon.
const ExpiringSoonWindow = 7

// ListingHealth counts the item's statuses across its platforms.
// Platforms with no explicit status count as active.
func ListingHealth(item *model.InventoryItem) ItemHealth {
	h := ItemHealth{TotalPlatforms: len(item.Platforms)}
	for _, p := range item.Platforms {
		switch item.StatusFor(p) {
		case model.StatusActive:
			h.Active++
		case model.StatusSold:
			h.Sold++
		case model.StatusSoldElsewhere:
			h.SoldElsewhere++
		case model.StatusExpired:
			h.Expired++
		case model.StatusDelisted:
			h.Delisted++
		case model.StatusDraft:
			h.Draft++
		}
	}
	return h
}

// Fleet folds ListingHealth over every in-stock item (Qty > 0).
// Sold-out items are excluded: their listings are settled and only add
// noise to an attention-oriented dashboard.
func Fleet(engine *lifecycle.Engine, items []*model.InventoryItem) FleetStats {
	var stats FleetStats
	var inStock []*model.InventoryItem
	for _, item := range items {
		if item.Qty <= 0 {
			continue
		}
		inStock = append(inStock, item)
		stats.ItemsInStock++

		h := ListingHealth(item)
		stats.TotalActive += h.Active
		stats.TotalExpired += h.Expired
		stats.SoldElsewhere += h.SoldElsewhere

		switch len(item.Platforms) {
		case 0:
			stats.ZeroPlatform++
		case 1:
			stats.SinglePlatform++
		}
	}
	stats.ExpiringSoon = len(engine.ExpiringListings(inStock, ExpiringSoonWindow))
	return stats
}
