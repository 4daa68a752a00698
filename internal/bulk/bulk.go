// Package bulk implements batch operations over the lifecycle engine.
// Each operation is atomic per item but never across the batch: a
// failure partway through leaves earlier items processed, and the
// returned counts always report work actually done.
package bulk

import (
	"fmt"

	"github.com/guarzo/crosslist/internal/lifecycle"
	"github.com/guarzo/crosslist/internal/model"
)

// Ops runs batch operations against one engine and repository.
type Ops struct {
	engine *lifecycle.Engine
	repo   lifecycle.Repository
}

// New creates the bulk operation layer.
func New(engine *lifecycle.Engine, repo lifecycle.Repository) *Ops {
	return &Ops{engine: engine, repo: repo}
}

// RelistExpired snapshots the expired listings and relists each one.
// Per-pair failures are collected keyed by "itemID/platform" so one bad
// item cannot abort the batch. The count is listings actually relisted.
func (o *Ops) RelistExpired() (int, map[string]error) {
	items, err := o.repo.All()
	if err != nil {
		return 0, map[string]error{"": fmt.Errorf("loading items: %w", err)}
	}

	done := 0
	errs := make(map[string]error)
	for _, lapsed := range o.engine.ExpiredListings(items) {
		if err := o.engine.Relist(lapsed.Item.ID, lapsed.Platform); err != nil {
			errs[lapsed.Item.ID+"/"+lapsed.Platform] = err
			continue
		}
		done++
	}
	return done, errs
}

// AutoRelist relists expired listings only on platforms whose rule is
// renewable. Renewability is a hard precondition: relisting a
// non-renewable platform's listing would misrepresent what actually
// happened on that marketplace.
func (o *Ops) AutoRelist() (int, map[string]error) {
	items, err := o.repo.All()
	if err != nil {
		return 0, map[string]error{"": fmt.Errorf("loading items: %w", err)}
	}

	done := 0
	errs := make(map[string]error)
	for _, lapsed := range o.engine.ExpiredListings(items) {
		if !o.engine.Rules().Renewable(lapsed.Platform) {
			continue
		}
		if err := o.engine.Relist(lapsed.Item.ID, lapsed.Platform); err != nil {
			errs[lapsed.Item.ID+"/"+lapsed.Platform] = err
			continue
		}
		done++
	}
	return done, errs
}

// PriceFilter selects items for a bulk price adjustment. Zero values
// mean "no constraint". Platform restricts to items intended for that
// platform; MinDaysListed requires the oldest (matching) listing to be
// at least that many days old.
type PriceFilter struct {
	Category      string
	Platform      string
	MinDaysListed int
}

// PriceAdjustment is either a percentage or a fixed delta in cents.
// Percent wins when both are set.
type PriceAdjustment struct {
	Percent    float64
	DeltaCents int
}

// PriceAdjust applies the adjustment to every item matching the
// filter, independent of listing status or stock level; a sold-out
// item keeps a current asking price for when it is restocked. Prices
// never go below zero. Returns the number of items repriced.
func (o *Ops) PriceAdjust(filter PriceFilter, adj PriceAdjustment) (int, error) {
	items, err := o.repo.All()
	if err != nil {
		return 0, fmt.Errorf("loading items: %w", err)
	}

	done := 0
	for _, item := range items {
		if !o.matches(item, filter) {
			continue
		}

		price := item.PriceCents
		if adj.Percent != 0 {
			price += int(float64(price) * adj.Percent / 100)
		} else {
			price += adj.DeltaCents
		}
		if price < 0 {
			price = 0
		}
		if price == item.PriceCents {
			continue
		}

		item.PriceCents = price
		if err := o.repo.Update(item); err != nil {
			return done, fmt.Errorf("persisting price for %s: %w", item.ID, err)
		}
		done++
	}
	return done, nil
}

func (o *Ops) matches(item *model.InventoryItem, filter PriceFilter) bool {
	if filter.Category != "" && item.Category != filter.Category {
		return false
	}
	if filter.Platform != "" && !item.ListedOn(filter.Platform) {
		return false
	}
	if filter.MinDaysListed > 0 {
		oldest := -1
		for _, p := range item.Platforms {
			if filter.Platform != "" && p != filter.Platform {
				continue
			}
			listed, ok := item.PlatformListingDates[p]
			if !ok {
				continue
			}
			age := int(o.engine.Now().Sub(listed).Hours() / 24)
			if age > oldest {
				oldest = age
			}
		}
		if oldest < filter.MinDaysListed {
			return false
		}
	}
	return true
}
