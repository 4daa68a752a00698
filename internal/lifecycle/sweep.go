package lifecycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/guarzo/crosslist/internal/model"
)

// ExpiredListing is one item/platform pair whose listing has lapsed.
type ExpiredListing struct {
	Item       *model.InventoryItem
	Platform   string
	ListedDate time.Time
	Expiry     time.Time
}

// ExpiringListing is one item/platform pair approaching expiry.
type ExpiringListing struct {
	Item     *model.InventoryItem
	Platform string
	Expiry   time.Time
	DaysLeft int
}

// ExpiredListings scans every item/platform pair that is currently
// active and returns those whose stored expiry is in the past. Pairs
// without an expiry (Days == 0 platforms) never match.
func (e *Engine) ExpiredListings(items []*model.InventoryItem) []ExpiredListing {
	today := dateOnly(e.Now())
	var out []ExpiredListing
	for _, item := range items {
		for _, p := range item.Platforms {
			if item.StatusFor(p) != model.StatusActive {
				continue
			}
			expiry, ok := item.PlatformListingExpiry[p]
			if !ok {
				continue
			}
			if daysBetween(today, expiry) < 0 {
				out = append(out, ExpiredListing{
					Item:       item,
					Platform:   p,
					ListedDate: item.PlatformListingDates[p],
					Expiry:     expiry,
				})
			}
		}
	}
	return out
}

// ExpiringListings returns active pairs expiring within warningDays,
// most urgent first. Already-expired pairs are excluded; they belong to
// ExpiredListings. The sort is stable so equal urgency keeps scan
// order.
func (e *Engine) ExpiringListings(items []*model.InventoryItem, warningDays int) []ExpiringListing {
	today := dateOnly(e.Now())
	var out []ExpiringListing
	for _, item := range items {
		for _, p := range item.Platforms {
			if item.StatusFor(p) != model.StatusActive {
				continue
			}
			expiry, ok := item.PlatformListingExpiry[p]
			if !ok {
				continue
			}
			left := daysBetween(today, expiry)
			if left >= 0 && left <= warningDays {
				out = append(out, ExpiringListing{
					Item:     item,
					Platform: p,
					Expiry:   expiry,
					DaysLeft: left,
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysLeft < out[j].DaysLeft
	})
	return out
}

// SweepExpired transitions every newly lapsed active listing to
// expired. It is the only code allowed to set StatusExpired on its own
// and it is idempotent: a second run right after the first performs
// zero transitions, so callers may run it unconditionally on startup
// and on a timer. The count reports transitions actually performed,
// not the total number of expired listings.
func (e *Engine) SweepExpired() (int, error) {
	items, err := e.repo.All()
	if err != nil {
		return 0, fmt.Errorf("loading items for sweep: %w", err)
	}

	transitions := 0
	for _, lapsed := range e.ExpiredListings(items) {
		if lapsed.Item.StatusFor(lapsed.Platform) == model.StatusExpired {
			continue
		}
		lapsed.Item.SetStatus(lapsed.Platform, model.StatusExpired)
		if err := e.repo.Update(lapsed.Item); err != nil {
			return transitions, fmt.Errorf("persisting expiry of %s on %s: %w",
				lapsed.Item.ID, lapsed.Platform, err)
		}
		transitions++
	}
	return transitions, nil
}
