package bulk

import (
	"testing"
	"time"

	"github.com/guarzo/crosslist/internal/lifecycle"
	"github.com/guarzo/crosslist/internal/model"
	"github.com/guarzo/crosslist/internal/store"
)

var testRules = lifecycle.Rules{
	"ebay":     {Days: 30, Renewable: true},
	"etsy":     {Days: 120, Renewable: true},
	"facebook": {Days: 30, Renewable: false},
}

var testNow = time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

func setup(items ...*model.InventoryItem) (*Ops, *lifecycle.Engine, *store.MemRepo) {
	repo := store.NewMemRepo()
	repo.Seed(items...)
	e := lifecycle.NewEngine(repo, testRules)
	e.Now = func() time.Time { return testNow }
	return New(e, repo), e, repo
}

// expiredOn builds an item whose listing on platform lapsed daysAgo.
func expiredOn(id, platform string, daysAgo int) *model.InventoryItem {
	item := &model.InventoryItem{ID: id, Qty: 1, Platforms: []string{platform}}
	rule := testRules[platform]
	listed := testNow.AddDate(0, 0, -(rule.Days + daysAgo))
	item.SetListingDate(platform, listed)
	if expiry, ok := testRules.ComputeExpiry(platform, listed); ok {
		item.SetExpiry(platform, expiry)
	}
	return item
}

func TestRelistExpired(t *testing.T) {
	fresh := &model.InventoryItem{ID: "fresh", Qty: 1, Platforms: []string{"ebay"}}
	fresh.SetListingDate("ebay", testNow.AddDate(0, 0, -5))
	fresh.SetExpiry("ebay", testNow.AddDate(0, 0, 25))

	ops, _, _ := setup(expiredOn("a", "ebay", 3), expiredOn("b", "etsy", 1), fresh)

	done, errs := ops.RelistExpired()
	if len(errs) != 0 {
		t.Fatalf("errors = %v", errs)
	}
	if done != 2 {
		t.Errorf("relisted = %d, want 2", done)
	}

	// Everything relisted is active again with a fresh clock, so an
	// immediate second pass finds nothing.
	done, _ = ops.RelistExpired()
	if done != 0 {
		t.Errorf("second pass relisted = %d, want 0", done)
	}
}

func TestAutoRelistSkipsNonRenewable(t *testing.T) {
	renewable := expiredOn("ren", "ebay", 2)
	fixed := expiredOn("fix", "facebook", 2)
	ops, _, _ := setup(renewable, fixed)

	done, errs := ops.AutoRelist()
	if len(errs) != 0 {
		t.Fatalf("errors = %v", errs)
	}
	if done != 1 {
		t.Errorf("relisted = %d, want 1", done)
	}
	if got := renewable.StatusFor("ebay"); got != model.StatusActive {
		t.Errorf("renewable pair status = %q, want active", got)
	}
	// The non-renewable listing must be left exactly as it was.
	if got := fixed.StatusFor("facebook"); got != model.StatusActive {
		t.Errorf("non-renewable pair status = %q, want untouched active", got)
	}
	if _, relisted := fixed.LastRelisted["facebook"]; relisted {
		t.Error("non-renewable pair was relisted")
	}
}

func TestPriceAdjustPercent(t *testing.T) {
	a := &model.InventoryItem{ID: "a", Qty: 1, Category: "shoes", PriceCents: 2000, Platforms: []string{"ebay"}}
	b := &model.InventoryItem{ID: "b", Qty: 1, Category: "shirts", PriceCents: 1000, Platforms: []string{"ebay"}}
	ops, _, _ := setup(a, b)

	done, err := ops.PriceAdjust(PriceFilter{Category: "shoes"}, PriceAdjustment{Percent: -10})
	if err != nil {
		t.Fatalf("PriceAdjust() error = %v", err)
	}
	if done != 1 {
		t.Errorf("adjusted = %d, want 1", done)
	}
	if a.PriceCents != 1800 {
		t.Errorf("a.PriceCents = %d, want 1800", a.PriceCents)
	}
	if b.PriceCents != 1000 {
		t.Errorf("b.PriceCents = %d, want unchanged 1000", b.PriceCents)
	}
}

func TestPriceAdjustDeltaFloorsAtZero(t *testing.T) {
	a := &model.InventoryItem{ID: "a", Qty: 1, PriceCents: 300, Platforms: []string{"ebay"}}
	ops, _, _ := setup(a)

	if _, err := ops.PriceAdjust(PriceFilter{}, PriceAdjustment{DeltaCents: -500}); err != nil {
		t.Fatalf("PriceAdjust() error = %v", err)
	}
	if a.PriceCents != 0 {
		t.Errorf("PriceCents = %d, want floor of 0", a.PriceCents)
	}
}

func TestPriceAdjustMinDaysListed(t *testing.T) {
	stale := &model.InventoryItem{ID: "stale", Qty: 1, PriceCents: 1000, Platforms: []string{"ebay"}}
	stale.SetListingDate("ebay", testNow.AddDate(0, 0, -60))
	recent := &model.InventoryItem{ID: "recent", Qty: 1, PriceCents: 1000, Platforms: []string{"ebay"}}
	recent.SetListingDate("ebay", testNow.AddDate(0, 0, -10))
	ops, _, _ := setup(stale, recent)

	done, err := ops.PriceAdjust(
		PriceFilter{Platform: "ebay", MinDaysListed: 30},
		PriceAdjustment{Percent: -20},
	)
	if err != nil {
		t.Fatalf("PriceAdjust() error = %v", err)
	}
	if done != 1 {
		t.Errorf("adjusted = %d, want 1", done)
	}
	if stale.PriceCents != 800 || recent.PriceCents != 1000 {
		t.Errorf("prices = %d/%d, want 800/1000", stale.PriceCents, recent.PriceCents)
	}
}

func TestPriceAdjustIncludesSoldOut(t *testing.T) {
	gone := &model.InventoryItem{ID: "gone", Qty: 0, Category: "tees", PriceCents: 1000, Platforms: []string{"ebay"}}
	ops, _, _ := setup(gone)

	done, err := ops.PriceAdjust(PriceFilter{Category: "tees"}, PriceAdjustment{DeltaCents: 100})
	if err != nil {
		t.Fatalf("PriceAdjust() error = %v", err)
	}
	if done != 1 {
		t.Errorf("adjusted = %d, want 1", done)
	}
	if gone.PriceCents != 1100 {
		t.Errorf("PriceCents = %d, want 1100 (stock level must not gate repricing)", gone.PriceCents)
	}
}
