package model

import "time"

// ListingStatus is the current state of one item on one platform.
// It is a snapshot, not an audit trail: exactly one value per
// item/platform pair at any instant.
type ListingStatus string

const (
	StatusActive        ListingStatus = "active"
	StatusSold          ListingStatus = "sold"
	StatusSoldElsewhere ListingStatus = "sold-elsewhere"
	StatusDelisted      ListingStatus = "delisted"
	StatusExpired       ListingStatus = "expired"
	StatusDraft         ListingStatus = "draft"
)

// Valid reports whether s is one of the closed set of statuses.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSold, StatusSoldElsewhere, StatusDelisted, StatusExpired, StatusDraft:
		return true
	}
	return false
}

// ExpiryRule is per-platform listing policy. Days == 0 means the
// listing stays live until manually ended, so no expiry is tracked.
type ExpiryRule struct {
	Days      int
	Renewable bool
}

// InventoryItem is one physical product (possibly multi-unit) tracked
// across every marketplace it is crosslisted on. The engine owns the
// listing-related fields; identity and pricing fields are shared with
// the rest of the app.
//
// Removing a platform from Platforms deliberately leaves its entries in
// the status/date maps. They are ignored while the platform is absent
// and resurface if it is re-added.
type InventoryItem struct {
	ID         string `json:"id"`
	SKU        string `json:"sku"`
	Title      string `json:"title"`
	Brand      string `json:"brand,omitempty"`
	Size       string `json:"size,omitempty"`
	Condition  string `json:"condition"`
	Category   string `json:"category,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"priceCents"`
	CostCents  int    `json:"costCents,omitempty"`

	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`

	// Platforms the item is intended to be listed on. Order-irrelevant.
	Platforms []string `json:"platforms"`

	// Per-platform listing state. A platform present in Platforms but
	// absent from PlatformStatus is treated as active.
	PlatformStatus        map[string]ListingStatus `json:"platformStatus,omitempty"`
	PlatformListingDates  map[string]time.Time     `json:"platformListingDates,omitempty"`
	PlatformListingExpiry map[string]time.Time     `json:"platformListingExpiry,omitempty"`
	LastRelisted          map[string]time.Time     `json:"lastRelisted,omitempty"`

	// Opaque remote listing keys, owned by the matching sync adapter.
	ExternalRefs map[string]string `json:"externalRefs,omitempty"`
}

// StatusFor returns the item's status on a platform, defaulting to
// active when no explicit status has been recorded.
func (it *InventoryItem) StatusFor(platform string) ListingStatus {
	if s, ok := it.PlatformStatus[platform]; ok {
		return s
	}
	return StatusActive
}

// ListedOn reports whether platform is in the item's intended set.
func (it *InventoryItem) ListedOn(platform string) bool {
	for _, p := range it.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// SetStatus records a status without any side effects. Callers outside
// the lifecycle engine should go through the engine instead.
func (it *InventoryItem) SetStatus(platform string, status ListingStatus) {
	if it.PlatformStatus == nil {
		it.PlatformStatus = make(map[string]ListingStatus)
	}
	it.PlatformStatus[platform] = status
}

// SetListingDate records the (re)publish date for a platform.
func (it *InventoryItem) SetListingDate(platform string, date time.Time) {
	if it.PlatformListingDates == nil {
		it.PlatformListingDates = make(map[string]time.Time)
	}
	it.PlatformListingDates[platform] = date
}

// SetExpiry records a computed expiry date for a platform.
func (it *InventoryItem) SetExpiry(platform string, date time.Time) {
	if it.PlatformListingExpiry == nil {
		it.PlatformListingExpiry = make(map[string]time.Time)
	}
	it.PlatformListingExpiry[platform] = date
}

// ClearExpiry removes a platform's expiry, for rules with Days == 0.
func (it *InventoryItem) ClearExpiry(platform string) {
	delete(it.PlatformListingExpiry, platform)
}

// SetLastRelisted records the most recent relist. Diagnostic only.
func (it *InventoryItem) SetLastRelisted(platform string, date time.Time) {
	if it.LastRelisted == nil {
		it.LastRelisted = make(map[string]time.Time)
	}
	it.LastRelisted[platform] = date
}

// SetExternalRef stores the remote listing key for a platform.
func (it *InventoryItem) SetExternalRef(platform, ref string) {
	if it.ExternalRefs == nil {
		it.ExternalRefs = make(map[string]string)
	}
	it.ExternalRefs[platform] = ref
}
