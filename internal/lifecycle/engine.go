package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/guarzo/crosslist/internal/model"
)

// ErrItemNotFound is returned when an operation references an item the
// repository does not hold.
var ErrItemNotFound = errors.New("item not found")

// Repository is the persistence collaborator the engine writes through.
// Update doubles as the dirty-marking call: every mutation is followed
// by exactly one Update for the touched item.
type Repository interface {
	Find(id string) (*model.InventoryItem, error)
	All() ([]*model.InventoryItem, error)
	Update(item *model.InventoryItem) error
}

// Engine owns every status and date write for crosslisted items. All
// mutation paths (manual, bulk, sweep, sync adapters) funnel through
// SetStatus, SetListingDate, Relist and OnSale so the listing
// invariants hold no matter who the caller is.
type Engine struct {
	repo  Repository
	rules Rules

	// Now is replaceable in tests. Defaults to time.Now.
	Now func() time.Time
}

// NewEngine creates an engine over the given repository and rule table.
func NewEngine(repo Repository, rules Rules) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{repo: repo, rules: rules, Now: time.Now}
}

// Rules exposes the engine's policy table to read-only consumers.
func (e *Engine) Rules() Rules {
	return e.rules
}

func (e *Engine) find(itemID string) (*model.InventoryItem, error) {
	item, err := e.repo.Find(itemID)
	if err != nil {
		return nil, fmt.Errorf("finding item %s: %w", itemID, err)
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
	}
	return item, nil
}

// SetStatus writes a platform status with no other side effects.
func (e *Engine) SetStatus(itemID, platform string, status model.ListingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid listing status %q", status)
	}
	item, err := e.find(itemID)
	if err != nil {
		return err
	}
	item.SetStatus(platform, status)
	return e.repo.Update(item)
}

// SetListingDate records when the listing was (re)published and eagerly
// recomputes the platform's expiry from the rule table. A zero date
// means today. Platforms that never expire get their stored expiry
// cleared rather than left stale.
func (e *Engine) SetListingDate(itemID, platform string, date time.Time) error {
	item, err := e.find(itemID)
	if err != nil {
		return err
	}
	if date.IsZero() {
		date = e.Now()
	}
	date = dateOnly(date)
	item.SetListingDate(platform, date)
	if expiry, ok := e.rules.ComputeExpiry(platform, date); ok {
		item.SetExpiry(platform, expiry)
	} else {
		item.ClearExpiry(platform)
	}
	return e.repo.Update(item)
}

// Relist resets a platform listing: records the relist, restarts the
// expiry clock and forces the status back to active. Every relist path
// (manual, bulk, sync-driven) must come through here rather than
// combining the sub-steps itself, so listedDate and status can never
// drift apart.
func (e *Engine) Relist(itemID, platform string) error {
	item, err := e.find(itemID)
	if err != nil {
		return err
	}
	item.SetLastRelisted(platform, dateOnly(e.Now()))
	if err := e.repo.Update(item); err != nil {
		return err
	}
	if err := e.SetListingDate(itemID, platform, e.Now()); err != nil {
		return err
	}
	return e.SetStatus(itemID, platform, model.StatusActive)
}

// OnSale marks soldPlatform sold. When the sale exhausts stock
// (Qty == 0) every other platform still active is moved to
// sold-elsewhere; delisted, expired and draft listings are left alone
// so the cascade never resurrects a non-active listing. Returns the
// platforms actually cascaded. A partial sale (Qty > 0) cascades
// nothing: the item is still legitimately listed elsewhere.
func (e *Engine) OnSale(itemID, soldPlatform string) ([]string, error) {
	item, err := e.find(itemID)
	if err != nil {
		return nil, err
	}

	item.SetStatus(soldPlatform, model.StatusSold)

	var cascaded []string
	if item.Qty <= 0 {
		for _, p := range item.Platforms {
			if p == soldPlatform {
				continue
			}
			if item.StatusFor(p) != model.StatusActive {
				continue
			}
			item.SetStatus(p, model.StatusSoldElsewhere)
			cascaded = append(cascaded, p)
		}
	}

	if err := e.repo.Update(item); err != nil {
		return nil, err
	}
	return cascaded, nil
}
