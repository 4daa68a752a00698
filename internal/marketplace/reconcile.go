package marketplace

import (
	"fmt"
	"time"

	"github.com/guarzo/crosslist/internal/lifecycle"
	"github.com/guarzo/crosslist/internal/model"
)

// SaleRecorder receives sale prices discovered during order pulls.
type SaleRecorder interface {
	RecordSale(itemID, sku, platform string, priceCents int, at time.Time) error
}

// Reconciler applies remote listing and order state to local items.
// It is the shared half of every pull: adapters fetch and translate,
// the reconciler matches and drives the engine's transitions.
type Reconciler struct {
	engine *lifecycle.Engine
	repo   lifecycle.Repository
	sales  SaleRecorder
}

// NewReconciler wires the reconciler. sales may be nil when price
// history is not wanted.
func NewReconciler(engine *lifecycle.Engine, repo lifecycle.Repository, sales SaleRecorder) *Reconciler {
	return &Reconciler{engine: engine, repo: repo, sales: sales}
}

// match finds the local item for a remote listing, preferring the
// stored external reference over SKU.
func (r *Reconciler) match(platform, externalID, sku string) (*model.InventoryItem, error) {
	items, err := r.repo.All()
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	if externalID != "" {
		for _, item := range items {
			if item.ExternalRefs[platform] == externalID {
				return item, nil
			}
		}
	}
	if sku != "" {
		for _, item := range items {
			if item.SKU == sku {
				return item, nil
			}
		}
	}
	return nil, nil
}

// ApplyListings reconciles one page of remote listings. A remote
// quantity of zero on a locally active listing means it sold (or was
// ended) on the marketplace; anything unmatched is only counted.
func (r *Reconciler) ApplyListings(platform string, listings []RemoteListing, res *PullResult) error {
	for _, rl := range listings {
		item, err := r.match(platform, rl.ExternalID, rl.SKU)
		if err != nil {
			return err
		}
		if item == nil {
			res.Unmatched++
			continue
		}
		res.Matched++

		if rl.ExternalID != "" && item.ExternalRefs[platform] != rl.ExternalID {
			item.SetExternalRef(platform, rl.ExternalID)
			if err := r.repo.Update(item); err != nil {
				return fmt.Errorf("storing external ref for %s: %w", item.ID, err)
			}
		}

		if rl.Quantity == 0 && item.StatusFor(platform) == model.StatusActive {
			if err := r.engine.SetStatus(item.ID, platform, model.StatusSold); err != nil {
				return err
			}
			res.Updated++
		}
	}
	return nil
}

// ApplyOrders reconciles recent remote orders. Each line that matches a
// local item not already sold on this platform reduces stock, runs the
// sale transition (cascading siblings if stock hit zero) and records
// the sale price. The already-sold guard keeps repeated pulls from
// double-counting the same order.
func (r *Reconciler) ApplyOrders(platform string, orders []RemoteOrder, res *PullResult) error {
	for _, order := range orders {
		for _, line := range order.Lines {
			item, err := r.match(platform, line.ExternalID, line.SKU)
			if err != nil {
				return err
			}
			if item == nil {
				res.Unmatched++
				continue
			}
			res.Matched++

			if item.StatusFor(platform) == model.StatusSold {
				continue
			}

			qty := line.Quantity
			if qty <= 0 {
				qty = 1
			}
			item.Qty -= qty
			if item.Qty < 0 {
				item.Qty = 0
			}
			if err := r.repo.Update(item); err != nil {
				return fmt.Errorf("persisting stock for %s: %w", item.ID, err)
			}

			if _, err := r.engine.OnSale(item.ID, platform); err != nil {
				return err
			}
			res.Updated++

			if r.sales != nil {
				at := order.CreatedAt
				if at.IsZero() {
					at = r.engine.Now()
				}
				if err := r.sales.RecordSale(item.ID, item.SKU, platform, line.TotalCents, at); err != nil {
					return fmt.Errorf("recording sale for %s: %w", item.ID, err)
				}
				res.SalesRecorded++
			}
		}
	}
	return nil
}

// Engine exposes the underlying engine to adapters for the local half
// of push operations.
func (r *Reconciler) Engine() *lifecycle.Engine {
	return r.engine
}

// UpdateItem persists adapter-owned fields such as external refs.
func (r *Reconciler) UpdateItem(item *model.InventoryItem) error {
	return r.repo.Update(item)
}

// FindItem looks up an item for push payload building.
func (r *Reconciler) FindItem(itemID string) (*model.InventoryItem, error) {
	item, err := r.repo.Find(itemID)
	if err != nil {
		return nil, fmt.Errorf("finding item %s: %w", itemID, err)
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", itemID, lifecycle.ErrItemNotFound)
	}
	return item, nil
}
