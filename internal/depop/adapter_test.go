package depop

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guarzo/crosslist/internal/lifecycle"
	"github.com/guarzo/crosslist/internal/marketplace"
	"github.com/guarzo/crosslist/internal/model"
	"github.com/guarzo/crosslist/internal/store"
)

const shopPageHTML = `<!DOCTYPE html>
<html><body>
<div class="shop">
  <a href="/products/thrifty-vintage-denim-jacket/">
    <p>Vintage denim jacket [JKT-0042]</p>
  </a>
  <a href="/products/thrifty-band-tee/">
    <p>Band tee [TEE-0007]</p>
    <div class="overlay"><span>Sold</span></div>
  </a>
  <a href="/products/thrifty-mystery-box/">
    <p>Mystery box, no sku here</p>
  </a>
</div>
</body></html>`

func newTestAdapter(t *testing.T, items ...*model.InventoryItem) *Adapter {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(shopPageHTML)); err != nil {
			t.Fatalf("writing page: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	repo := store.NewMemRepo()
	repo.Seed(items...)
	engine := lifecycle.NewEngine(repo, lifecycle.DefaultRules())
	rec := marketplace.NewReconciler(engine, repo, nil)

	a := New("thrifty", rec)
	a.baseURL = srv.URL
	a.MarkConnected()
	return a
}

func TestPullMarksSoldTile(t *testing.T) {
	jacket := &model.InventoryItem{ID: "jacket", SKU: "JKT-0042", Qty: 1, Platforms: []string{"depop"}}
	tee := &model.InventoryItem{ID: "tee", SKU: "TEE-0007", Qty: 1, Platforms: []string{"depop", "ebay"}}

	a := newTestAdapter(t, jacket, tee)
	res, err := a.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}

	if res.Matched != 2 {
		t.Errorf("Matched = %d, want 2", res.Matched)
	}
	if res.Unmatched != 1 {
		t.Errorf("Unmatched = %d, want 1 (the sku-less mystery box)", res.Unmatched)
	}
	if got := jacket.StatusFor("depop"); got != model.StatusActive {
		t.Errorf("jacket status = %q, want active", got)
	}
	if got := tee.StatusFor("depop"); got != model.StatusSold {
		t.Errorf("tee status = %q, want sold", got)
	}
	if tee.ExternalRefs["depop"] != "thrifty-band-tee" {
		t.Errorf("tee external ref = %q, want slug", tee.ExternalRefs["depop"])
	}
}

func TestPushUnsupported(t *testing.T) {
	a := newTestAdapter(t)

	res, err := a.Push(context.Background(), "anything")
	if !errors.Is(err, marketplace.ErrUnsupported) {
		t.Errorf("Push() error = %v, want ErrUnsupported", err)
	}
	if res != nil {
		t.Errorf("Push() result = %+v, want nil alongside the error", res)
	}
	if err == nil || !strings.Contains(err.Error(), "list manually") {
		t.Errorf("Push() error %q should carry the manual-listing hint", err)
	}
}

func TestParseProductTilesExtractsSKUToken(t *testing.T) {
	a := newTestAdapter(t)
	doc, err := a.fetchShopPage(context.Background())
	if err != nil {
		t.Fatalf("fetchShopPage() error = %v", err)
	}

	listings := a.parseProductTiles(doc)
	if len(listings) != 3 {
		t.Fatalf("parsed %d tiles, want 3", len(listings))
	}

	bySlug := make(map[string]int)
	for i, rl := range listings {
		bySlug[rl.ExternalID] = i
	}
	jacket := listings[bySlug["thrifty-vintage-denim-jacket"]]
	if jacket.SKU != "JKT-0042" || jacket.Quantity != 1 {
		t.Errorf("jacket = %+v, want sku JKT-0042 qty 1", jacket)
	}
	tee := listings[bySlug["thrifty-band-tee"]]
	if tee.Quantity != 0 {
		t.Errorf("sold tee quantity = %d, want 0", tee.Quantity)
	}
	box := listings[bySlug["thrifty-mystery-box"]]
	if box.SKU != "" {
		t.Errorf("box sku = %q, want empty", box.SKU)
	}
}
