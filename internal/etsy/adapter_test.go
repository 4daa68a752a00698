package etsy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guarzo/crosslist/internal/lifecycle"
	"github.com/guarzo/crosslist/internal/marketplace"
	"github.com/guarzo/crosslist/internal/model"
	"github.com/guarzo/crosslist/internal/ratelimit"
	"github.com/guarzo/crosslist/internal/store"
)

func newTestAdapter(t *testing.T, handler http.Handler, items ...*model.InventoryItem) *Adapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	repo := store.NewMemRepo()
	repo.Seed(items...)
	engine := lifecycle.NewEngine(repo, lifecycle.DefaultRules())
	rec := marketplace.NewReconciler(engine, repo, nil)

	a := New(Config{APIKey: "key", AccessToken: "token", ShopID: 42}, rec, nil,
		ratelimit.NewLimiter(100, time.Millisecond))
	a.baseURL = srv.URL
	a.MarkConnected()
	return a
}

func jsonHandler(t *testing.T, routes map[string]interface{}) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		body, ok := routes[key]
		if !ok {
			t.Errorf("unexpected request: %s", key)
			http.NotFound(w, r)
			return
		}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Fatalf("encoding response: %v", err)
		}
	})
}

func TestAvailable(t *testing.T) {
	a := New(Config{}, nil, nil, nil)
	if a.Available() {
		t.Error("Available() = true without credentials")
	}
	a = New(Config{APIKey: "k", AccessToken: "t", ShopID: 1}, nil, nil, nil)
	if !a.Available() {
		t.Error("Available() = false with full credentials")
	}
}

func TestPullSoldOutListingMarksSold(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Qty: 1, Platforms: []string{"etsy"}}

	listings := map[string]interface{}{
		"count": 1,
		"results": []map[string]interface{}{
			{
				"listing_id": 555,
				"title":      "Vintage lamp",
				"state":      "sold_out",
				"quantity":   1, // last known quantity; state wins
				"skus":       []string{"SKU-1"},
				"price":      map[string]int64{"amount": 2500, "divisor": 100},
			},
		},
	}
	receipts := map[string]interface{}{"count": 0, "results": []interface{}{}}

	a := newTestAdapter(t, jsonHandler(t, map[string]interface{}{
		"GET /v3/application/shops/42/listings": listings,
		"GET /v3/application/shops/42/receipts": receipts,
	}), item)

	res, err := a.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if res.Matched != 1 || res.Updated != 1 {
		t.Errorf("result = %+v, want matched=1 updated=1", res)
	}
	if got := item.StatusFor("etsy"); got != model.StatusSold {
		t.Errorf("status = %q, want sold", got)
	}
	if item.ExternalRefs["etsy"] != "555" {
		t.Errorf("external ref = %q, want 555", item.ExternalRefs["etsy"])
	}
}

func TestPullReceiptsCascades(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Qty: 1, Platforms: []string{"etsy", "ebay"}}

	listings := map[string]interface{}{"count": 0, "results": []interface{}{}}
	receipts := map[string]interface{}{
		"count": 1,
		"results": []map[string]interface{}{
			{
				"receipt_id":        777,
				"created_timestamp": time.Now().Unix(),
				"transactions": []map[string]interface{}{
					{
						"listing_id": 555,
						"sku":        "SKU-1",
						"quantity":   1,
						"price":      map[string]int64{"amount": 1999, "divisor": 100},
					},
				},
			},
		},
	}

	a := newTestAdapter(t, jsonHandler(t, map[string]interface{}{
		"GET /v3/application/shops/42/listings": listings,
		"GET /v3/application/shops/42/receipts": receipts,
	}), item)

	if _, err := a.Pull(context.Background()); err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if item.Qty != 0 {
		t.Errorf("Qty = %d, want 0", item.Qty)
	}
	if got := item.StatusFor("etsy"); got != model.StatusSold {
		t.Errorf("etsy status = %q, want sold", got)
	}
	if got := item.StatusFor("ebay"); got != model.StatusSoldElsewhere {
		t.Errorf("ebay status = %q, want sold-elsewhere", got)
	}
}

func TestPushCreatesDraft(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Title: "Vintage lamp", Qty: 1, PriceCents: 2500, Platforms: []string{"etsy"}}

	a := newTestAdapter(t, jsonHandler(t, map[string]interface{}{
		"POST /v3/application/shops/42/listings": map[string]int64{"listing_id": 901},
	}), item)

	res, err := a.Push(context.Background(), "i1")
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if !res.Success || res.ExternalRef != "901" {
		t.Errorf("result = %+v, want success with listing id 901", res)
	}
	if got := item.StatusFor("etsy"); got != model.StatusDraft {
		t.Errorf("status = %q, want draft", got)
	}
}

func TestPublishRequiresPriorPush(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Qty: 1, PriceCents: 2500, Platforms: []string{"etsy"}}
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected remote call %s %s", r.Method, r.URL.Path)
	}), item)

	res, err := a.Publish(context.Background(), "i1")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.Success {
		t.Error("Publish() succeeded without an external ref")
	}
}

func TestEndDelistsLocally(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Qty: 1, Platforms: []string{"etsy"}}
	item.SetExternalRef("etsy", "555")

	a := newTestAdapter(t, jsonHandler(t, map[string]interface{}{
		"PATCH /v3/application/shops/42/listings/555": map[string]string{},
	}), item)

	res, err := a.End(context.Background(), "i1")
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if !res.Success {
		t.Errorf("End() = %+v, want success", res)
	}
	if got := item.StatusFor("etsy"); got != model.StatusDelisted {
		t.Errorf("status = %q, want delisted", got)
	}
}

func TestCentsFrom(t *testing.T) {
	tests := []struct {
		amount  int64
		divisor int64
		want    int
	}{
		{2500, 100, 2500},
		{25, 1, 2500},
		{1999, 100, 1999},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := centsFrom(tt.amount, tt.divisor); got != tt.want {
			t.Errorf("centsFrom(%d, %d) = %d, want %d", tt.amount, tt.divisor, got, tt.want)
		}
	}
}
