package ebay

import (
	"context"
	"encoding/json"
	"errors"
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

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

type nullRecorder struct{ count int }

func (n *nullRecorder) RecordSale(itemID, sku, platform string, priceCents int, at time.Time) error {
	n.count++
	return nil
}

func newTestAdapter(t *testing.T, handler http.Handler, items ...*model.InventoryItem) (*Adapter, *store.MemRepo, *nullRecorder) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	repo := store.NewMemRepo()
	repo.Seed(items...)
	engine := lifecycle.NewEngine(repo, lifecycle.DefaultRules())
	recorder := &nullRecorder{}
	rec := marketplace.NewReconciler(engine, repo, recorder)

	a := New(nil, rec, nil, ratelimit.NewLimiter(100, time.Millisecond))
	a.auth = staticToken("test-token")
	a.configured = true
	a.baseURL = srv.URL
	a.MarkConnected()
	return a, repo, recorder
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
	a := New(NewOAuthManager(OAuthConfig{}), nil, nil, nil)
	if a.Available() {
		t.Error("Available() = true without credentials")
	}

	a = New(NewOAuthManager(OAuthConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	}), nil, nil, nil)
	if !a.Available() {
		t.Error("Available() = false with full credentials")
	}
}

func TestPullMarksZeroQuantityListingSold(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Qty: 1, Platforms: []string{"ebay"}}

	inventory := map[string]interface{}{
		"inventoryItems": []map[string]interface{}{
			{
				"sku": "SKU-1",
				"availability": map[string]interface{}{
					"shipToLocationAvailability": map[string]int{"quantity": 0},
				},
				"product": map[string]interface{}{"title": "Red sneakers"},
			},
		},
		"total": 1,
	}
	orders := map[string]interface{}{"orders": []interface{}{}, "total": 0}

	a, _, _ := newTestAdapter(t, jsonHandler(t, map[string]interface{}{
		"GET /sell/inventory/v1/inventory_item": inventory,
		"GET /sell/fulfillment/v1/order":        orders,
	}), item)

	res, err := a.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if res.Matched != 1 || res.Updated != 1 {
		t.Errorf("result = %+v, want matched=1 updated=1", res)
	}
	if got := item.StatusFor("ebay"); got != model.StatusSold {
		t.Errorf("status = %q, want sold", got)
	}
}

func TestPullOrdersRunsSaleTransition(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Qty: 1, Platforms: []string{"ebay", "etsy"}}

	inventory := map[string]interface{}{"inventoryItems": []interface{}{}, "total": 0}
	orders := map[string]interface{}{
		"orders": []map[string]interface{}{
			{
				"orderId":      "ord-1",
				"creationDate": time.Now().UTC().Format(time.RFC3339),
				"lineItems": []map[string]interface{}{
					{"sku": "SKU-1", "quantity": 1, "total": map[string]string{"value": "25.99"}},
				},
			},
		},
		"total": 1,
	}

	a, _, recorder := newTestAdapter(t, jsonHandler(t, map[string]interface{}{
		"GET /sell/inventory/v1/inventory_item": inventory,
		"GET /sell/fulfillment/v1/order":        orders,
	}), item)

	res, err := a.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if res.SalesRecorded != 1 || recorder.count != 1 {
		t.Errorf("sales recorded = %d/%d, want 1/1", res.SalesRecorded, recorder.count)
	}
	if item.Qty != 0 {
		t.Errorf("Qty = %d, want 0", item.Qty)
	}
	if got := item.StatusFor("etsy"); got != model.StatusSoldElsewhere {
		t.Errorf("etsy status = %q, want sold-elsewhere after cascade", got)
	}
}

func TestPullRejectedWhileSyncing(t *testing.T) {
	a, _, _ := newTestAdapter(t, http.NotFoundHandler())

	if err := a.BeginSync(); err != nil {
		t.Fatalf("BeginSync() error = %v", err)
	}
	if _, err := a.Pull(context.Background()); !errors.Is(err, marketplace.ErrSyncInProgress) {
		t.Errorf("Pull() during sync = %v, want ErrSyncInProgress", err)
	}
}

func TestPullRequiresConnection(t *testing.T) {
	a, _, _ := newTestAdapter(t, http.NotFoundHandler())
	a.MarkDisconnected()

	if _, err := a.Pull(context.Background()); !errors.Is(err, marketplace.ErrNotConnected) {
		t.Errorf("Pull() disconnected = %v, want ErrNotConnected", err)
	}
}

func TestPublishRefusesZeroPrice(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Qty: 1, PriceCents: 0, Platforms: []string{"ebay"}}
	a, _, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected remote call %s %s for unpriced item", r.Method, r.URL.Path)
	}), item)

	res, err := a.Publish(context.Background(), "i1")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.Success {
		t.Error("Publish() succeeded without a price")
	}
	if got := item.StatusFor("ebay"); got != model.StatusActive {
		t.Errorf("local status changed to %q on failed publish", got)
	}
}

func TestPublishActivatesListing(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Qty: 1, PriceCents: 2500, Platforms: []string{"ebay"}}
	item.SetStatus("ebay", model.StatusDraft)

	a, _, _ := newTestAdapter(t, jsonHandler(t, map[string]interface{}{
		"POST /sell/inventory/v1/offer":                 map[string]string{"offerId": "offer-7"},
		"POST /sell/inventory/v1/offer/offer-7/publish": map[string]string{"listingId": "110012345"},
	}), item)

	res, err := a.Publish(context.Background(), "i1")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !res.Success || res.ExternalRef != "110012345" {
		t.Errorf("result = %+v, want success with listing id", res)
	}
	if got := item.StatusFor("ebay"); got != model.StatusActive {
		t.Errorf("status = %q, want active", got)
	}
	if _, ok := item.PlatformListingDates["ebay"]; !ok {
		t.Error("listing date not set on publish")
	}
	if item.ExternalRefs["ebay"] != "110012345" {
		t.Errorf("external ref = %q, want listing id", item.ExternalRefs["ebay"])
	}
}

func TestEndDelistsLocally(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Qty: 1, Platforms: []string{"ebay"}}

	a, _, _ := newTestAdapter(t, jsonHandler(t, map[string]interface{}{
		"PUT /sell/inventory/v1/inventory_item/SKU-1": map[string]string{},
	}), item)

	res, err := a.End(context.Background(), "i1")
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if !res.Success {
		t.Errorf("End() = %+v, want success", res)
	}
	if got := item.StatusFor("ebay"); got != model.StatusDelisted {
		t.Errorf("status = %q, want delisted", got)
	}
}

func TestPushMarksDraft(t *testing.T) {
	item := &model.InventoryItem{ID: "i1", SKU: "SKU-1", Title: "Red sneakers", Condition: "good", Qty: 1, Platforms: []string{"ebay"}}

	var captured inventoryUpsertDTO
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PUT" || r.URL.Path != "/sell/inventory/v1/inventory_item/SKU-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	a, _, _ := newTestAdapter(t, handler, item)
	res, err := a.Push(context.Background(), "i1")
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if !res.Success || res.ExternalRef != "SKU-1" {
		t.Errorf("result = %+v, want success keyed by SKU", res)
	}
	if captured.Condition != "3000" {
		t.Errorf("condition code = %q, want 3000 for good", captured.Condition)
	}
	if got := item.StatusFor("ebay"); got != model.StatusDraft {
		t.Errorf("status = %q, want draft", got)
	}
}

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"25.99", 2599},
		{"0.01", 1},
		{"100", 10000},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := parseCents(tt.in); got != tt.want {
			t.Errorf("parseCents(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
