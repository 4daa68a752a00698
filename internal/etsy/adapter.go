// Package etsy syncs local listing state with the Etsy v3 API. Etsy
// reports prices as amount/divisor pairs and listing state as strings
// ("active", "inactive", "draft", "sold_out", "expired").
package etsy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/guarzo/crosslist/internal/cache"
	"github.com/guarzo/crosslist/internal/marketplace"
	"github.com/guarzo/crosslist/internal/model"
	"github.com/guarzo/crosslist/internal/ratelimit"
)

const (
	platformName = "etsy"
	pageLimit    = 100
)

// Config holds Etsy credentials. ShopID scopes every listing call.
type Config struct {
	APIKey      string
	AccessToken string
	ShopID      int64
}

// Adapter implements marketplace.Adapter against Etsy.
type Adapter struct {
	marketplace.Conn

	config       Config
	rec          *marketplace.Reconciler
	cache        *cache.Cache
	httpClient   *http.Client
	baseURL      string
	readLimiter  *rate.Limiter
	writeLimiter *ratelimit.Limiter
}

// New creates the Etsy adapter.
func New(config Config, rec *marketplace.Reconciler, c *cache.Cache, writes *ratelimit.Limiter) *Adapter {
	if writes == nil {
		writes = ratelimit.NewDefaultWriteLimiters().Etsy
	}
	return &Adapter{
		config:       config,
		rec:          rec,
		cache:        c,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      "https://openapi.etsy.com",
		readLimiter:  rate.NewLimiter(rate.Every(150*time.Millisecond), 5),
		writeLimiter: writes,
	}
}

func (a *Adapter) Platform() string { return platformName }

// Available reports whether credentials were configured.
func (a *Adapter) Available() bool {
	return a.config.APIKey != "" && a.config.AccessToken != "" && a.config.ShopID != 0
}

// Connect verifies credentials with a cheap shop lookup.
func (a *Adapter) Connect(ctx context.Context) error {
	if !a.Available() {
		return fmt.Errorf("etsy adapter not configured")
	}
	a.MarkConnecting()
	var shop struct {
		ShopID int64 `json:"shop_id"`
	}
	if err := a.get(ctx, fmt.Sprintf("/v3/application/shops/%d", a.config.ShopID), &shop); err != nil {
		a.MarkDisconnected()
		return fmt.Errorf("connecting to etsy: %w", err)
	}
	a.MarkConnected()
	return nil
}

func (a *Adapter) Disconnect() { a.MarkDisconnected() }

// listingDTO mirrors the fields of Etsy's listing response we consume.
type listingDTO struct {
	ListingID int64    `json:"listing_id"`
	Title     string   `json:"title"`
	State     string   `json:"state"`
	Quantity  int      `json:"quantity"`
	SKUs      []string `json:"skus"`
	Price     struct {
		Amount  int64 `json:"amount"`
		Divisor int64 `json:"divisor"`
	} `json:"price"`
}

type listingPageDTO struct {
	Count   int          `json:"count"`
	Results []listingDTO `json:"results"`
}

type receiptPageDTO struct {
	Count   int `json:"count"`
	Results []struct {
		ReceiptID    int64 `json:"receipt_id"`
		CreatedEpoch int64 `json:"created_timestamp"`
		Transactions []struct {
			ListingID int64  `json:"listing_id"`
			SKU       string `json:"sku"`
			Quantity  int    `json:"quantity"`
			Price     struct {
				Amount  int64 `json:"amount"`
				Divisor int64 `json:"divisor"`
			} `json:"price"`
		} `json:"transactions"`
	} `json:"results"`
}

// Pull pages through shop listings and recent receipts, reconciling
// both against local items. Sub-step failures are logged, not fatal.
func (a *Adapter) Pull(ctx context.Context) (*marketplace.PullResult, error) {
	if err := a.BeginSync(); err != nil {
		return nil, err
	}
	defer a.EndSync()

	res := &marketplace.PullResult{Platform: platformName}

	if err := a.pullListings(ctx, res); err != nil {
		log.Printf("etsy: listing pull failed: %v", err)
	}
	if err := a.pullReceipts(ctx, res); err != nil {
		log.Printf("etsy: receipt pull failed: %v", err)
	}

	return res, nil
}

func (a *Adapter) pullListings(ctx context.Context, res *marketplace.PullResult) error {
	for offset := 0; ; {
		var page listingPageDTO
		path := fmt.Sprintf("/v3/application/shops/%d/listings?limit=%d&offset=%d",
			a.config.ShopID, pageLimit, offset)
		if err := a.get(ctx, path, &page); err != nil {
			return err
		}

		listings := make([]marketplace.RemoteListing, 0, len(page.Results))
		for _, dto := range page.Results {
			rl := marketplace.RemoteListing{
				ExternalID: strconv.FormatInt(dto.ListingID, 10),
				Title:      dto.Title,
				Quantity:   dto.Quantity,
				PriceCents: centsFrom(dto.Price.Amount, dto.Price.Divisor),
			}
			if len(dto.SKUs) > 0 {
				rl.SKU = dto.SKUs[0]
			}
			// Etsy reports sold-out listings with state sold_out and
			// their last quantity; normalize to zero so the engine sees
			// the sale.
			if dto.State == "sold_out" {
				rl.Quantity = 0
			}
			listings = append(listings, rl)
		}
		if err := a.rec.ApplyListings(platformName, listings, res); err != nil {
			return err
		}

		offset += len(page.Results)
		if len(page.Results) == 0 || offset >= page.Count {
			return nil
		}
	}
}

func (a *Adapter) pullReceipts(ctx context.Context, res *marketplace.PullResult) error {
	for offset := 0; ; {
		var page receiptPageDTO
		path := fmt.Sprintf("/v3/application/shops/%d/receipts?limit=%d&offset=%d",
			a.config.ShopID, pageLimit, offset)
		if err := a.get(ctx, path, &page); err != nil {
			return err
		}

		orders := make([]marketplace.RemoteOrder, 0, len(page.Results))
		for _, dto := range page.Results {
			order := marketplace.RemoteOrder{
				OrderID:   strconv.FormatInt(dto.ReceiptID, 10),
				CreatedAt: time.Unix(dto.CreatedEpoch, 0),
			}
			for _, tx := range dto.Transactions {
				order.Lines = append(order.Lines, marketplace.RemoteOrderLine{
					SKU:        tx.SKU,
					ExternalID: strconv.FormatInt(tx.ListingID, 10),
					Quantity:   tx.Quantity,
					TotalCents: centsFrom(tx.Price.Amount, tx.Price.Divisor) * tx.Quantity,
				})
			}
			orders = append(orders, order)
		}
		if err := a.rec.ApplyOrders(platformName, orders, res); err != nil {
			return err
		}

		offset += len(page.Results)
		if len(page.Results) == 0 || offset >= page.Count {
			return nil
		}
	}
}

type listingUpsertDTO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	Price       float64  `json:"price"`
	WhoMade     string   `json:"who_made"`
	WhenMade    string   `json:"when_made"`
	TaxonomyID  int64    `json:"taxonomy_id"`
	ImageURLs   []string `json:"image_urls,omitempty"`
	State       string   `json:"state"`
}

// Push creates or updates the item as a draft listing.
func (a *Adapter) Push(ctx context.Context, itemID string) (*marketplace.PushResult, error) {
	if err := a.BeginSync(); err != nil {
		return nil, err
	}
	defer a.EndSync()

	item, err := a.rec.FindItem(itemID)
	if err != nil {
		return nil, err
	}

	payload := listingUpsertDTO{
		Title:       item.Title,
		Description: item.Description,
		Quantity:    item.Qty,
		Price:       float64(item.PriceCents) / 100,
		WhoMade:     "someone_else",
		WhenMade:    "2020_2026",
		TaxonomyID:  1,
		ImageURLs:   item.Images,
		State:       "draft",
	}

	if ref := item.ExternalRefs[platformName]; ref != "" {
		path := fmt.Sprintf("/v3/application/shops/%d/listings/%s", a.config.ShopID, ref)
		if err := a.write(ctx, "PATCH", path, payload, nil); err != nil {
			return &marketplace.PushResult{Success: false, Reason: err.Error()}, nil
		}
		return &marketplace.PushResult{Success: true, ExternalRef: ref}, nil
	}

	var created struct {
		ListingID int64 `json:"listing_id"`
	}
	path := fmt.Sprintf("/v3/application/shops/%d/listings", a.config.ShopID)
	if err := a.write(ctx, "POST", path, payload, &created); err != nil {
		return &marketplace.PushResult{Success: false, Reason: err.Error()}, nil
	}

	ref := strconv.FormatInt(created.ListingID, 10)
	item.SetExternalRef(platformName, ref)
	if err := a.rec.UpdateItem(item); err != nil {
		return nil, err
	}
	if err := a.rec.Engine().SetStatus(itemID, platformName, model.StatusDraft); err != nil {
		return nil, err
	}
	return &marketplace.PushResult{Success: true, ExternalRef: ref}, nil
}

// Publish flips the draft to active. Etsy refuses unpriced listings,
// and so do we before making the call.
func (a *Adapter) Publish(ctx context.Context, itemID string) (*marketplace.PushResult, error) {
	if err := a.BeginSync(); err != nil {
		return nil, err
	}
	defer a.EndSync()

	item, err := a.rec.FindItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.PriceCents <= 0 {
		return &marketplace.PushResult{Success: false, Reason: "price must be positive before publishing"}, nil
	}
	ref := item.ExternalRefs[platformName]
	if ref == "" {
		return &marketplace.PushResult{Success: false, Reason: "push the listing before publishing"}, nil
	}

	path := fmt.Sprintf("/v3/application/shops/%d/listings/%s", a.config.ShopID, ref)
	if err := a.write(ctx, "PATCH", path, map[string]string{"state": "active"}, nil); err != nil {
		return &marketplace.PushResult{Success: false, Reason: err.Error()}, nil
	}

	engine := a.rec.Engine()
	if err := engine.SetListingDate(itemID, platformName, time.Time{}); err != nil {
		return nil, err
	}
	if err := engine.SetStatus(itemID, platformName, model.StatusActive); err != nil {
		return nil, err
	}
	return &marketplace.PushResult{Success: true, ExternalRef: ref}, nil
}

// End deactivates the remote listing and delists locally.
func (a *Adapter) End(ctx context.Context, itemID string) (*marketplace.PushResult, error) {
	if err := a.BeginSync(); err != nil {
		return nil, err
	}
	defer a.EndSync()

	item, err := a.rec.FindItem(itemID)
	if err != nil {
		return nil, err
	}
	ref := item.ExternalRefs[platformName]
	if ref == "" {
		return &marketplace.PushResult{Success: false, Reason: "no etsy listing to end"}, nil
	}

	path := fmt.Sprintf("/v3/application/shops/%d/listings/%s", a.config.ShopID, ref)
	payload := map[string]interface{}{"state": "inactive", "quantity": 0}
	if err := a.write(ctx, "PATCH", path, payload, nil); err != nil {
		return &marketplace.PushResult{Success: false, Reason: err.Error()}, nil
	}

	if err := a.rec.Engine().SetStatus(itemID, platformName, model.StatusDelisted); err != nil {
		return nil, err
	}
	return &marketplace.PushResult{Success: true}, nil
}

// RelistRemote reactivates an ended listing and restores its quantity,
// then resets the local clock through the engine's relist.
func (a *Adapter) RelistRemote(ctx context.Context, itemID string) (*marketplace.PushResult, error) {
	if err := a.BeginSync(); err != nil {
		return nil, err
	}
	defer a.EndSync()

	item, err := a.rec.FindItem(itemID)
	if err != nil {
		return nil, err
	}
	ref := item.ExternalRefs[platformName]
	if ref == "" {
		return &marketplace.PushResult{Success: false, Reason: "no existing etsy listing to relist"}, nil
	}

	path := fmt.Sprintf("/v3/application/shops/%d/listings/%s", a.config.ShopID, ref)
	payload := map[string]interface{}{"state": "active", "quantity": item.Qty}
	if err := a.write(ctx, "PATCH", path, payload, nil); err != nil {
		return &marketplace.PushResult{Success: false, Reason: err.Error()}, nil
	}

	if err := a.rec.Engine().Relist(itemID, platformName); err != nil {
		return nil, err
	}
	return &marketplace.PushResult{Success: true, ExternalRef: ref}, nil
}

func (a *Adapter) get(ctx context.Context, path string, target interface{}) error {
	if err := a.readLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	a.authorize(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("etsy API returned %d: %s", resp.StatusCode, apiErrorMessage(resp.Body))
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func (a *Adapter) write(ctx context.Context, method, path string, payload, target interface{}) error {
	if !a.writeLimiter.WaitWithTimeout(10 * time.Second) {
		return fmt.Errorf("etsy write quota exhausted, try again shortly")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	a.authorize(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("etsy API returned %d: %s", resp.StatusCode, apiErrorMessage(resp.Body))
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil && err != io.EOF {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (a *Adapter) authorize(req *http.Request) {
	req.Header.Set("x-api-key", a.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+a.config.AccessToken)
	req.Header.Set("Accept", "application/json")
}

func apiErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(body)
}

// centsFrom converts Etsy's amount/divisor money shape to cents.
func centsFrom(amount, divisor int64) int {
	if divisor == 0 {
		return 0
	}
	return int(amount * 100 / divisor)
}

var _ marketplace.Adapter = (*Adapter)(nil)
