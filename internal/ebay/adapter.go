// Package ebay syncs local listing state with eBay's Sell APIs
// (Inventory for listings, Fulfillment for orders).
package ebay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
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
	platformName = "ebay"
	pageLimit    = 100
)

// Adapter implements marketplace.Adapter against eBay.
type Adapter struct {
	marketplace.Conn

	auth          TokenSource
	configured    bool
	rec           *marketplace.Reconciler
	cache         *cache.Cache
	httpClient    *http.Client
	baseURL       string
	readLimiter   *rate.Limiter
	writeLimiter  *ratelimit.Limiter
	marketplaceID string
}

// New creates the eBay adapter. cache may be nil; the write limiter
// defaults to the platform's standard budget when nil.
func New(auth *OAuthManager, rec *marketplace.Reconciler, c *cache.Cache, writes *ratelimit.Limiter) *Adapter {
	if writes == nil {
		writes = ratelimit.NewDefaultWriteLimiters().EBay
	}
	baseURL := "https://api.ebay.com"
	if auth != nil && auth.config.Sandbox {
		baseURL = "https://api.sandbox.ebay.com"
	}
	return &Adapter{
		auth:          auth,
		configured:    auth != nil && auth.Configured(),
		rec:           rec,
		cache:         c,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       baseURL,
		readLimiter:   rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		writeLimiter:  writes,
		marketplaceID: "EBAY_US",
	}
}

func (a *Adapter) Platform() string { return platformName }

// Available reports whether credentials were configured.
func (a *Adapter) Available() bool { return a.configured }

// Connect validates credentials by minting a token.
func (a *Adapter) Connect(ctx context.Context) error {
	if !a.Available() {
		return fmt.Errorf("ebay adapter not configured")
	}
	a.MarkConnecting()
	if _, err := a.auth.Token(ctx); err != nil {
		a.MarkDisconnected()
		return fmt.Errorf("connecting to ebay: %w", err)
	}
	a.MarkConnected()
	return nil
}

func (a *Adapter) Disconnect() { a.MarkDisconnected() }

// Pull pages through the inventory and recent orders, reconciling each
// against local items. A failure in one sub-step is logged and the
// other sub-step still runs; the sweep never aborts wholesale.
func (a *Adapter) Pull(ctx context.Context) (*marketplace.PullResult, error) {
	if err := a.BeginSync(); err != nil {
		return nil, err
	}
	defer a.EndSync()

	res := &marketplace.PullResult{Platform: platformName}

	if err := a.pullListings(ctx, res); err != nil {
		log.Printf("ebay: listing pull failed: %v", err)
	}
	if err := a.pullOrders(ctx, res); err != nil {
		log.Printf("ebay: order pull failed: %v", err)
	}

	return res, nil
}

type inventoryItemDTO struct {
	SKU          string `json:"sku"`
	Availability struct {
		ShipToLocationAvailability struct {
			Quantity int `json:"quantity"`
		} `json:"shipToLocationAvailability"`
	} `json:"availability"`
	Product struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		ImageURLs   []string `json:"imageUrls"`
		UPC         []string `json:"upc"`
		ISBN        []string `json:"isbn"`
	} `json:"product"`
}

type inventoryPageDTO struct {
	InventoryItems []inventoryItemDTO `json:"inventoryItems"`
	Total          int                `json:"total"`
	Offset         int                `json:"offset"`
	Limit          int                `json:"limit"`
}

func (a *Adapter) pullListings(ctx context.Context, res *marketplace.PullResult) error {
	for offset := 0; ; {
		var page inventoryPageDTO
		path := fmt.Sprintf("/sell/inventory/v1/inventory_item?limit=%d&offset=%d", pageLimit, offset)
		if err := a.get(ctx, path, &page); err != nil {
			return err
		}

		listings := make([]marketplace.RemoteListing, 0, len(page.InventoryItems))
		for _, dto := range page.InventoryItems {
			rl := marketplace.RemoteListing{
				ExternalID: dto.SKU,
				SKU:        dto.SKU,
				Title:      dto.Product.Title,
				Quantity:   dto.Availability.ShipToLocationAvailability.Quantity,
				ImageURLs:  dto.Product.ImageURLs,
			}
			if len(dto.Product.UPC) > 0 {
				rl.UPC = dto.Product.UPC[0]
			}
			if len(dto.Product.ISBN) > 0 {
				rl.ISBN = dto.Product.ISBN[0]
			}
			listings = append(listings, rl)
		}
		if err := a.rec.ApplyListings(platformName, listings, res); err != nil {
			return err
		}

		offset += len(page.InventoryItems)
		if len(page.InventoryItems) == 0 || offset >= page.Total {
			return nil
		}
	}
}

type orderPageDTO struct {
	Orders []struct {
		OrderID      string    `json:"orderId"`
		CreationDate time.Time `json:"creationDate"`
		LineItems    []struct {
			SKU      string `json:"sku"`
			Quantity int    `json:"quantity"`
			Total    struct {
				Value string `json:"value"`
			} `json:"total"`
		} `json:"lineItems"`
	} `json:"orders"`
	Total  int `json:"total"`
	Offset int `json:"offset"`
}

func (a *Adapter) pullOrders(ctx context.Context, res *marketplace.PullResult) error {
	for offset := 0; ; {
		var page orderPageDTO
		path := fmt.Sprintf("/sell/fulfillment/v1/order?limit=%d&offset=%d", pageLimit, offset)
		if err := a.get(ctx, path, &page); err != nil {
			return err
		}

		orders := make([]marketplace.RemoteOrder, 0, len(page.Orders))
		for _, dto := range page.Orders {
			order := marketplace.RemoteOrder{
				OrderID:   dto.OrderID,
				CreatedAt: dto.CreationDate,
			}
			for _, line := range dto.LineItems {
				order.Lines = append(order.Lines, marketplace.RemoteOrderLine{
					SKU:        line.SKU,
					Quantity:   line.Quantity,
					TotalCents: parseCents(line.Total.Value),
				})
			}
			orders = append(orders, order)
		}
		if err := a.rec.ApplyOrders(platformName, orders, res); err != nil {
			return err
		}

		offset += len(page.Orders)
		if len(page.Orders) == 0 || offset >= page.Total {
			return nil
		}
	}
}

// Push upserts the item as an eBay inventory item (a draft until an
// offer is published). The SKU doubles as the upsert key.
func (a *Adapter) Push(ctx context.Context, itemID string) (*marketplace.PushResult, error) {
	if err := a.BeginSync(); err != nil {
		return nil, err
	}
	defer a.EndSync()

	item, err := a.rec.FindItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.SKU == "" {
		return &marketplace.PushResult{Success: false, Reason: "item has no SKU"}, nil
	}

	if err := a.upsertInventoryItem(ctx, item, item.Qty); err != nil {
		return &marketplace.PushResult{Success: false, Reason: err.Error()}, nil
	}

	if err := a.rec.Engine().SetStatus(itemID, platformName, model.StatusDraft); err != nil {
		return nil, err
	}
	return &marketplace.PushResult{Success: true, ExternalRef: item.SKU}, nil
}

// Publish creates (or reuses) an offer for the item's SKU and
// publishes it, turning the draft into a live listing. Items without a
// positive price are refused before any remote call.
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

	offerID, err := a.ensureOffer(ctx, item)
	if err != nil {
		return &marketplace.PushResult{Success: false, Reason: err.Error()}, nil
	}

	listingID, err := a.publishOffer(ctx, offerID)
	if err != nil {
		return &marketplace.PushResult{Success: false, Reason: err.Error()}, nil
	}

	item.SetExternalRef(platformName, listingID)
	if err := a.rec.UpdateItem(item); err != nil {
		return nil, err
	}
	engine := a.rec.Engine()
	if err := engine.SetListingDate(itemID, platformName, time.Time{}); err != nil {
		return nil, err
	}
	if err := engine.SetStatus(itemID, platformName, model.StatusActive); err != nil {
		return nil, err
	}
	return &marketplace.PushResult{Success: true, ExternalRef: listingID}, nil
}

// End takes the listing off sale by zeroing remote quantity, then
// delists locally.
func (a *Adapter) End(ctx context.Context, itemID string) (*marketplace.PushResult, error) {
	if err := a.BeginSync(); err != nil {
		return nil, err
	}
	defer a.EndSync()

	item, err := a.rec.FindItem(itemID)
	if err != nil {
		return nil, err
	}

	if err := a.upsertInventoryItem(ctx, item, 0); err != nil {
		return &marketplace.PushResult{Success: false, Reason: err.Error()}, nil
	}

	if err := a.rec.Engine().SetStatus(itemID, platformName, model.StatusDelisted); err != nil {
		return nil, err
	}
	return &marketplace.PushResult{Success: true}, nil
}

// RelistRemote restores remote quantity for an item that already has
// an external reference, then runs the local relist so status and
// dates reset together.
func (a *Adapter) RelistRemote(ctx context.Context, itemID string) (*marketplace.PushResult, error) {
	if err := a.BeginSync(); err != nil {
		return nil, err
	}
	defer a.EndSync()

	item, err := a.rec.FindItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.ExternalRefs[platformName] == "" {
		return &marketplace.PushResult{Success: false, Reason: "no existing ebay listing to relist"}, nil
	}

	if err := a.upsertInventoryItem(ctx, item, item.Qty); err != nil {
		return &marketplace.PushResult{Success: false, Reason: err.Error()}, nil
	}

	if err := a.rec.Engine().Relist(itemID, platformName); err != nil {
		return nil, err
	}
	return &marketplace.PushResult{Success: true, ExternalRef: item.ExternalRefs[platformName]}, nil
}

type inventoryUpsertDTO struct {
	Availability struct {
		ShipToLocationAvailability struct {
			Quantity int `json:"quantity"`
		} `json:"shipToLocationAvailability"`
	} `json:"availability"`
	Condition string `json:"condition"`
	Product   struct {
		Title       string   `json:"title"`
		Description string   `json:"description,omitempty"`
		ImageURLs   []string `json:"imageUrls,omitempty"`
	} `json:"product"`
}

func (a *Adapter) upsertInventoryItem(ctx context.Context, item *model.InventoryItem, qty int) error {
	payload := inventoryUpsertDTO{}
	payload.Availability.ShipToLocationAvailability.Quantity = qty
	payload.Condition = marketplace.ConditionCode(platformName, item.Condition)
	payload.Product.Title = item.Title
	payload.Product.Description = item.Description
	payload.Product.ImageURLs = item.Images

	path := "/sell/inventory/v1/inventory_item/" + item.SKU
	return a.write(ctx, "PUT", path, payload, nil)
}

type offerCreateDTO struct {
	SKU            string `json:"sku"`
	MarketplaceID  string `json:"marketplaceId"`
	Format         string `json:"format"`
	PricingSummary struct {
		Price struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"price"`
	} `json:"pricingSummary"`
}

// ensureOffer returns the offer id for the item's SKU, creating one on
// first publish and caching it afterwards.
func (a *Adapter) ensureOffer(ctx context.Context, item *model.InventoryItem) (string, error) {
	cacheKey := "ebay:offer:" + item.SKU
	if a.cache != nil {
		var cached string
		if found, _ := a.cache.Get(cacheKey, &cached); found && cached != "" {
			return cached, nil
		}
	}

	payload := offerCreateDTO{
		SKU:           item.SKU,
		MarketplaceID: a.marketplaceID,
		Format:        "FIXED_PRICE",
	}
	payload.PricingSummary.Price.Value = fmt.Sprintf("%.2f", float64(item.PriceCents)/100)
	payload.PricingSummary.Price.Currency = "USD"

	var created struct {
		OfferID string `json:"offerId"`
	}
	if err := a.write(ctx, "POST", "/sell/inventory/v1/offer", payload, &created); err != nil {
		return "", err
	}
	if created.OfferID == "" {
		return "", fmt.Errorf("offer created without an id")
	}

	if a.cache != nil {
		_ = a.cache.Put(cacheKey, created.OfferID, 0)
	}
	return created.OfferID, nil
}

func (a *Adapter) publishOffer(ctx context.Context, offerID string) (string, error) {
	var published struct {
		ListingID string `json:"listingId"`
	}
	path := "/sell/inventory/v1/offer/" + offerID + "/publish"
	if err := a.write(ctx, "POST", path, struct{}{}, &published); err != nil {
		return "", err
	}
	return published.ListingID, nil
}

// get performs a rate-limited authorized GET and decodes into target.
func (a *Adapter) get(ctx context.Context, path string, target interface{}) error {
	if err := a.readLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if err := a.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ebay API returned %d: %s", resp.StatusCode, apiErrorMessage(resp.Body))
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// write performs a throttled authorized mutation. target may be nil
// for endpoints that return no body.
func (a *Adapter) write(ctx context.Context, method, path string, payload, target interface{}) error {
	if !a.writeLimiter.WaitWithTimeout(10 * time.Second) {
		return fmt.Errorf("ebay write quota exhausted, try again shortly")
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
	req.Header.Set("Content-Language", "en-US")
	if err := a.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ebay API returned %d: %s", resp.StatusCode, apiErrorMessage(resp.Body))
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil && err != io.EOF {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (a *Adapter) authorize(ctx context.Context, req *http.Request) error {
	token, err := a.auth.Token(ctx)
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return nil
}

// apiErrorMessage extracts the first human-readable error message from
// an eBay error body, falling back to the raw body.
func apiErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var parsed struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		return parsed.Errors[0].Message
	}
	return string(body)
}

func parseCents(value string) int {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int(math.Round(f * 100))
}

var _ marketplace.Adapter = (*Adapter)(nil)
