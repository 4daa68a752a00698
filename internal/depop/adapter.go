// Package depop is a pull-only adapter. Depop has no public seller
// API, so reconciliation scrapes the seller's shop page and reads sold
// overlays off the product tiles. Pushes report unsupported; listing
// on Depop stays a manual step.
package depop

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"

	"github.com/guarzo/crosslist/internal/marketplace"
)

const platformName = "depop"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// skuToken matches a bracketed SKU resellers embed in their listing
// titles, e.g. "Vintage denim jacket [JKT-0042]".
var skuToken = regexp.MustCompile(`\[([A-Za-z0-9_-]+)\]`)

// Adapter implements marketplace.Adapter for Depop, pull side only.
type Adapter struct {
	marketplace.Conn

	seller     string
	rec        *marketplace.Reconciler
	httpClient *http.Client
	baseURL    string
}

// New creates the Depop adapter for one seller handle.
func New(seller string, rec *marketplace.Reconciler) *Adapter {
	return &Adapter{
		seller:     strings.TrimPrefix(seller, "@"),
		rec:        rec,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://www.depop.com",
	}
}

func (a *Adapter) Platform() string { return platformName }

// Available only needs a seller handle; there are no credentials.
func (a *Adapter) Available() bool { return a.seller != "" }

// Connect verifies the shop page exists.
func (a *Adapter) Connect(ctx context.Context) error {
	if !a.Available() {
		return fmt.Errorf("depop adapter not configured")
	}
	a.MarkConnecting()
	if _, err := a.fetchShopPage(ctx); err != nil {
		a.MarkDisconnected()
		return fmt.Errorf("connecting to depop: %w", err)
	}
	a.MarkConnected()
	return nil
}

func (a *Adapter) Disconnect() { a.MarkDisconnected() }

// Pull scrapes the shop page and reconciles sold tiles against local
// items. There is no order feed, so sales surface as zero-quantity
// listings and the engine's listing reconciliation does the rest.
func (a *Adapter) Pull(ctx context.Context) (*marketplace.PullResult, error) {
	if err := a.BeginSync(); err != nil {
		return nil, err
	}
	defer a.EndSync()

	res := &marketplace.PullResult{Platform: platformName}

	doc, err := a.fetchShopPage(ctx)
	if err != nil {
		log.Printf("depop: shop page fetch failed: %v", err)
		return res, nil
	}

	listings := a.parseProductTiles(doc)
	if err := a.rec.ApplyListings(platformName, listings, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Push is unsupported: Depop exposes no listing write API. The reason
// travels in the error so callers surfacing err.Error() show it.
func (a *Adapter) Push(ctx context.Context, itemID string) (*marketplace.PushResult, error) {
	return nil, fmt.Errorf("depop has no listing API, list manually: %w", marketplace.ErrUnsupported)
}

// Publish is unsupported, see Push.
func (a *Adapter) Publish(ctx context.Context, itemID string) (*marketplace.PushResult, error) {
	return a.Push(ctx, itemID)
}

// End is unsupported, see Push.
func (a *Adapter) End(ctx context.Context, itemID string) (*marketplace.PushResult, error) {
	return a.Push(ctx, itemID)
}

func (a *Adapter) fetchShopPage(ctx context.Context) (*goquery.Document, error) {
	url := fmt.Sprintf("%s/%s/", a.baseURL, a.seller)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	a.setBrowserHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shop page returned status %d", resp.StatusCode)
	}

	reader, err := a.getReader(resp)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing shop page: %w", err)
	}
	return doc, nil
}

// parseProductTiles extracts one RemoteListing per product link. A
// tile carrying a "Sold" marker is reported as quantity zero.
func (a *Adapter) parseProductTiles(doc *goquery.Document) []marketplace.RemoteListing {
	var listings []marketplace.RemoteListing
	seen := make(map[string]bool)

	doc.Find(`a[href^="/products/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		slug := strings.Trim(strings.TrimPrefix(href, "/products/"), "/")
		if slug == "" || seen[slug] {
			return
		}
		seen[slug] = true

		text := strings.TrimSpace(sel.Text())
		rl := marketplace.RemoteListing{
			ExternalID: slug,
			Title:      text,
			Quantity:   1,
		}
		if m := skuToken.FindStringSubmatch(text); m != nil {
			rl.SKU = m[1]
		}
		// The sold overlay is its own element with exactly "Sold" as
		// text; substring checks would trip on titles.
		sel.Find("span, div").EachWithBreak(func(_ int, inner *goquery.Selection) bool {
			if strings.EqualFold(strings.TrimSpace(inner.Text()), "sold") {
				rl.Quantity = 0
				return false
			}
			return true
		})
		listings = append(listings, rl)
	})

	return listings
}

func (a *Adapter) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Connection", "keep-alive")
}

func (a *Adapter) getReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

var _ marketplace.Adapter = (*Adapter)(nil)
