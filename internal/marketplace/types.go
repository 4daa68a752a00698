package marketplace

import "time"

// RemoteListing is the adapter-neutral shape of one listing as the
// marketplace reports it.
type RemoteListing struct {
	ExternalID string
	SKU        string
	Title      string
	Quantity   int
	PriceCents int
	UPC        string
	ISBN       string
	ImageURLs  []string
}

// RemoteOrderLine is one line item of a remote order.
type RemoteOrderLine struct {
	SKU        string
	ExternalID string
	Quantity   int
	TotalCents int
}

// RemoteOrder is one order pulled from the marketplace.
type RemoteOrder struct {
	OrderID   string
	CreatedAt time.Time
	Lines     []RemoteOrderLine
}

// PullResult summarizes one reconciliation pass. Unmatched remote
// listings are counted, never modified.
type PullResult struct {
	Platform      string `json:"platform"`
	Matched       int    `json:"matched"`
	Unmatched     int    `json:"unmatched"`
	Updated       int    `json:"updated"`
	SalesRecorded int    `json:"salesRecorded"`
}

// PushResult reports the outcome of a push, publish or end call.
// Failures carry a human-readable reason and leave local state
// unchanged.
type PushResult struct {
	Success     bool   `json:"success"`
	ExternalRef string `json:"externalRef,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
