// Package api exposes the lifecycle engine over HTTP for the dashboard
// and CLI scripts. Handlers stay thin: every mutation goes through the
// engine or the bulk layer, never straight to the repository.
package api

import (
	"time"

	"github.com/guarzo/crosslist/internal/bulk"
	"github.com/guarzo/crosslist/internal/lifecycle"
	"github.com/guarzo/crosslist/internal/marketplace"
	"github.com/guarzo/crosslist/internal/model"
)

// Repository is the persistence surface the API needs beyond what the
// engine provides. Both store backends satisfy it.
type Repository interface {
	lifecycle.Repository
	Insert(item *model.InventoryItem) error
}

// Server holds the wired application for the HTTP layer.
type Server struct {
	engine   *lifecycle.Engine
	repo     Repository
	bulk     *bulk.Ops
	sales    marketplace.SaleRecorder
	adapters map[string]marketplace.Adapter
}

// NewServer wires the API over an engine and repository. sales may be
// nil when no sales log is configured; adapters may be empty.
func NewServer(engine *lifecycle.Engine, repo Repository, sales marketplace.SaleRecorder, adapters ...marketplace.Adapter) *Server {
	s := &Server{
		engine:   engine,
		repo:     repo,
		bulk:     bulk.New(engine, repo),
		sales:    sales,
		adapters: make(map[string]marketplace.Adapter),
	}
	for _, a := range adapters {
		s.adapters[a.Platform()] = a
	}
	return s
}

// expiredDTO flattens an expired listing for JSON output.
type expiredDTO struct {
	ItemID     string    `json:"itemId"`
	SKU        string    `json:"sku"`
	Title      string    `json:"title"`
	Platform   string    `json:"platform"`
	ListedDate time.Time `json:"listedDate"`
	Expiry     time.Time `json:"expiry"`
}

// expiringDTO flattens an expiring listing for JSON output.
type expiringDTO struct {
	ItemID   string    `json:"itemId"`
	SKU      string    `json:"sku"`
	Title    string    `json:"title"`
	Platform string    `json:"platform"`
	Expiry   time.Time `json:"expiry"`
	DaysLeft int       `json:"daysLeft"`
}

// adapterDTO reports one adapter's connection state.
type adapterDTO struct {
	Platform  string `json:"platform"`
	Available bool   `json:"available"`
	State     string `json:"state"`
	Syncing   bool   `json:"syncing"`
}
