package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/guarzo/crosslist/internal/bulk"
	"github.com/guarzo/crosslist/internal/health"
	"github.com/guarzo/crosslist/internal/history"
	"github.com/guarzo/crosslist/internal/model"
)

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.repo.All()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var item model.InventoryItem
	if err := decodeJSON(r, &item); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item payload")
		return
	}
	if item.Title == "" {
		jsonError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := s.repo.Insert(&item); err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusCreated, &item)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.repo.Find(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

func (s *Server) itemHealth(w http.ResponseWriter, r *http.Request) {
	item, err := s.repo.Find(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, health.ListingHealth(item))
}

type relistRequest struct {
	Platform string `json:"platform"`
}

func (s *Server) relistItem(w http.ResponseWriter, r *http.Request) {
	var req relistRequest
	if err := decodeJSON(r, &req); err != nil || req.Platform == "" {
		jsonError(w, http.StatusBadRequest, "platform is required")
		return
	}
	if err := s.engine.Relist(chi.URLParam(r, "id"), req.Platform); err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "relisted"})
}

type statusRequest struct {
	Platform string              `json:"platform"`
	Status   model.ListingStatus `json:"status"`
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil || req.Platform == "" {
		jsonError(w, http.StatusBadRequest, "platform is required")
		return
	}
	if !req.Status.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid listing status")
		return
	}
	if err := s.engine.SetStatus(chi.URLParam(r, "id"), req.Platform, req.Status); err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

type saleRequest struct {
	Platform   string `json:"platform"`
	PriceCents int    `json:"priceCents"`
}

// recordSale handles a manually reported sale: stock is decremented,
// the engine cascades sibling listings when stock hits zero, and the
// sale lands in the sales log.
func (s *Server) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil || req.Platform == "" {
		jsonError(w, http.StatusBadRequest, "platform is required")
		return
	}

	id := chi.URLParam(r, "id")
	item, err := s.repo.Find(id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	if item.Qty > 0 {
		item.Qty--
		if err := s.repo.Update(item); err != nil {
			jsonError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	cascaded, err := s.engine.OnSale(id, req.Platform)
	if err != nil {
		engineError(w, err)
		return
	}

	price := req.PriceCents
	if price == 0 {
		price = item.PriceCents
	}
	if s.sales != nil {
		if err := s.sales.RecordSale(id, item.SKU, req.Platform, price, s.engine.Now()); err != nil {
			jsonError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"qty":      item.Qty,
		"cascaded": cascaded,
	})
}

// saleLoader is the optional read-back side of the sales log.
type saleLoader interface {
	Load() ([]history.SaleRecord, error)
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	loader, ok := s.sales.(saleLoader)
	if !ok {
		jsonError(w, http.StatusNotFound, "no sales log configured")
		return
	}
	sales, err := loader.Load()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sales == nil {
		sales = []history.SaleRecord{}
	}
	jsonResponse(w, http.StatusOK, sales)
}

func (s *Server) fleetStats(w http.ResponseWriter, r *http.Request) {
	items, err := s.repo.All()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, health.Fleet(s.engine, items))
}

func (s *Server) expiredListings(w http.ResponseWriter, r *http.Request) {
	items, err := s.repo.All()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := []expiredDTO{}
	for _, e := range s.engine.ExpiredListings(items) {
		out = append(out, expiredDTO{
			ItemID:     e.Item.ID,
			SKU:        e.Item.SKU,
			Title:      e.Item.Title,
			Platform:   e.Platform,
			ListedDate: e.ListedDate,
			Expiry:     e.Expiry,
		})
	}
	jsonResponse(w, http.StatusOK, out)
}

func (s *Server) expiringListings(w http.ResponseWriter, r *http.Request) {
	days := health.ExpiringSoonWindow
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			jsonError(w, http.StatusBadRequest, "invalid days parameter")
			return
		}
		days = parsed
	}

	items, err := s.repo.All()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := []expiringDTO{}
	for _, e := range s.engine.ExpiringListings(items, days) {
		out = append(out, expiringDTO{
			ItemID:   e.Item.ID,
			SKU:      e.Item.SKU,
			Title:    e.Item.Title,
			Platform: e.Platform,
			Expiry:   e.Expiry,
			DaysLeft: e.DaysLeft,
		})
	}
	jsonResponse(w, http.StatusOK, out)
}

func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	transitions, err := s.engine.SweepExpired()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"expired": transitions})
}

// bulkResult shapes batch outcomes for JSON, with stringified errors.
type bulkResult struct {
	Done   int               `json:"done"`
	Errors map[string]string `json:"errors,omitempty"`
}

func toBulkResult(done int, errs map[string]error) bulkResult {
	res := bulkResult{Done: done}
	if len(errs) > 0 {
		res.Errors = make(map[string]string, len(errs))
		for k, err := range errs {
			res.Errors[k] = err.Error()
		}
	}
	return res
}

func (s *Server) bulkRelistExpired(w http.ResponseWriter, r *http.Request) {
	done, errs := s.bulk.RelistExpired()
	jsonResponse(w, http.StatusOK, toBulkResult(done, errs))
}

func (s *Server) bulkAutoRelist(w http.ResponseWriter, r *http.Request) {
	done, errs := s.bulk.AutoRelist()
	jsonResponse(w, http.StatusOK, toBulkResult(done, errs))
}

type repriceRequest struct {
	Category      string  `json:"category"`
	Platform      string  `json:"platform"`
	MinDaysListed int     `json:"minDaysListed"`
	Percent       float64 `json:"percent"`
	DeltaCents    int     `json:"deltaCents"`
}

func (s *Server) bulkReprice(w http.ResponseWriter, r *http.Request) {
	var req repriceRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid reprice payload")
		return
	}
	if req.Percent == 0 && req.DeltaCents == 0 {
		jsonError(w, http.StatusBadRequest, "percent or deltaCents is required")
		return
	}

	done, err := s.bulk.PriceAdjust(
		bulk.PriceFilter{Category: req.Category, Platform: req.Platform, MinDaysListed: req.MinDaysListed},
		bulk.PriceAdjustment{Percent: req.Percent, DeltaCents: req.DeltaCents},
	)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"repriced": done})
}
