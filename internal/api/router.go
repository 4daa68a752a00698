package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the HTTP router with all endpoints registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", s.listItems)
		r.Post("/items", s.createItem)
		r.Get("/items/{id}", s.getItem)
		r.Get("/items/{id}/health", s.itemHealth)
		r.Post("/items/{id}/relist", s.relistItem)
		r.Post("/items/{id}/status", s.setStatus)
		r.Post("/items/{id}/sale", s.recordSale)

		r.Get("/sales", s.listSales)
		r.Get("/health/fleet", s.fleetStats)
		r.Get("/listings/expired", s.expiredListings)
		r.Get("/listings/expiring", s.expiringListings)
		r.Post("/sweep", s.sweep)

		r.Post("/bulk/relist-expired", s.bulkRelistExpired)
		r.Post("/bulk/auto-relist", s.bulkAutoRelist)
		r.Post("/bulk/reprice", s.bulkReprice)

		r.Get("/sync", s.syncStatus)
		r.Post("/sync/{platform}/connect", s.syncConnect)
		r.Post("/sync/{platform}/pull", s.syncPull)
		r.Post("/sync/{platform}/items/{id}/push", s.syncPush)
		r.Post("/sync/{platform}/items/{id}/publish", s.syncPublish)
		r.Post("/sync/{platform}/items/{id}/end", s.syncEnd)
	})
	return r
}
