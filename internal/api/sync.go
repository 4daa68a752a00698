package api

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/guarzo/crosslist/internal/marketplace"
)

func (s *Server) adapter(w http.ResponseWriter, r *http.Request) (marketplace.Adapter, bool) {
	platform := chi.URLParam(r, "platform")
	a, ok := s.adapters[platform]
	if !ok {
		jsonError(w, http.StatusNotFound, "no adapter for platform "+platform)
		return nil, false
	}
	return a, true
}

func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	out := []adapterDTO{}
	for _, a := range s.adapters {
		out = append(out, adapterDTO{
			Platform:  a.Platform(),
			Available: a.Available(),
			State:     string(a.State()),
			Syncing:   a.Syncing(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	jsonResponse(w, http.StatusOK, out)
}

func (s *Server) syncConnect(w http.ResponseWriter, r *http.Request) {
	a, ok := s.adapter(w, r)
	if !ok {
		return
	}
	if err := a.Connect(r.Context()); err != nil {
		jsonError(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"state": string(a.State())})
}

func (s *Server) syncPull(w http.ResponseWriter, r *http.Request) {
	a, ok := s.adapter(w, r)
	if !ok {
		return
	}
	res, err := a.Pull(r.Context())
	if err != nil {
		syncError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (s *Server) syncPush(w http.ResponseWriter, r *http.Request) {
	s.runPushOp(w, r, marketplace.Adapter.Push)
}

func (s *Server) syncPublish(w http.ResponseWriter, r *http.Request) {
	s.runPushOp(w, r, marketplace.Adapter.Publish)
}

func (s *Server) syncEnd(w http.ResponseWriter, r *http.Request) {
	s.runPushOp(w, r, marketplace.Adapter.End)
}

func (s *Server) runPushOp(w http.ResponseWriter, r *http.Request,
	op func(marketplace.Adapter, context.Context, string) (*marketplace.PushResult, error)) {
	a, ok := s.adapter(w, r)
	if !ok {
		return
	}
	res, err := op(a, r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		syncError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// syncError maps adapter failures onto HTTP statuses.
func syncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, marketplace.ErrNotConnected):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, marketplace.ErrSyncInProgress):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, marketplace.ErrUnsupported):
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		jsonError(w, http.StatusBadGateway, err.Error())
	}
}
