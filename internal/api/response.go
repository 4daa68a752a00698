package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/guarzo/crosslist/internal/lifecycle"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding response: %v", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// engineError maps engine failures onto HTTP statuses.
func engineError(w http.ResponseWriter, err error) {
	if errors.Is(err, lifecycle.ErrItemNotFound) {
		jsonError(w, http.StatusNotFound, err.Error())
		return
	}
	jsonError(w, http.StatusInternalServerError, err.Error())
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
