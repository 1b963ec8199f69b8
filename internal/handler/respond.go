// Package handler implements the JSON API consumed by the frontend.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/lemaitremot/maitremot/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, apiErr *model.APIError) {
	writeJSON(w, status, apiErr)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
