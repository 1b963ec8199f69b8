package handler

import (
	"net/http"

	"github.com/lemaitremot/maitremot/internal/catalog"
)

type CatalogHandler struct{}

func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// Catalog returns the curriculum: subjects, levels, chapters.
func (h *CatalogHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"subjects": catalog.Subjects(),
		"levels":   catalog.Levels,
	})
}

// Pricing returns the subscription packages.
func (h *CatalogHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"packages": catalog.Packages()})
}
