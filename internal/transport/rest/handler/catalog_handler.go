package handler

import (
	"net/http"

	"socialrisk/internal/catalog"
)

// CatalogHandler serves the question catalogs
type CatalogHandler struct {
	gating *catalog.Catalog
	detail *catalog.Catalog
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(gating, detail *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{gating: gating, detail: detail}
}

// Gating handles GET /v1/catalog/gating
func (h *CatalogHandler) Gating(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": h.gating.Questions()})
}

// Detail handles GET /v1/catalog/detail
func (h *CatalogHandler) Detail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": h.detail.Questions()})
}
