package gateway

import (
	"net/http"
)

// listCollections handles GET /api/collections.
//
// @Summary      List collections
// @Tags         Catalog
// @Produce      json
// @Success      200  {array}   backend.Collection
// @Failure      502  {object}  errorResponse
// @Router       /api/collections [get]
func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.deps.Catalog.Collections(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, collections)
}

// getCollection handles GET /api/collections/{slug}.
//
// @Summary      Get collection
// @Tags         Catalog
// @Produce      json
// @Param        slug  path      string  true  "Collection slug"
// @Success      200   {object}  backend.CollectionDetail
// @Failure      404   {object}  errorResponse
// @Router       /api/collections/{slug} [get]
func (h *Handler) getCollection(w http.ResponseWriter, r *http.Request) {
	detail, err := h.deps.Catalog.Collection(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// getItem handles GET /api/items/{id}.
//
// @Summary      Get item
// @Tags         Catalog
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  backend.Item
// @Failure      404  {object}  errorResponse
// @Router       /api/items/{id} [get]
func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.deps.Catalog.Item(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
