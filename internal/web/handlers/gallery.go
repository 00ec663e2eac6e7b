package handlers

import (
	"net/http"

	"github.com/kozaktomas/geoface/internal/facematch"
)

// GalleryHandler exposes the loaded gallery.
type GalleryHandler struct {
	matcher *facematch.Matcher
}

// NewGalleryHandler creates a gallery handler.
func NewGalleryHandler(matcher *facematch.Matcher) *GalleryHandler {
	return &GalleryHandler{matcher: matcher}
}

// GalleryIdentity is an identity without its signature.
type GalleryIdentity struct {
	Name      string `json:"name"`
	Photos    int    `json:"photos"`
	Reference string `json:"reference"`
}

// GalleryResponse lists enrolled identities in match order.
type GalleryResponse struct {
	Tolerance  float64           `json:"tolerance"`
	Count      int               `json:"count"`
	Identities []GalleryIdentity `json:"identities"`
}

// Get handles GET /api/v1/gallery.
func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	ids := h.matcher.Gallery.Identities()
	resp := GalleryResponse{
		Tolerance:  h.matcher.Tolerance,
		Count:      len(ids),
		Identities: make([]GalleryIdentity, 0, len(ids)),
	}
	for _, id := range ids {
		resp.Identities = append(resp.Identities, GalleryIdentity{
			Name:      id.Name,
			Photos:    id.Photos,
			Reference: id.Reference,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
