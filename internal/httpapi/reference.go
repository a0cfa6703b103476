package httpapi

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/quaydesk/preorder-sync-api/internal/store"
)

// Reference listings are read-only: partners, products and units are seeded
// server-side and referenced by id from synced entities.

func (s *Server) ListPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := store.NewReferenceStore(s.DB).ListPartners(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list partners")
		writeError(w, http.StatusInternalServerError, "failed to list partners")
		return
	}
	writeJSON(w, http.StatusOK, partners)
}

func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := store.NewReferenceStore(s.DB).ListProducts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list products")
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := store.NewReferenceStore(s.DB).ListUnits(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list units")
		writeError(w, http.StatusInternalServerError, "failed to list units")
		return
	}
	writeJSON(w, http.StatusOK, units)
}
