// Package httpapi exposes the sync engine over HTTP: batch push, cursor
// pull, an SSE change stream, the bootstrap snapshot, and the read-only
// reference listings.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/quaydesk/preorder-sync-api/internal/broadcast"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	DB          *pgxpool.Pool
	Broadcaster *broadcast.Broadcaster
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// parseLimit parses a limit query param with default and max.
func parseLimit(q string, def, max int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// parseCursor parses the since_sync_id query param; missing or malformed
// values fall back to 0 (full history).
func parseCursor(q string) int64 {
	if q == "" {
		return 0
	}
	n, err := strconv.ParseInt(q, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Routes creates the HTTP router with all endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sync/push", s.PushOperations)
		r.Get("/sync/pull", s.PullOperations)
		r.Get("/sync/stream", s.StreamEvents)
		r.Get("/sync/snapshot", s.Snapshot)

		r.Get("/partners", s.ListPartners)
		r.Get("/products", s.ListProducts)
		r.Get("/units", s.ListUnits)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
