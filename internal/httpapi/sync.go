package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/quaydesk/preorder-sync-api/internal/store"
	"github.com/quaydesk/preorder-sync-api/internal/syncsvc"
	"github.com/quaydesk/preorder-sync-api/internal/syncx"
)

const (
	defaultPullLimit = 100
	maxPullLimit     = 500
)

// pushReq is the request envelope for the push endpoint.
type pushReq struct {
	Operations []syncsvc.PushOperation `json:"operations"`
}

// pushResp carries per-operation results in submission order.
type pushResp struct {
	Results []syncsvc.PushResult `json:"results"`
}

// syncOperation is one operation log entry on the wire.
type syncOperation struct {
	SyncID        int64          `json:"sync_id"`
	EntityType    string         `json:"entity_type"`
	EntityID      string         `json:"entity_id"`
	OperationType string         `json:"operation_type"`
	Data          map[string]any `json:"data"`
	Timestamp     string         `json:"timestamp"`
}

// pullResp is the response envelope for the pull endpoint.
type pullResp struct {
	Operations []syncOperation `json:"operations"`
	HasMore    bool            `json:"has_more"`
}

// PushOperations applies a batch of client mutations. The whole batch runs
// in one transaction with a savepoint per operation; a 200 response carries
// per-operation success/conflict/error results. Change events go out to
// stream subscribers only after the transaction commits.
func (s *Server) PushOperations(w http.ResponseWriter, r *http.Request) {
	var req pushReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err))
		return
	}

	ctx := r.Context()
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to begin push transaction")
		writeError(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	defer tx.Rollback(ctx)

	results, events := syncsvc.NewPushService(tx).Process(ctx, req.Operations)

	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("failed to commit push transaction")
		writeError(w, http.StatusInternalServerError, "commit failed")
		return
	}

	for _, ev := range events {
		s.Broadcaster.Broadcast(ev, "")
	}

	writeJSON(w, http.StatusOK, pushResp{Results: results})
}

// PullOperations returns operation log entries above the client's cursor in
// ascending sync_id order.
func (s *Server) PullOperations(w http.ResponseWriter, r *http.Request) {
	since := parseCursor(r.URL.Query().Get("since_sync_id"))
	limit := parseLimit(r.URL.Query().Get("limit"), defaultPullLimit, maxPullLimit)

	entries, hasMore, err := store.NewOpLog(s.DB).ReadSince(r.Context(), since, limit)
	if err != nil {
		log.Error().Err(err).Int64("since_sync_id", since).Msg("failed to read operation log")
		writeError(w, http.StatusInternalServerError, "failed to read operation log")
		return
	}

	ops := make([]syncOperation, 0, len(entries))
	for _, e := range entries {
		ops = append(ops, syncOperation{
			SyncID:        e.SyncID,
			EntityType:    e.EntityType,
			EntityID:      e.EntityID.String(),
			OperationType: e.OperationType,
			Data:          e.Data,
			Timestamp:     syncx.ISO(e.Timestamp),
		})
	}

	writeJSON(w, http.StatusOK, pullResp{Operations: ops, HasMore: hasMore})
}

// StreamEvents streams change notifications as server-sent events. Clients
// treat events as hints and re-call pull for authoritative data.
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, events := s.Broadcaster.Connect()
	defer s.Broadcaster.Disconnect(id)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				// Dropped by the broadcaster; the client reconnects and
				// catches up via pull.
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal stream event")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
