package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quaydesk/preorder-sync-api/internal/syncx"
)

// LogEntry is one row of the append-only operation log. SyncID is assigned
// by the database sequence at append time and totally orders mutations.
type LogEntry struct {
	SyncID        int64
	EntityType    string
	EntityID      uuid.UUID
	OperationType string
	Data          map[string]any
	Timestamp     time.Time
}

// OpLog reads and appends operation log rows.
type OpLog struct {
	q Querier
}

func NewOpLog(q Querier) *OpLog { return &OpLog{q: q} }

// Append inserts a log row inside the caller's transaction. The sequence
// behind sync_id guarantees a value strictly greater than any previously
// assigned; timestamp is server time.
func (l *OpLog) Append(ctx context.Context, entityType string, entityID uuid.UUID, operationType string, data map[string]any) (*LogEntry, error) {
	entry := &LogEntry{
		EntityType:    entityType,
		EntityID:      entityID,
		OperationType: operationType,
		Data:          data,
	}
	err := l.q.QueryRow(ctx, `
		INSERT INTO operation_log (entity_type, entity_id, operation_type, data, timestamp)
		VALUES ($1, $2, $3, $4, now())
		RETURNING sync_id, timestamp`,
		entityType, entityID, operationType, data,
	).Scan(&entry.SyncID, &entry.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("append operation log: %w", err)
	}
	return entry, nil
}

// ServerChangedFields scans the entity's UPDATE entries in sync_id order and
// returns field -> ISO timestamp for every field changed after sinceVersion.
// Later entries overwrite earlier ones, so each timestamp is the most recent
// server-side change of that field.
func (l *OpLog) ServerChangedFields(ctx context.Context, entityType string, entityID uuid.UUID, sinceVersion int) (map[string]string, error) {
	rows, err := l.q.Query(ctx, `
		SELECT data, timestamp
		FROM operation_log
		WHERE entity_type = $1 AND entity_id = $2 AND operation_type = 'UPDATE'
		ORDER BY sync_id ASC`,
		entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changed := map[string]string{}
	for rows.Next() {
		var data map[string]any
		var ts time.Time
		if err := rows.Scan(&data, &ts); err != nil {
			return nil, err
		}
		version, ok := jsonInt(data["version"])
		if !ok || version <= sinceVersion {
			continue
		}
		iso := syncx.ISO(ts)
		for field := range data {
			if field != "version" {
				changed[field] = iso
			}
		}
	}
	return changed, rows.Err()
}

// ReadSince returns up to limit entries with sync_id above the cursor in
// ascending order. hasMore is computed by probing one row past the limit.
func (l *OpLog) ReadSince(ctx context.Context, cursor int64, limit int) ([]LogEntry, bool, error) {
	rows, err := l.q.Query(ctx, `
		SELECT sync_id, entity_type, entity_id, operation_type, data, timestamp
		FROM operation_log
		WHERE sync_id > $1
		ORDER BY sync_id ASC
		LIMIT $2`,
		cursor, limit+1)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.SyncID, &e.EntityType, &e.EntityID, &e.OperationType, &e.Data, &e.Timestamp); err != nil {
			return nil, false, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}
	return entries, hasMore, nil
}

// jsonInt reads an integer out of a decoded JSON value.
func jsonInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	default:
		return 0, false
	}
}
