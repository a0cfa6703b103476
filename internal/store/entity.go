package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/quaydesk/preorder-sync-api/internal/syncx"
)

// Entity is a generic synced row. Fields holds the kind-specific domain
// columns in normalized form: identifiers as canonical UUID strings,
// numbers as int/float64, absent values as nil. Normalization keeps
// snapshots directly comparable against client payloads.
type Entity struct {
	ID        uuid.UUID
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
	Fields    map[string]any
}

// Deleted reports whether the entity is tombstoned.
func (e *Entity) Deleted() bool { return e.DeletedAt != nil }

// Snapshot renders the full entity as a JSON-ready field map: domain fields
// plus id, version and timestamps, with identifiers as strings and times as
// ISO-8601. This is the shape stored in CREATE and DELETE log entries.
func (e *Entity) Snapshot() map[string]any {
	snap := make(map[string]any, len(e.Fields)+5)
	for k, v := range e.Fields {
		snap[k] = v
	}
	snap["id"] = e.ID.String()
	snap["version"] = e.Version
	snap["created_at"] = syncx.ISO(e.CreatedAt)
	snap["updated_at"] = syncx.ISO(e.UpdatedAt)
	snap["deleted_at"] = syncx.ISOPtr(e.DeletedAt)
	return snap
}

func strOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
