// Package syncsvc implements the conflict-resolving push pipeline: per-kind
// entity handlers, the savepoint-per-operation batch processor, and the wire
// types shared with the HTTP layer.
package syncsvc

import (
	"context"

	"github.com/google/uuid"

	"github.com/quaydesk/preorder-sync-api/internal/resolver"
	"github.com/quaydesk/preorder-sync-api/internal/store"
)

// EntityType discriminates the two synced kinds.
type EntityType string

const (
	EntityPreOrder     EntityType = "pre_order"
	EntityPreOrderFlow EntityType = "pre_order_flow"
)

// OperationType is the mutation verb of a push operation or log entry.
type OperationType string

const (
	OpCreate OperationType = "CREATE"
	OpUpdate OperationType = "UPDATE"
	OpDelete OperationType = "DELETE"
)

// ResultStatus is the per-operation outcome.
type ResultStatus string

const (
	StatusSuccess  ResultStatus = "success"
	StatusConflict ResultStatus = "conflict"
	StatusError    ResultStatus = "error"
)

// PushOperation is one client mutation inside a push batch.
type PushOperation struct {
	// ID is a client-chosen opaque string correlating the result.
	ID            string         `json:"id"`
	EntityType    EntityType     `json:"entity_type"`
	EntityID      uuid.UUID      `json:"entity_id"`
	OperationType OperationType  `json:"operation_type"`
	Data          map[string]any `json:"data"`
	// ExpectedVersion is the version the client believed it was editing;
	// absent means no optimistic check.
	ExpectedVersion *int `json:"expected_version,omitempty"`
	// Timestamp is the client's wall-clock mutation time (ISO-8601), used
	// for last-writer-wins.
	Timestamp string `json:"timestamp"`
}

// PushResult is the per-operation outcome returned to the client.
type PushResult struct {
	OperationID string                   `json:"operation_id"`
	Status      ResultStatus             `json:"status"`
	SyncID      *int64                   `json:"sync_id,omitempty"`
	NewVersion  *int                     `json:"new_version,omitempty"`
	Message     string                   `json:"message,omitempty"`
	Conflicts   []resolver.FieldConflict `json:"conflicts,omitempty"`
}

// EntityStore is the per-kind persistence surface the handler runs against.
// Implementations must execute inside the caller's transaction and never
// commit. Get returns tombstoned rows so idempotency checks work.
type EntityStore interface {
	Get(ctx context.Context, id uuid.UUID) (*store.Entity, error)
	Create(ctx context.Context, id uuid.UUID, fields map[string]any) (*store.Entity, error)
	ApplyUpdate(ctx context.Context, e *store.Entity, fields map[string]any) (*store.Entity, error)
	SoftDelete(ctx context.Context, e *store.Entity) (*store.Entity, error)
}

// OperationLog is the append-only mutation record consulted for conflict
// detection.
type OperationLog interface {
	Append(ctx context.Context, entityType string, entityID uuid.UUID, operationType string, data map[string]any) (*store.LogEntry, error)
	ServerChangedFields(ctx context.Context, entityType string, entityID uuid.UUID, sinceVersion int) (map[string]string, error)
}

// OperationHandler processes one push operation.
type OperationHandler interface {
	Handle(ctx context.Context, op PushOperation) (PushResult, error)
}

func errorResult(operationID, message string) PushResult {
	return PushResult{OperationID: operationID, Status: StatusError, Message: message}
}
