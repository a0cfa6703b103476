package syncsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/quaydesk/preorder-sync-api/internal/resolver"
	"github.com/quaydesk/preorder-sync-api/internal/store"
	"github.com/quaydesk/preorder-sync-api/internal/syncx"
)

// EntityHandler implements CREATE/UPDATE/DELETE for one entity kind. All
// kind-specific behavior lives in the kind descriptor and the store; the
// handler itself is generic.
type EntityHandler struct {
	kind  EntityKind
	store EntityStore
	oplog OperationLog
}

func NewEntityHandler(kind EntityKind, st EntityStore, oplog OperationLog) *EntityHandler {
	return &EntityHandler{kind: kind, store: st, oplog: oplog}
}

// Handle dispatches on the operation type. Returned errors are internal
// (storage or machinery) failures; client-caused failures come back as
// results with status error or conflict.
func (h *EntityHandler) Handle(ctx context.Context, op PushOperation) (PushResult, error) {
	switch op.OperationType {
	case OpCreate:
		return h.create(ctx, op)
	case OpUpdate:
		return h.update(ctx, op)
	case OpDelete:
		return h.delete(ctx, op)
	default:
		return errorResult(op.ID, fmt.Sprintf("unknown operation_type: %s", op.OperationType)), nil
	}
}

func (h *EntityHandler) create(ctx context.Context, op PushOperation) (PushResult, error) {
	existing, err := h.store.Get(ctx, op.EntityID)
	if err != nil {
		return PushResult{}, err
	}
	if existing != nil {
		// Repeat CREATE is an idempotent no-op, tombstoned or not, and
		// must not grow the log.
		version := existing.Version
		return PushResult{
			OperationID: op.ID,
			Status:      StatusSuccess,
			NewVersion:  &version,
			Message:     fmt.Sprintf("%s %s already exists (idempotent)", h.kind.Name, op.EntityID),
		}, nil
	}

	fields, err := h.kind.ValidateCreate(op.Data)
	if err != nil {
		return errorResult(op.ID, fmt.Sprintf("validation error: %v", err)), nil
	}

	entity, err := h.store.Create(ctx, op.EntityID, fields)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			return errorResult(op.ID, fmt.Sprintf("validation error: %s", verr.Msg)), nil
		}
		return PushResult{}, err
	}

	entry, err := h.oplog.Append(ctx, string(h.kind.Type), entity.ID, string(OpCreate), entity.Snapshot())
	if err != nil {
		return PushResult{}, err
	}

	version := entity.Version
	return PushResult{
		OperationID: op.ID,
		Status:      StatusSuccess,
		SyncID:      &entry.SyncID,
		NewVersion:  &version,
	}, nil
}

func (h *EntityHandler) update(ctx context.Context, op PushOperation) (PushResult, error) {
	entity, err := h.store.Get(ctx, op.EntityID)
	if err != nil {
		return PushResult{}, err
	}
	if entity == nil {
		return errorResult(op.ID, fmt.Sprintf("%s %s not found", h.kind.Name, op.EntityID)), nil
	}
	if entity.Deleted() {
		// DELETE wins over UPDATE: the tombstone is terminal.
		version := entity.Version
		return PushResult{
			OperationID: op.ID,
			Status:      StatusSuccess,
			NewVersion:  &version,
			Message:     fmt.Sprintf("%s %s already deleted, no-op", h.kind.Name, op.EntityID),
		}, nil
	}

	serverChanged := map[string]string{}
	if op.ExpectedVersion != nil && *op.ExpectedVersion != entity.Version {
		serverChanged, err = h.oplog.ServerChangedFields(ctx, string(h.kind.Type), op.EntityID, *op.ExpectedVersion)
		if err != nil {
			return PushResult{}, err
		}
	}

	res, err := resolver.ResolveUpdate(
		entity.Snapshot(), op.Data,
		op.ExpectedVersion, entity.Version,
		op.Timestamp, serverChanged,
	)
	if err != nil {
		return PushResult{}, err
	}

	var conflicts []resolver.FieldConflict
	if len(res.LWWResolved) > 0 {
		conflicts = res.LWWResolved
	}

	if len(res.FieldsToApply) == 0 {
		version := entity.Version
		if conflicts != nil {
			return PushResult{
				OperationID: op.ID,
				Status:      StatusConflict,
				NewVersion:  &version,
				Message:     "all fields overridden by server",
				Conflicts:   conflicts,
			}, nil
		}
		return PushResult{
			OperationID: op.ID,
			Status:      StatusSuccess,
			NewVersion:  &version,
			Message:     "no changes to apply, no-op",
		}, nil
	}

	entity, err = h.store.ApplyUpdate(ctx, entity, res.FieldsToApply)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			return errorResult(op.ID, fmt.Sprintf("validation error: %s", verr.Msg)), nil
		}
		return PushResult{}, err
	}

	logData := make(map[string]any, len(res.FieldsToApply)+1)
	for k, v := range res.FieldsToApply {
		logData[k] = v
	}
	logData["version"] = entity.Version

	entry, err := h.oplog.Append(ctx, string(h.kind.Type), entity.ID, string(OpUpdate), logData)
	if err != nil {
		return PushResult{}, err
	}

	version := entity.Version
	return PushResult{
		OperationID: op.ID,
		Status:      StatusSuccess,
		SyncID:      &entry.SyncID,
		NewVersion:  &version,
		// The merge succeeded, so the status stays success even when LWW
		// winners are reported; clients inspect the list regardless.
		Conflicts: conflicts,
	}, nil
}

func (h *EntityHandler) delete(ctx context.Context, op PushOperation) (PushResult, error) {
	entity, err := h.store.Get(ctx, op.EntityID)
	if err != nil {
		return PushResult{}, err
	}
	if entity == nil {
		return errorResult(op.ID, fmt.Sprintf("%s %s not found", h.kind.Name, op.EntityID)), nil
	}
	if entity.Deleted() {
		version := entity.Version
		return PushResult{
			OperationID: op.ID,
			Status:      StatusSuccess,
			NewVersion:  &version,
			Message:     fmt.Sprintf("%s %s already deleted, no-op", h.kind.Name, op.EntityID),
		}, nil
	}

	if op.ExpectedVersion != nil && *op.ExpectedVersion != entity.Version {
		clientTS, err := syncx.ParseTimestamp(op.Timestamp)
		if err != nil {
			return PushResult{}, fmt.Errorf("client timestamp: %w", err)
		}
		if clientTS.Before(entity.UpdatedAt) {
			version := entity.Version
			return PushResult{
				OperationID: op.ID,
				Status:      StatusConflict,
				NewVersion:  &version,
				Message: fmt.Sprintf(
					"delete rejected: entity was updated on server (version %d) after client delete request (expected version %d)",
					entity.Version, *op.ExpectedVersion),
			}, nil
		}
	}

	entity, err = h.store.SoftDelete(ctx, entity)
	if err != nil {
		return PushResult{}, err
	}

	entry, err := h.oplog.Append(ctx, string(h.kind.Type), entity.ID, string(OpDelete), entity.Snapshot())
	if err != nil {
		return PushResult{}, err
	}

	log.Debug().
		Str("entity_type", string(h.kind.Type)).
		Str("entity_id", entity.ID.String()).
		Int("version", entity.Version).
		Msg("entity tombstoned")

	version := entity.Version
	return PushResult{
		OperationID: op.ID,
		Status:      StatusSuccess,
		SyncID:      &entry.SyncID,
		NewVersion:  &version,
	}, nil
}
