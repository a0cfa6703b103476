package syncsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSavepoint records commit/rollback calls. The embedded interface covers
// the pgx.Tx methods the pipeline never touches.
type fakeSavepoint struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (s *fakeSavepoint) Commit(context.Context) error   { s.committed = true; return nil }
func (s *fakeSavepoint) Rollback(context.Context) error { s.rolledBack = true; return nil }

type fakeTx struct {
	pgx.Tx
	savepoints []*fakeSavepoint
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	sp := &fakeSavepoint{}
	t.savepoints = append(t.savepoints, sp)
	return sp, nil
}

// scriptedHandler returns canned outcomes keyed by operation id.
type scriptedHandler struct {
	results map[string]PushResult
	errs    map[string]error
}

func (h *scriptedHandler) Handle(_ context.Context, op PushOperation) (PushResult, error) {
	if err := h.errs[op.ID]; err != nil {
		return PushResult{}, err
	}
	return h.results[op.ID], nil
}

func newScriptedService(tx *fakeTx, handler OperationHandler) *PushService {
	return &PushService{
		tx: tx,
		newHandlers: func(pgx.Tx) map[EntityType]OperationHandler {
			return map[EntityType]OperationHandler{EntityPreOrder: handler}
		},
	}
}

func syncID(v int64) *int64 { return &v }

func TestProcessBatch(t *testing.T) {
	entityA, entityB := uuid.New(), uuid.New()
	handler := &scriptedHandler{
		results: map[string]PushResult{
			"op-1": {OperationID: "op-1", Status: StatusSuccess, SyncID: syncID(10)},
			"op-2": {OperationID: "op-2", Status: StatusConflict, Message: "all fields overridden by server"},
			"op-3": {OperationID: "op-3", Status: StatusError, Message: "validation error: missing required field"},
			"op-5": {OperationID: "op-5", Status: StatusSuccess, SyncID: syncID(11)},
		},
		errs: map[string]error{
			"op-4": errors.New("connection reset"),
		},
	}
	tx := &fakeTx{}
	svc := newScriptedService(tx, handler)

	ops := []PushOperation{
		{ID: "op-1", EntityType: EntityPreOrder, EntityID: entityA, OperationType: OpCreate},
		{ID: "op-2", EntityType: EntityPreOrder, EntityID: entityA, OperationType: OpUpdate},
		{ID: "op-3", EntityType: EntityPreOrder, EntityID: entityA, OperationType: OpCreate},
		{ID: "op-4", EntityType: EntityPreOrder, EntityID: entityA, OperationType: OpUpdate},
		{ID: "op-5", EntityType: EntityPreOrder, EntityID: entityB, OperationType: OpDelete},
	}

	results, events := svc.Process(context.Background(), ops)
	require.Len(t, results, 5)

	// Results come back in submission order whatever the outcome.
	for i, op := range ops {
		assert.Equal(t, op.ID, results[i].OperationID)
	}
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, StatusConflict, results[1].Status)
	assert.Equal(t, StatusError, results[2].Status)
	assert.Equal(t, StatusError, results[3].Status)
	assert.Equal(t, "connection reset", results[3].Message)
	assert.Equal(t, StatusSuccess, results[4].Status)

	// Only the successful operations commit their savepoint.
	require.Len(t, tx.savepoints, 5)
	wantCommitted := []bool{true, false, false, false, true}
	for i, sp := range tx.savepoints {
		assert.Equal(t, wantCommitted[i], sp.committed, "savepoint %d committed", i)
		assert.Equal(t, !wantCommitted[i], sp.rolledBack, "savepoint %d rolled back", i)
	}

	// Events only for committed operations that appended to the log.
	require.Len(t, events, 2)
	assert.Equal(t, "entity_changed", events[0].Event)
	assert.Equal(t, string(EntityPreOrder), events[0].EntityType)
	assert.Equal(t, entityA.String(), events[0].EntityID)
	assert.Equal(t, int64(10), events[0].SyncID)
	assert.Equal(t, entityB.String(), events[1].EntityID)
	assert.Equal(t, int64(11), events[1].SyncID)
}

func TestProcessUnsupportedEntityType(t *testing.T) {
	tx := &fakeTx{}
	svc := newScriptedService(tx, &scriptedHandler{})

	results, events := svc.Process(context.Background(), []PushOperation{
		{ID: "op-1", EntityType: "partner", EntityID: uuid.New(), OperationType: OpUpdate},
	})

	require.Len(t, results, 1)
	assert.Equal(t, StatusError, results[0].Status)
	assert.Contains(t, results[0].Message, "unsupported entity_type")
	assert.Empty(t, events)
	require.Len(t, tx.savepoints, 1)
	assert.True(t, tx.savepoints[0].rolledBack)
}

// Idempotent no-ops succeed without a log append and must not notify anyone.
func TestProcessNoOpSuccessEmitsNoEvent(t *testing.T) {
	handler := &scriptedHandler{
		results: map[string]PushResult{
			"op-1": {OperationID: "op-1", Status: StatusSuccess, Message: "already exists (idempotent)"},
		},
	}
	tx := &fakeTx{}
	svc := newScriptedService(tx, handler)

	results, events := svc.Process(context.Background(), []PushOperation{
		{ID: "op-1", EntityType: EntityPreOrder, EntityID: uuid.New(), OperationType: OpCreate},
	})

	require.Len(t, results, 1)
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Empty(t, events)
	assert.True(t, tx.savepoints[0].committed)
}
