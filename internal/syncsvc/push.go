package syncsvc

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/quaydesk/preorder-sync-api/internal/broadcast"
	"github.com/quaydesk/preorder-sync-api/internal/store"
)

// HandlerFactory builds the per-kind handlers bound to a transaction. The
// pipeline calls it once per operation with that operation's savepoint so
// every statement of an operation lands inside its savepoint.
type HandlerFactory func(tx pgx.Tx) map[EntityType]OperationHandler

// NewHandlers wires the entity handlers against the given transaction.
func NewHandlers(tx pgx.Tx) map[EntityType]OperationHandler {
	oplog := store.NewOpLog(tx)
	return map[EntityType]OperationHandler{
		EntityPreOrder:     NewEntityHandler(PreOrderKind, store.NewPreOrderStore(tx), oplog),
		EntityPreOrderFlow: NewEntityHandler(PreOrderFlowKind, store.NewFlowStore(tx), oplog),
	}
}

// PushService processes a push batch inside an outer transaction supplied by
// the caller. Each operation runs in its own savepoint (a nested pgx
// transaction), so one bad operation never takes the batch down, while later
// operations still observe the effects of earlier successful ones.
type PushService struct {
	tx          pgx.Tx
	newHandlers HandlerFactory
}

func NewPushService(tx pgx.Tx) *PushService {
	return &PushService{tx: tx, newHandlers: NewHandlers}
}

// Process runs the batch and returns per-operation results in submission
// order plus the change events to publish after the caller commits the
// outer transaction. Events are queued only for operations whose savepoint
// committed; the caller must not publish them unless the outer commit
// succeeds.
func (p *PushService) Process(ctx context.Context, ops []PushOperation) ([]PushResult, []broadcast.Event) {
	results := make([]PushResult, 0, len(ops))
	var events []broadcast.Event

	for _, op := range ops {
		result, event := p.processOne(ctx, op)
		results = append(results, result)
		if event != nil {
			events = append(events, *event)
		}
	}

	return results, events
}

func (p *PushService) processOne(ctx context.Context, op PushOperation) (PushResult, *broadcast.Event) {
	sp, err := p.tx.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Str("operation_id", op.ID).Msg("failed to open savepoint")
		return errorResult(op.ID, fmt.Sprintf("savepoint error: %v", err)), nil
	}

	handler, ok := p.newHandlers(sp)[op.EntityType]
	if !ok {
		rollback(ctx, sp, op.ID)
		return errorResult(op.ID, fmt.Sprintf("unsupported entity_type: %s", op.EntityType)), nil
	}

	result, err := handler.Handle(ctx, op)
	if err != nil {
		rollback(ctx, sp, op.ID)
		log.Error().Err(err).
			Str("operation_id", op.ID).
			Str("entity_type", string(op.EntityType)).
			Str("entity_id", op.EntityID.String()).
			Msg("error processing operation")
		return errorResult(op.ID, err.Error()), nil
	}

	if result.Status != StatusSuccess {
		// Conflict and error leave the server untouched; the conflict
		// details still go back to the client.
		rollback(ctx, sp, op.ID)
		return result, nil
	}

	if err := sp.Commit(ctx); err != nil {
		log.Error().Err(err).Str("operation_id", op.ID).Msg("failed to commit savepoint")
		return errorResult(op.ID, fmt.Sprintf("savepoint error: %v", err)), nil
	}

	if result.SyncID != nil {
		ev := broadcast.EntityChanged(string(op.EntityType), op.EntityID.String(), *result.SyncID)
		return result, &ev
	}
	return result, nil
}

func rollback(ctx context.Context, sp pgx.Tx, operationID string) {
	if err := sp.Rollback(ctx); err != nil {
		log.Error().Err(err).Str("operation_id", operationID).Msg("failed to roll back savepoint")
	}
}
