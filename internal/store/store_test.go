package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quaydesk/preorder-sync-api/internal/db"
)

// testPool connects to TEST_DATABASE_URL, resets the tables and reseeds the
// reference data. Tests are skipped when no test database is configured.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Ensure(ctx, pool))
	_, err = pool.Exec(ctx, `
		TRUNCATE pre_order_flows, pre_orders, operation_log, products, partners, units
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	require.NoError(t, db.Seed(ctx, pool))
	return pool
}

func createPreOrder(t *testing.T, s *PreOrderStore, id uuid.UUID) *Entity {
	t.Helper()
	e, err := s.Create(context.Background(), id, map[string]any{
		"partner_id":    db.PartnerSailor.String(),
		"status":        0,
		"order_date":    nil,
		"delivery_date": "2024-02-01",
		"comment":       nil,
	})
	require.NoError(t, err)
	return e
}

func TestPreOrderCreateAndGet(t *testing.T) {
	pool := testPool(t)
	s := NewPreOrderStore(pool)
	ctx := context.Background()

	id := uuid.New()
	created := createPreOrder(t, s, id)
	assert.Equal(t, 1, created.Version)
	assert.False(t, created.Deleted())

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, db.PartnerSailor.String(), got.Fields["partner_id"])
	assert.Equal(t, 0, got.Fields["status"])
	assert.Equal(t, "2024-02-01", got.Fields["delivery_date"])
	assert.Nil(t, got.Fields["comment"])

	missing, err := s.Get(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPreOrderApplyUpdate(t *testing.T) {
	pool := testPool(t)
	s := NewPreOrderStore(pool)
	ctx := context.Background()

	id := uuid.New()
	e := createPreOrder(t, s, id)

	// status arrives as a JSON number; id and version must never be
	// client-writable.
	e, err := s.ApplyUpdate(ctx, e, map[string]any{
		"status":  float64(2),
		"comment": "urgent",
		"version": 99,
		"id":      uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, e.Version)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 2, got.Fields["status"])
	assert.Equal(t, "urgent", got.Fields["comment"])
}

func TestPreOrderApplyUpdateValidation(t *testing.T) {
	pool := testPool(t)
	s := NewPreOrderStore(pool)
	ctx := context.Background()

	e := createPreOrder(t, s, uuid.New())

	_, err := s.ApplyUpdate(ctx, e, map[string]any{"partner_id": "not-a-uuid"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Msg, "partner_id")

	_, err = s.ApplyUpdate(ctx, e, map[string]any{"status": "open"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Msg, "status")
}

func TestPreOrderSoftDeleteCascadesToFlows(t *testing.T) {
	pool := testPool(t)
	preOrders := NewPreOrderStore(pool)
	flows := NewFlowStore(pool)
	ctx := context.Background()

	poID := uuid.New()
	e := createPreOrder(t, preOrders, poID)

	flowID := uuid.New()
	_, err := flows.Create(ctx, flowID, map[string]any{
		"pre_order_id": poID.String(),
		"product_id":   db.ProductSalmon.String(),
		"quantity":     5.0,
		"price":        12.5,
		"unit_id":      db.UnitKg.String(),
		"comment":      nil,
	})
	require.NoError(t, err)

	e, err = preOrders.SoftDelete(ctx, e)
	require.NoError(t, err)
	assert.True(t, e.Deleted())
	assert.Equal(t, 2, e.Version)

	// The tombstoned row is still readable.
	got, err := preOrders.Get(ctx, poID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Deleted())

	// Its flows are gone for good.
	flow, err := flows.Get(ctx, flowID)
	require.NoError(t, err)
	assert.Nil(t, flow)
}

func TestFlowApplyUpdateIgnoresParentChange(t *testing.T) {
	pool := testPool(t)
	preOrders := NewPreOrderStore(pool)
	flows := NewFlowStore(pool)
	ctx := context.Background()

	poID := uuid.New()
	createPreOrder(t, preOrders, poID)

	flowID := uuid.New()
	e, err := flows.Create(ctx, flowID, map[string]any{
		"pre_order_id": poID.String(),
		"product_id":   db.ProductTuna.String(),
		"quantity":     3.0,
		"price":        35.0,
		"unit_id":      db.UnitKg.String(),
		"comment":      nil,
	})
	require.NoError(t, err)

	e, err = flows.ApplyUpdate(ctx, e, map[string]any{
		"quantity":     float64(7),
		"pre_order_id": uuid.NewString(),
	})
	require.NoError(t, err)

	got, err := flows.Get(ctx, flowID)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got.Fields["quantity"])
	assert.Equal(t, poID.String(), got.Fields["pre_order_id"])
	assert.Equal(t, 2, got.Version)
}

func TestOpLogAppendAndReadSince(t *testing.T) {
	pool := testPool(t)
	l := NewOpLog(pool)
	ctx := context.Background()

	id := uuid.New()
	var lastSyncID int64
	for i, op := range []string{"CREATE", "UPDATE", "DELETE"} {
		entry, err := l.Append(ctx, "pre_order", id, op, map[string]any{"version": i + 1})
		require.NoError(t, err)
		assert.Greater(t, entry.SyncID, lastSyncID)
		lastSyncID = entry.SyncID
	}

	entries, hasMore, err := l.ReadSince(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.True(t, hasMore)
	assert.Equal(t, "CREATE", entries[0].OperationType)
	assert.Equal(t, "UPDATE", entries[1].OperationType)

	entries, hasMore, err = l.ReadSince(ctx, entries[1].SyncID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, hasMore)
	assert.Equal(t, "DELETE", entries[0].OperationType)
	assert.Equal(t, float64(3), entries[0].Data["version"])

	entries, hasMore, err = l.ReadSince(ctx, lastSyncID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, hasMore)
}

func TestOpLogServerChangedFields(t *testing.T) {
	pool := testPool(t)
	l := NewOpLog(pool)
	ctx := context.Background()

	id := uuid.New()
	_, err := l.Append(ctx, "pre_order", id, "CREATE", map[string]any{"version": 1})
	require.NoError(t, err)
	_, err = l.Append(ctx, "pre_order", id, "UPDATE", map[string]any{"status": 2, "version": 2})
	require.NoError(t, err)
	_, err = l.Append(ctx, "pre_order", id, "UPDATE", map[string]any{"status": 3, "comment": "x", "version": 3})
	require.NoError(t, err)
	// Unrelated entity noise must not leak in.
	_, err = l.Append(ctx, "pre_order", uuid.New(), "UPDATE", map[string]any{"comment": "other", "version": 5})
	require.NoError(t, err)

	changed, err := l.ServerChangedFields(ctx, "pre_order", id, 1)
	require.NoError(t, err)
	require.Len(t, changed, 2)
	assert.Contains(t, changed, "status")
	assert.Contains(t, changed, "comment")
	// Later entries win, so status carries the last update's timestamp.
	assert.Equal(t, changed["comment"], changed["status"])

	changed, err = l.ServerChangedFields(ctx, "pre_order", id, 2)
	require.NoError(t, err)
	assert.Len(t, changed, 2)

	changed, err = l.ServerChangedFields(ctx, "pre_order", id, 3)
	require.NoError(t, err)
	assert.Empty(t, changed)
}