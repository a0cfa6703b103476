package db

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIDsAreStable(t *testing.T) {
	assert.Equal(t, seedID("Atlantic Salmon"), ProductSalmon)
	assert.Equal(t, seedID("Atlantic Salmon"), seedID("Atlantic Salmon"))
	assert.NotEqual(t, ProductSalmon, ProductSeaBass)
}

func TestSeedIsIdempotent(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Ensure(ctx, pool))
	_, err = pool.Exec(ctx, `
		TRUNCATE pre_order_flows, pre_orders, operation_log, products, partners, units
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	require.NoError(t, Seed(ctx, pool))
	require.NoError(t, Seed(ctx, pool))

	counts := map[string]int{}
	for _, table := range []string{"products", "partners", "units", "pre_orders", "pre_order_flows"} {
		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&n))
		counts[table] = n
	}
	assert.Equal(t, map[string]int{
		"products":        10,
		"partners":        6,
		"units":           4,
		"pre_orders":      3,
		"pre_order_flows": 7,
	}, counts)
}
