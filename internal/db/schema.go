package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DDL is idempotent so Ensure can run on every startup. The operation log
// gets its total order from the sync_id sequence; the (entity_type,
// entity_id) index serves the conflict lookup, the primary key serves pull.
const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          UUID PRIMARY KEY,
	name        VARCHAR(200) NOT NULL,
	short_name  VARCHAR(50),
	sku         VARCHAR(50),
	code        VARCHAR(50)
);

CREATE TABLE IF NOT EXISTS partners (
	id    UUID PRIMARY KEY,
	name  VARCHAR(200) NOT NULL,
	code  VARCHAR(50),
	type  INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS units (
	id            UUID PRIMARY KEY,
	name          VARCHAR(100) NOT NULL,
	abbreviation  VARCHAR(10) NOT NULL
);

CREATE TABLE IF NOT EXISTS pre_orders (
	id             UUID PRIMARY KEY,
	partner_id     UUID NOT NULL REFERENCES partners(id),
	status         INTEGER NOT NULL DEFAULT 0,
	order_date     VARCHAR(10),
	delivery_date  VARCHAR(10) NOT NULL,
	comment        TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at     TIMESTAMPTZ,
	version        INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS pre_order_flows (
	id            UUID PRIMARY KEY,
	pre_order_id  UUID NOT NULL REFERENCES pre_orders(id) ON DELETE CASCADE,
	product_id    UUID NOT NULL REFERENCES products(id),
	quantity      DOUBLE PRECISION NOT NULL DEFAULT 0,
	price         DOUBLE PRECISION NOT NULL DEFAULT 0,
	unit_id       UUID NOT NULL REFERENCES units(id),
	comment       TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at    TIMESTAMPTZ,
	version       INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_pre_order_flows_pre_order ON pre_order_flows (pre_order_id);

CREATE TABLE IF NOT EXISTS operation_log (
	sync_id         BIGSERIAL PRIMARY KEY,
	entity_type     VARCHAR(50) NOT NULL,
	entity_id       UUID NOT NULL,
	operation_type  VARCHAR(10) NOT NULL,
	data            JSONB NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_operation_log_entity ON operation_log (entity_type, entity_id);
`

// Ensure creates the schema if it does not exist yet.
func Ensure(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return err
	}
	log.Info().Msg("database schema ensured")
	return nil
}
