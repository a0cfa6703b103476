package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quaydesk/preorder-sync-api/internal/syncx"
)

// FlowStore persists pre_order_flow entities (the line items of a
// pre_order).
type FlowStore struct {
	q Querier
}

func NewFlowStore(q Querier) *FlowStore { return &FlowStore{q: q} }

const flowSelect = `
	SELECT id, pre_order_id, product_id, quantity, price, unit_id, comment,
	       created_at, updated_at, deleted_at, version
	FROM pre_order_flows`

func (s *FlowStore) Get(ctx context.Context, id uuid.UUID) (*Entity, error) {
	e, err := scanFlow(s.q.QueryRow(ctx, flowSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *FlowStore) Create(ctx context.Context, id uuid.UUID, fields map[string]any) (*Entity, error) {
	var createdAt, updatedAt time.Time
	err := s.q.QueryRow(ctx, `
		INSERT INTO pre_order_flows (id, pre_order_id, product_id, quantity, price, unit_id, comment,
		                             created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now(), 1)
		RETURNING created_at, updated_at`,
		id, fields["pre_order_id"], fields["product_id"], fields["quantity"],
		fields["price"], fields["unit_id"], fields["comment"],
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert pre_order_flow: %w", err)
	}

	return &Entity{
		ID:        id,
		Version:   1,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Fields:    cloneFields(fields),
	}, nil
}

func (s *FlowStore) ApplyUpdate(ctx context.Context, e *Entity, fields map[string]any) (*Entity, error) {
	applied, set, args, err := flowSetClause(fields)
	if err != nil {
		return nil, err
	}
	set = append(set, "version = version + 1", "updated_at = now()")
	args = append(args, e.ID)

	sql := fmt.Sprintf(`UPDATE pre_order_flows SET %s WHERE id = $%d RETURNING version, updated_at`,
		strings.Join(set, ", "), len(args))
	if err := s.q.QueryRow(ctx, sql, args...).Scan(&e.Version, &e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update pre_order_flow: %w", err)
	}

	for k, v := range applied {
		e.Fields[k] = v
	}
	return e, nil
}

func (s *FlowStore) SoftDelete(ctx context.Context, e *Entity) (*Entity, error) {
	var deletedAt time.Time
	err := s.q.QueryRow(ctx, `
		UPDATE pre_order_flows
		SET deleted_at = now(), updated_at = now(), version = version + 1
		WHERE id = $1
		RETURNING version, updated_at, deleted_at`,
		e.ID,
	).Scan(&e.Version, &e.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("soft delete pre_order_flow: %w", err)
	}
	e.DeletedAt = &deletedAt
	return e, nil
}

func (s *FlowStore) ListActive(ctx context.Context) ([]*Entity, error) {
	rows, err := s.q.Query(ctx, flowSelect+` WHERE deleted_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entity
	for rows.Next() {
		e, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func flowSetClause(fields map[string]any) (map[string]any, []string, []any, error) {
	applied := make(map[string]any, len(fields))
	var set []string
	var args []any

	for _, field := range sortedFieldNames(fields) {
		value := fields[field]
		switch field {
		case "product_id", "unit_id":
			id, err := syncx.CoerceUUID(value)
			if err != nil {
				return nil, nil, nil, Validationf("invalid %s: %v", field, err)
			}
			value = id.String()
		case "quantity", "price":
			f, err := syncx.CoerceFloat(value)
			if err != nil {
				return nil, nil, nil, Validationf("invalid %s: %v", field, err)
			}
			value = f
		case "comment":
			// text, passed through
		default:
			// pre_order_id is deliberately not updatable: a flow never
			// moves between pre_orders.
			continue
		}
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", field, len(args)))
		applied[field] = value
	}
	return applied, set, args, nil
}

func scanFlow(row pgx.Row) (*Entity, error) {
	var (
		id, preOrderID, productID, unitID uuid.UUID
		quantity, price                   float64
		comment                           *string
		createdAt, updatedAt              time.Time
		deletedAt                         *time.Time
		version                           int
	)
	if err := row.Scan(&id, &preOrderID, &productID, &quantity, &price, &unitID, &comment,
		&createdAt, &updatedAt, &deletedAt, &version); err != nil {
		return nil, err
	}
	return &Entity{
		ID:        id,
		Version:   version,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		Fields: map[string]any{
			"pre_order_id": preOrderID.String(),
			"product_id":   productID.String(),
			"quantity":     quantity,
			"price":        price,
			"unit_id":      unitID.String(),
			"comment":      strOrNil(comment),
		},
	}, nil
}
