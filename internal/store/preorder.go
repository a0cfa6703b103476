package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quaydesk/preorder-sync-api/internal/syncx"
)

// PreOrderStore persists pre_order entities. All mutations run on the
// caller's Querier (a transaction during push); the store never commits.
type PreOrderStore struct {
	q Querier
}

func NewPreOrderStore(q Querier) *PreOrderStore { return &PreOrderStore{q: q} }

const preOrderSelect = `
	SELECT id, partner_id, status, order_date, delivery_date, comment,
	       created_at, updated_at, deleted_at, version
	FROM pre_orders`

// Get returns the entity row, tombstoned or not, or nil when absent.
func (s *PreOrderStore) Get(ctx context.Context, id uuid.UUID) (*Entity, error) {
	e, err := scanPreOrder(s.q.QueryRow(ctx, preOrderSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// Create inserts a new pre_order at version 1. Fields must already be
// validated and normalized (partner_id as a UUID string, status as int).
func (s *PreOrderStore) Create(ctx context.Context, id uuid.UUID, fields map[string]any) (*Entity, error) {
	var createdAt, updatedAt time.Time
	err := s.q.QueryRow(ctx, `
		INSERT INTO pre_orders (id, partner_id, status, order_date, delivery_date, comment,
		                        created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now(), 1)
		RETURNING created_at, updated_at`,
		id, fields["partner_id"], fields["status"], fields["order_date"],
		fields["delivery_date"], fields["comment"],
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert pre_order: %w", err)
	}

	return &Entity{
		ID:        id,
		Version:   1,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Fields:    cloneFields(fields),
	}, nil
}

// ApplyUpdate writes the whitelisted subset of fields, bumps version and
// updated_at, and refreshes the in-memory entity.
func (s *PreOrderStore) ApplyUpdate(ctx context.Context, e *Entity, fields map[string]any) (*Entity, error) {
	applied, set, args, err := preOrderSetClause(fields)
	if err != nil {
		return nil, err
	}
	set = append(set, "version = version + 1", "updated_at = now()")
	args = append(args, e.ID)

	sql := fmt.Sprintf(`UPDATE pre_orders SET %s WHERE id = $%d RETURNING version, updated_at`,
		strings.Join(set, ", "), len(args))
	if err := s.q.QueryRow(ctx, sql, args...).Scan(&e.Version, &e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update pre_order: %w", err)
	}

	for k, v := range applied {
		e.Fields[k] = v
	}
	return e, nil
}

// SoftDelete tombstones the pre_order and hard-deletes its flows. The
// cascade is a domain rule: flows cannot outlive their pre_order.
func (s *PreOrderStore) SoftDelete(ctx context.Context, e *Entity) (*Entity, error) {
	if _, err := s.q.Exec(ctx, `DELETE FROM pre_order_flows WHERE pre_order_id = $1`, e.ID); err != nil {
		return nil, fmt.Errorf("delete flows of pre_order: %w", err)
	}

	var deletedAt time.Time
	err := s.q.QueryRow(ctx, `
		UPDATE pre_orders
		SET deleted_at = now(), updated_at = now(), version = version + 1
		WHERE id = $1
		RETURNING version, updated_at, deleted_at`,
		e.ID,
	).Scan(&e.Version, &e.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("soft delete pre_order: %w", err)
	}
	e.DeletedAt = &deletedAt
	return e, nil
}

// ListActive returns snapshots of every non-tombstoned pre_order.
func (s *PreOrderStore) ListActive(ctx context.Context) ([]*Entity, error) {
	rows, err := s.q.Query(ctx, preOrderSelect+` WHERE deleted_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entity
	for rows.Next() {
		e, err := scanPreOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// preOrderSetClause builds the SET fragment for the whitelisted pre_order
// fields, coercing identifier strings and numeric values. Unknown fields
// are dropped: id, version and timestamps are never client-writable.
func preOrderSetClause(fields map[string]any) (map[string]any, []string, []any, error) {
	applied := make(map[string]any, len(fields))
	var set []string
	var args []any

	for _, field := range sortedFieldNames(fields) {
		value := fields[field]
		switch field {
		case "partner_id":
			id, err := syncx.CoerceUUID(value)
			if err != nil {
				return nil, nil, nil, Validationf("invalid partner_id: %v", err)
			}
			value = id.String()
		case "status":
			n, err := syncx.CoerceInt(value)
			if err != nil {
				return nil, nil, nil, Validationf("invalid status: %v", err)
			}
			value = n
		case "order_date", "delivery_date", "comment":
			// stored as text, passed through
		default:
			continue
		}
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", field, len(args)))
		applied[field] = value
	}
	return applied, set, args, nil
}

func scanPreOrder(row pgx.Row) (*Entity, error) {
	var (
		id                 uuid.UUID
		partnerID          uuid.UUID
		status             int
		orderDate, comment *string
		deliveryDate       string
		createdAt          time.Time
		updatedAt          time.Time
		deletedAt          *time.Time
		version            int
	)
	if err := row.Scan(&id, &partnerID, &status, &orderDate, &deliveryDate, &comment,
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
			"partner_id":    partnerID.String(),
			"status":        status,
			"order_date":    strOrNil(orderDate),
			"delivery_date": deliveryDate,
			"comment":       strOrNil(comment),
		},
	}, nil
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func sortedFieldNames(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
