package store

import (
	"context"

	"github.com/google/uuid"
)

// Reference entities are seeded server-side and read-only for clients.

type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ShortName *string   `json:"short_name"`
	SKU       *string   `json:"sku"`
	Code      *string   `json:"code"`
}

type Partner struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code *string   `json:"code"`
	// Type is 1 for clients, 2 for suppliers.
	Type int `json:"type"`
}

type Unit struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
}

// ReferenceStore lists the reference tables backing the sync entities.
type ReferenceStore struct {
	q Querier
}

func NewReferenceStore(q Querier) *ReferenceStore { return &ReferenceStore{q: q} }

func (s *ReferenceStore) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.q.Query(ctx, `SELECT id, name, short_name, sku, code FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.ShortName, &p.SKU, &p.Code); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *ReferenceStore) ListPartners(ctx context.Context) ([]Partner, error) {
	rows, err := s.q.Query(ctx, `SELECT id, name, code, type FROM partners ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Partner{}
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Type); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *ReferenceStore) ListUnits(ctx context.Context) ([]Unit, error) {
	rows, err := s.q.Query(ctx, `SELECT id, name, abbreviation FROM units ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Unit{}
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Abbreviation); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
