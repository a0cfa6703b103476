package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Seed ids are uuid5 of the entity name, so reseeding a wiped database
// yields the same identifiers and offline clients keep working.
func seedID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name))
}

var (
	ProductSalmon   = seedID("Atlantic Salmon")
	ProductSeaBass  = seedID("Wild Sea Bass")
	ProductSeaBream = seedID("Royal Sea Bream")
	ProductTuna     = seedID("Bluefin Tuna")
	ProductCod      = seedID("Atlantic Cod")
	ProductShrimp   = seedID("Pink Shrimp")
	ProductOysters  = seedID("Special Oysters")
	ProductSole     = seedID("Dover Sole")
	ProductTurbot   = seedID("Turbot")
	ProductLobster  = seedID("Blue Lobster")

	PartnerSailor   = seedID("The Sailor Restaurant")
	PartnerDupont   = seedID("Dupont Fish Market")
	PartnerAtlantic = seedID("Atlantic Hotel")
	PartnerBreton   = seedID("Breton Fisheries")
	PartnerNorthern = seedID("Northern Wholesaler")
	PartnerLorient  = seedID("Lorient Auction")

	UnitKg    = seedID("Kilogram")
	UnitPiece = seedID("Piece")
	UnitCrate = seedID("Crate")
	UnitTray  = seedID("Tray")

	PreOrder1 = seedID("PreOrder-1")
	PreOrder2 = seedID("PreOrder-2")
	PreOrder3 = seedID("PreOrder-3")
)

type seedProduct struct {
	id                    uuid.UUID
	name, short, sku, cod string
}

type seedPartner struct {
	id    uuid.UUID
	name  string
	code  string
	ptype int
}

type seedFlow struct {
	name      string
	preOrder  uuid.UUID
	product   uuid.UUID
	unit      uuid.UUID
	quantity  float64
	unitPrice float64
}

// Seed inserts reference and sample data when the database is empty.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	products := []seedProduct{
		{ProductSalmon, "Atlantic Salmon", "Salmon", "SAL001", "PSAL"},
		{ProductSeaBass, "Wild Sea Bass", "Sea Bass", "BAS001", "PBAS"},
		{ProductSeaBream, "Royal Sea Bream", "Bream", "BRE001", "PBRE"},
		{ProductTuna, "Bluefin Tuna", "Tuna", "TUN001", "PTUN"},
		{ProductCod, "Atlantic Cod", "Cod", "COD001", "PCOD"},
		{ProductShrimp, "Pink Shrimp", "Shrimp", "SHR001", "PSHR"},
		{ProductOysters, "Special Oysters", "Oysters", "OYS001", "POYS"},
		{ProductSole, "Dover Sole", "Sole", "SOL001", "PSOL"},
		{ProductTurbot, "Turbot", "Turbot", "TUR001", "PTUR"},
		{ProductLobster, "Blue Lobster", "Lobster", "LOB001", "PLOB"},
	}
	for _, p := range products {
		if _, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, short_name, sku, code) VALUES ($1, $2, $3, $4, $5)`,
			p.id, p.name, p.short, p.sku, p.cod); err != nil {
			return err
		}
	}

	partners := []seedPartner{
		{PartnerSailor, "The Sailor Restaurant", "SAIL", 1},
		{PartnerDupont, "Dupont Fish Market", "DUPO", 1},
		{PartnerAtlantic, "Atlantic Hotel", "ATLA", 1},
		{PartnerBreton, "Breton Fisheries", "BRET", 2},
		{PartnerNorthern, "Northern Wholesaler", "NORT", 2},
		{PartnerLorient, "Lorient Auction", "LORI", 2},
	}
	for _, p := range partners {
		if _, err := pool.Exec(ctx,
			`INSERT INTO partners (id, name, code, type) VALUES ($1, $2, $3, $4)`,
			p.id, p.name, p.code, p.ptype); err != nil {
			return err
		}
	}

	units := []struct {
		id           uuid.UUID
		name, abbrev string
	}{
		{UnitKg, "Kilogram", "kg"},
		{UnitPiece, "Piece", "pce"},
		{UnitCrate, "Crate", "crt"},
		{UnitTray, "Tray", "try"},
	}
	for _, u := range units {
		if _, err := pool.Exec(ctx,
			`INSERT INTO units (id, name, abbreviation) VALUES ($1, $2, $3)`,
			u.id, u.name, u.abbrev); err != nil {
			return err
		}
	}

	today := time.Now().UTC().Format("2006-01-02")
	preOrders := []struct {
		id      uuid.UUID
		partner uuid.UUID
		status  int
	}{
		{PreOrder1, PartnerSailor, 0},
		{PreOrder2, PartnerDupont, 1},
		{PreOrder3, PartnerAtlantic, 0},
	}
	for _, po := range preOrders {
		if _, err := pool.Exec(ctx, `
			INSERT INTO pre_orders (id, partner_id, status, order_date, delivery_date)
			VALUES ($1, $2, $3, $4, $4)`,
			po.id, po.partner, po.status, today); err != nil {
			return err
		}
	}

	flows := []seedFlow{
		{"Flow-1A", PreOrder1, ProductSalmon, UnitKg, 5, 12.50},
		{"Flow-1B", PreOrder1, ProductSeaBass, UnitKg, 3, 18.00},
		{"Flow-1C", PreOrder1, ProductShrimp, UnitKg, 2, 22.00},
		{"Flow-2A", PreOrder2, ProductTuna, UnitKg, 10, 35.00},
		{"Flow-2B", PreOrder2, ProductCod, UnitPiece, 8, 8.50},
		{"Flow-3A", PreOrder3, ProductLobster, UnitPiece, 4, 45.00},
		{"Flow-3B", PreOrder3, ProductOysters, UnitCrate, 2, 38.00},
	}
	for _, f := range flows {
		if _, err := pool.Exec(ctx, `
			INSERT INTO pre_order_flows (id, pre_order_id, product_id, quantity, price, unit_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			seedID(f.name), f.preOrder, f.product, f.quantity, f.unitPrice, f.unit); err != nil {
			return err
		}
	}

	log.Info().Msg("database seeded with sample data")
	return nil
}
