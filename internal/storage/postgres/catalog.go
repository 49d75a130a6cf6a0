package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/counter-pos/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, name, price_per_whole_unit, price_per_half_unit,
		available_weight, minimum_quantity, active
		FROM products ORDER BY id`

	listCombosSQL = `SELECT id, name, description, price, active
		FROM combos ORDER BY id`

	listComboProductsSQL = `SELECT combo_id, product_id, quantity
		FROM combo_products ORDER BY combo_id, product_id`

	upsertProductSQL = `INSERT INTO products (id, name, price_per_whole_unit, price_per_half_unit,
		available_weight, minimum_quantity, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price_per_whole_unit = EXCLUDED.price_per_whole_unit,
			price_per_half_unit = EXCLUDED.price_per_half_unit,
			available_weight = EXCLUDED.available_weight,
			minimum_quantity = EXCLUDED.minimum_quantity,
			active = EXCLUDED.active`

	upsertComboSQL = `INSERT INTO combos (id, name, description, price, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			active = EXCLUDED.active`

	deleteComboProductsSQL = `DELETE FROM combo_products WHERE combo_id = $1`

	insertComboProductSQL = `INSERT INTO combo_products (combo_id, product_id, quantity)
		VALUES ($1, $2, $3)`
)

var _ catalog.Source = (*CatalogRepository)(nil)

// CatalogRepository reads and writes the product/combo catalog.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Snapshot reads the whole catalog inside one read-only repeatable-read
// transaction so products and combos reflect the same moment.
func (r *CatalogRepository) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("scanning products: %w", err)
	}

	rows, err = tx.Query(ctx, listCombosSQL)
	if err != nil {
		return nil, fmt.Errorf("listing combos: %w", err)
	}
	combos, err := pgx.CollectRows(rows, scanCombo)
	if err != nil {
		return nil, fmt.Errorf("scanning combos: %w", err)
	}

	rows, err = tx.Query(ctx, listComboProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing combo products: %w", err)
	}
	links, err := pgx.CollectRows(rows, scanComboProduct)
	if err != nil {
		return nil, fmt.Errorf("scanning combo products: %w", err)
	}

	byCombo := make(map[int64][]catalog.Constituent, len(combos))
	for _, l := range links {
		byCombo[l.comboID] = append(byCombo[l.comboID], l.Constituent)
	}
	for i := range combos {
		combos[i].Constituents = byCombo[combos[i].ID]
	}

	snap, err := catalog.NewSnapshot(products, combos)
	if err != nil {
		return nil, fmt.Errorf("building snapshot: %w", err)
	}
	return snap, nil
}

// Upsert writes products and combos in one transaction. Each combo's
// constituent list is replaced.
func (r *CatalogRepository) Upsert(ctx context.Context, products []catalog.Product, combos []catalog.Combo) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, p := range products {
			if _, err := tx.Exec(ctx, upsertProductSQL,
				p.ID, p.Name, p.PricePerWholeUnit, p.PricePerHalfUnit,
				p.AvailableWeight, p.MinimumQuantity, p.Active,
			); err != nil {
				return fmt.Errorf("upserting product %d: %w", p.ID, err)
			}
		}

		for _, c := range combos {
			if _, err := tx.Exec(ctx, upsertComboSQL,
				c.ID, c.Name, c.Description, c.Price, c.Active,
			); err != nil {
				return fmt.Errorf("upserting combo %d: %w", c.ID, err)
			}
			if _, err := tx.Exec(ctx, deleteComboProductsSQL, c.ID); err != nil {
				return fmt.Errorf("clearing combo %d products: %w", c.ID, err)
			}
			for _, k := range c.Constituents {
				if _, err := tx.Exec(ctx, insertComboProductSQL, c.ID, k.ProductID, k.Quantity); err != nil {
					return fmt.Errorf("linking combo %d product %d: %w", c.ID, k.ProductID, err)
				}
			}
		}
		return nil
	})
}

type comboProduct struct {
	comboID int64
	catalog.Constituent
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.PricePerWholeUnit, &p.PricePerHalfUnit,
		&p.AvailableWeight, &p.MinimumQuantity, &p.Active,
	)
	return p, err
}

func scanCombo(row pgx.CollectableRow) (catalog.Combo, error) {
	var c catalog.Combo
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Price, &c.Active)
	return c, err
}

func scanComboProduct(row pgx.CollectableRow) (comboProduct, error) {
	var l comboProduct
	err := row.Scan(&l.comboID, &l.ProductID, &l.Quantity)
	return l, err
}
