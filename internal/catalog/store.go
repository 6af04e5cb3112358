package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Store resolves products from the products table.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ResolveByCode implements Resolver.
func (s *Store) ResolveByCode(ctx context.Context, code string) (Product, error) {
	code = NormalizeCode(code)

	var p Product
	var wac string
	err := s.db.QueryRowContext(ctx, `
		SELECT code, brand, generic, dosage, wac
		FROM products
		WHERE code = ? AND active = TRUE
	`, code).Scan(&p.Code, &p.Brand, &p.Generic, &p.Dosage, &wac)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, fmt.Errorf("resolve %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return Product{}, fmt.Errorf("query product %q: %w", code, err)
	}

	if p.WAC, err = decimal.NewFromString(wac); err != nil {
		return Product{}, fmt.Errorf("parse wac for %q: %w", code, err)
	}
	return p, nil
}

// List returns active products ordered by code.
func (s *Store) List(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, brand, generic, dosage, wac
		FROM products
		WHERE active = TRUE
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		var wac string
		if err := rows.Scan(&p.Code, &p.Brand, &p.Generic, &p.Dosage, &wac); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if p.WAC, err = decimal.NewFromString(wac); err != nil {
			return nil, fmt.Errorf("parse wac for %q: %w", p.Code, err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// Upsert inserts a product or updates the existing row with the same code.
// It reports whether a new row was inserted.
func (s *Store) Upsert(ctx context.Context, p Product) (bool, error) {
	p.Code = NormalizeCode(p.Code)
	if p.Code == "" {
		return false, errors.New("product code is required")
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE code = ?)`, p.Code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product existence: %w", err)
	}

	if exists {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE products
			SET
				brand = ?,
				generic = ?,
				dosage = ?,
				wac = ?,
				active = TRUE,
				updated_at = CURRENT_TIMESTAMP
			WHERE code = ?
		`, p.Brand, p.Generic, p.Dosage, p.WAC.String(), p.Code); err != nil {
			return false, fmt.Errorf("update product %q: %w", p.Code, err)
		}
		return false, nil
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (code, brand, generic, dosage, wac, active)
		VALUES (?, ?, ?, ?, ?, TRUE)
	`, p.Code, p.Brand, p.Generic, p.Dosage, p.WAC.String()); err != nil {
		return false, fmt.Errorf("insert product %q: %w", p.Code, err)
	}
	return true, nil
}
