package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/ncrsim/internal/catalog"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Skipped int
}

// Run seeds the product catalog in an idempotent way. Existing codes are
// left untouched so edited prices survive a restart.
func Run(ctx context.Context, db *sql.DB, products []catalog.Product) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	for _, p := range products {
		if err := ensureProduct(ctx, tx, p, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureProduct(ctx context.Context, tx *sql.Tx, p catalog.Product, stats *Stats) error {
	code := catalog.NormalizeCode(p.Code)
	if code == "" {
		return fmt.Errorf("seed product %q: empty code", p.Brand)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE code = ? LIMIT 1)`, code).Scan(&exists); err != nil {
		return fmt.Errorf("check product %s existence: %w", code, err)
	}
	if exists {
		stats.Skipped++
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO products (code, brand, generic, dosage, wac, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, code, p.Brand, p.Generic, p.Dosage, p.WAC.String(), true); err != nil {
		return fmt.Errorf("insert product %s: %w", code, err)
	}
	stats.Inserts++
	return nil
}
