package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Simplici0/ncrsim/internal/db"
)

func TestUpCreatesProductsTableAndIsRepeatable(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	for i := 0; i < 2; i++ {
		if err := Up(ctx, database); err != nil {
			t.Fatalf("run migrations (iteration=%d): %v", i, err)
		}
	}

	var name string
	err = database.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'products'`).Scan(&name)
	if err != nil {
		t.Fatalf("products table missing: %v", err)
	}
}
