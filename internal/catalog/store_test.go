package catalog_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/ncrsim/internal/catalog"
	"github.com/Simplici0/ncrsim/internal/db"
	"github.com/Simplici0/ncrsim/internal/migrations"
	"github.com/Simplici0/ncrsim/internal/seed"
)

func newSeededStore(t *testing.T) (*catalog.Store, *sql.DB) {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, migrations.Up(ctx, database))
	_, err = seed.Run(ctx, database, catalog.DefaultProducts())
	require.NoError(t, err)

	return catalog.NewStore(database), database
}

func TestStoreResolveByCode(t *testing.T) {
	store, _ := newSeededStore(t)
	ctx := context.Background()

	p, err := store.ResolveByCode(ctx, "j1453 ")
	require.NoError(t, err)
	require.Equal(t, "VARUBI", p.Brand)
	require.Equal(t, "Fosaprepitant", p.Generic)
	require.True(t, p.WAC.Equal(decimal.RequireFromString("285")))

	_, err = store.ResolveByCode(ctx, "X9999")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestStoreUpsertAndList(t *testing.T) {
	store, _ := newSeededStore(t)
	ctx := context.Background()

	inserted, err := store.Upsert(ctx, catalog.Product{
		Code:    "j9999",
		Brand:   "TESTRA",
		Generic: "Testumab",
		Dosage:  "50 mg",
		WAC:     decimal.RequireFromString("1234.56"),
	})
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = store.Upsert(ctx, catalog.Product{
		Code:  "J9999",
		Brand: "TESTRA XR",
		WAC:   decimal.RequireFromString("1300"),
	})
	require.NoError(t, err)
	require.False(t, inserted)

	p, err := store.ResolveByCode(ctx, "J9999")
	require.NoError(t, err)
	require.Equal(t, "TESTRA XR", p.Brand)
	require.Equal(t, "1300", p.WAC.String())

	products, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, len(catalog.DefaultProducts())+1)
	require.Equal(t, "J0897", products[0].Code)
	require.Equal(t, "J9999", products[len(products)-1].Code)

	_, err = store.Upsert(ctx, catalog.Product{Code: " "})
	require.Error(t, err)
}

func TestStoreSkipsInactiveProducts(t *testing.T) {
	store, database := newSeededStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, catalog.Product{Code: "J0001", Brand: "OLD", WAC: decimal.NewFromInt(1)})
	require.NoError(t, err)

	_, err = database.ExecContext(ctx, `UPDATE products SET active = FALSE WHERE code = 'J0001'`)
	require.NoError(t, err)

	_, err = store.ResolveByCode(ctx, "J0001")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
