package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, Migrate(s.DB))
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, Migrate(s.DB))
}

func TestSeedCatalogKeepsStock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, SeedCatalog(s.DB, DefaultCatalog()))
	n, err := s.Q.CountProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, len(DefaultCatalog()), n)

	list, err := s.Q.ListProducts(ctx, true)
	require.NoError(t, err)
	agua := list[0]
	for _, p := range list {
		if p.Name == "Agua" {
			agua = p
		}
	}
	require.NoError(t, s.Q.SetProductStock(ctx, agua.ID, 3))

	catalog := DefaultCatalog()
	for i := range catalog {
		if catalog[i].Name == "Agua" {
			catalog[i].Price = "1.25"
		}
	}
	require.NoError(t, SeedCatalog(s.DB, catalog))

	got, err := s.Q.GetProductByID(ctx, agua.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), got.Stock)
	require.True(t, got.Price.Equal(decimal.RequireFromString("1.25")))
	require.True(t, got.LowStock())
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "menu.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
products:
  - name: Tigrillo
    category: Entradas
    price: "4.00"
    stock: 8
  - name: Café
    category: Bebidas
    price: "1.20"
    unavailable: true
`), 0o600))

	products, err := LoadCatalogFile(good)
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "Tigrillo", products[0].Name)
	require.True(t, products[1].Unavailable)
	require.Nil(t, products[0].MinStock)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("products:\n  - name: X\n    category: Y\n    price: diez\n"), 0o600))
	_, err = LoadCatalogFile(bad)
	require.ErrorContains(t, err, "invalid price")

	_, err = LoadCatalogFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestUniqueViolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := CreateUserParams{Email: "a@b.c", PasswordHash: "x", Role: RoleWaiter, DisplayName: "A", IsActive: true}
	_, err := s.Q.CreateUser(ctx, p)
	require.NoError(t, err)
	_, err = s.Q.CreateUser(ctx, p)
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))
	require.False(t, IsUniqueViolation(context.Canceled))
}

func TestHistoryPinsOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Q.CreateOrder(ctx, CreateOrderParams{TableNumber: 1, WaiterName: "Mario", Status: "pending", Total: decimal.Zero})
	require.NoError(t, err)
	require.NoError(t, s.Q.AppendHistory(ctx, AppendHistoryParams{
		OrderID: id, Kind: "order_created", Description: "creada", Payload: []byte(`{}`),
		ActorName: "Mario", ActorRole: RoleWaiter, TotalDelta: decimal.Zero,
	}))

	_, err = s.DB.ExecContext(ctx, `DELETE FROM orders WHERE id=?`, id)
	require.Error(t, err)

	h, err := s.Q.ListHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, h, 1)
}

func TestWithTxRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(q *Queries) error {
		if _, err := q.CreateUser(ctx, CreateUserParams{Email: "x@y.z", PasswordHash: "h", Role: RoleAdmin, DisplayName: "X", IsActive: true}); err != nil {
			return err
		}
		return context.DeadlineExceeded
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	has, err := s.Q.HasAnyAdmin(ctx)
	require.NoError(t, err)
	require.False(t, has)

	counts, err := s.Q.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, counts["users"])
}

func TestMigrateAddsStockTakenToOldItems(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "old.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.DB.Exec(`CREATE TABLE order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL CHECK(quantity > 0),
		unit_price TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT ''
	)`)
	require.NoError(t, err)

	require.NoError(t, Migrate(s.DB))
	require.NoError(t, Migrate(s.DB))

	var n int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(stock_taken) FROM order_items`).Scan(&n))
	require.Zero(t, n)
}

func TestOrderItemStockTaken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pid, err := s.Q.CreateProduct(ctx, CreateProductParams{Name: "Ceviche", Category: "Platos Fuertes", Price: decimal.RequireFromString("9"), IsAvailable: true, Stock: 1})
	require.NoError(t, err)
	oid, err := s.Q.CreateOrder(ctx, CreateOrderParams{TableNumber: 2, WaiterName: "Mario", Status: "pending", Total: decimal.RequireFromString("27")})
	require.NoError(t, err)
	iid, err := s.Q.CreateOrderItem(ctx, CreateOrderItemParams{
		OrderID: oid, ProductID: pid, Quantity: 3,
		UnitPrice: decimal.RequireFromString("9"), Subtotal: decimal.RequireFromString("27"), StockTaken: 1,
	})
	require.NoError(t, err)

	require.NoError(t, s.Q.UpdateOrderItemQuantity(ctx, oid, iid, 2, decimal.RequireFromString("18")))
	require.NoError(t, s.Q.SetOrderItemStockTaken(ctx, oid, iid, 2))

	items, err := s.Q.ListOrderItems(ctx, oid)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(2), items[0].Quantity)
	require.Equal(t, int64(2), items[0].StockTaken)
	require.True(t, items[0].Subtotal.Equal(decimal.RequireFromString("18")))
	require.Equal(t, "Ceviche", items[0].ProductName)
}
