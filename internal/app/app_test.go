package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"comandas-go/internal/db"
	"comandas-go/internal/orders"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	a, err := New(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewSeedsAndBootstraps(t *testing.T) {
	a := newTestApp(t, Config{
		BootstrapAdminEmail:    " Ana@Comandas.test",
		BootstrapAdminPassword: "cocina-segura",
		BootstrapAdminName:     "Ana",
	})
	ctx := context.Background()

	u, err := a.Store().Q.GetUserByEmail(ctx, "ana@comandas.test")
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, RoleAdmin, u.Role)
	require.True(t, CheckPassword(u.PasswordHash, "cocina-segura"))

	n, err := a.Store().Q.CountProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, len(db.DefaultCatalog()), n)
	require.Len(t, a.Config().TokenSecret, 32)
	require.Equal(t, 12*time.Hour, a.Config().TokenTTL)
}

func TestNewSeedsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
products:
  - name: Encebollado
    category: Platos Fuertes
    price: "6.50"
    prep_minutes: 15
    stock: 10
    min_stock: 2
`), 0o600))

	a := newTestApp(t, Config{DataDir: dir, SeedCatalogFile: path})
	list, err := a.Store().Q.ListProducts(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Encebollado", list[0].Name)
	require.Equal(t, int64(10), list[0].Stock)
}

func TestNewFallsBackWithoutPrinter(t *testing.T) {
	cfg := Config{}
	cfg.Printer.Mode = "amqp" // no URL
	a := newTestApp(t, cfg)
	require.Equal(t, "none", a.Config().Printer.Mode)
}

func TestTokens(t *testing.T) {
	a := newTestApp(t, Config{TokenSecret: []byte("0123456789abcdef0123456789abcdef"), TokenTTL: time.Hour})
	u := &db.User{ID: 7, Role: RoleWaiter, DisplayName: "Mario"}

	tok, exp, err := a.IssueToken(u)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := a.ParseToken(tok)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)

	_, err = a.ParseToken(tok + "x")
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	raw, err := expired.SignedString(a.Config().TokenSecret)
	require.NoError(t, err)
	_, err = a.ParseToken(raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	raw, err = other.SignedString(a.Config().TokenSecret)
	require.NoError(t, err)
	_, err = a.ParseToken(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("corta")
	require.Error(t, err)

	h, err := HashPassword("suficientemente-larga")
	require.NoError(t, err)
	require.True(t, CheckPassword(h, "suficientemente-larga"))
	require.False(t, CheckPassword(h, "otra"))
	require.False(t, CheckPassword("", "otra"))
}

func TestSSEPublishDeduplicates(t *testing.T) {
	h := NewSSEHub(quietLogger())
	ch, cancel := h.Subscribe(TopicsFor(RoleAdmin), 4)
	defer cancel()

	h.Publish(SSEEvent{Type: "x"}, TopicRole(RoleAdmin), TopicOrdersGlobal(), TopicInventory())
	require.Len(t, ch, 1)

	cancel()
	cancel()
	_, ok := <-ch
	require.True(t, ok)
	_, ok = <-ch
	require.False(t, ok)

	// publishing after unsubscribe must not panic
	h.Publish(SSEEvent{Type: "y"}, TopicRole(RoleAdmin))
}

func TestNotifyRouting(t *testing.T) {
	a := newTestApp(t, Config{})
	admin, cancelA := a.SSE().Subscribe(TopicsFor(RoleAdmin), 8)
	defer cancelA()
	kitchen, cancelK := a.SSE().Subscribe([]string{TopicRole(RoleKitchen)}, 8)
	defer cancelK()
	waiter, cancelW := a.SSE().Subscribe([]string{TopicRole(RoleWaiter)}, 8)
	defer cancelW()

	ctx := context.Background()
	a.Notify(ctx, orders.Event{Type: orders.EventLowStock, Data: map[string]any{"name": "Agua", "stock": 1}})
	a.Notify(ctx, orders.Event{Type: orders.EventApprovalRequested, OrderID: 3})
	a.Notify(ctx, orders.Event{Type: orders.EventOrderCreated, OrderID: 4})

	require.Len(t, admin, 3)
	require.Len(t, kitchen, 1)
	require.Len(t, waiter, 0)

	ev := <-kitchen
	require.Equal(t, string(orders.EventOrderCreated), ev.Type)
}

func TestTopicsFor(t *testing.T) {
	require.ElementsMatch(t, []string{"role:admin", "orders:global", "inventory:global"}, TopicsFor(RoleAdmin))
	require.ElementsMatch(t, []string{"role:kitchen", "orders:global"}, TopicsFor(RoleKitchen))
	require.True(t, ValidRole(RoleWaiter))
	require.False(t, ValidRole("bartender"))
}
