package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comandas-go/internal/app"
)

const (
	adminEmail    = "ana@comandas.test"
	adminPassword = "cocina-segura"
)

type testEnv struct {
	app *app.App
	srv *httptest.Server
}

func newEnv(t *testing.T, withAdmin bool) *testEnv {
	t.Helper()
	cfg := app.Config{DataDir: t.TempDir()}
	if withAdmin {
		cfg.BootstrapAdminEmail = adminEmail
		cfg.BootstrapAdminPassword = adminPassword
		cfg.BootstrapAdminName = "Ana"
	}
	a, err := app.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	srv := httptest.NewServer(NewRouter(a))
	t.Cleanup(srv.Close)
	return &testEnv{app: a, srv: srv}
}

// call sends a JSON request and decodes the JSON response into out (when non-nil).
func (e *testEnv) call(t *testing.T, method, path, token string, body, out any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	var tok tokenResponse
	resp := e.call(t, http.MethodPost, "/api/auth/login", "", credentials{Email: email, Password: password}, &tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, tok.Token)
	return tok.Token
}

func (e *testEnv) createUser(t *testing.T, adminTok, email, name, role string) string {
	t.Helper()
	resp := e.call(t, http.MethodPost, "/api/users", adminTok, map[string]any{
		"email": email, "display_name": name, "role": role, "password": "contraseña-larga",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return e.login(t, email, "contraseña-larga")
}

func (e *testEnv) product(t *testing.T, tok, name string) productView {
	t.Helper()
	var out struct {
		Products []productView `json:"products"`
	}
	resp := e.call(t, http.MethodGet, "/api/products", tok, nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, p := range out.Products {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("product %q not in catalog", name)
	return productView{}
}

type errorBody struct {
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Status    int            `json:"status"`
	RequestID string         `json:"request_id"`
	Shortages []shortageView `json:"shortages"`
	Current   *int64         `json:"current"`
	Requested *int64         `json:"requested"`
}

type shortageView struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"product_name"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

func TestOnboardingGate(t *testing.T) {
	e := newEnv(t, false)

	resp := e.call(t, http.MethodGet, "/health", "", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var eb errorBody
	resp = e.call(t, http.MethodGet, "/api/products", "", nil, &eb)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "onboarding_required", eb.Error)

	resp = e.call(t, http.MethodPost, "/api/onboarding", "", credentials{Email: "x@y.z", Password: "short", DisplayName: "X"}, &eb)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var tok tokenResponse
	resp = e.call(t, http.MethodPost, "/api/onboarding", "", credentials{
		Email: " Ana@Comandas.test ", Password: adminPassword, DisplayName: "Ana",
	}, &tok)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, app.RoleAdmin, tok.User.Role)
	require.Equal(t, adminEmail, tok.User.Email)

	resp = e.call(t, http.MethodPost, "/api/onboarding", "", credentials{Email: "b@c.d", Password: adminPassword, DisplayName: "B"}, &eb)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "already_onboarded", eb.Error)

	resp = e.call(t, http.MethodGet, "/api/products", tok.Token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginAndMe(t *testing.T) {
	e := newEnv(t, true)

	var eb errorBody
	resp := e.call(t, http.MethodPost, "/api/auth/login", "", credentials{Email: adminEmail, Password: "wrong-password"}, &eb)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_credentials", eb.Error)

	resp = e.call(t, http.MethodGet, "/api/auth/me", "", nil, &eb)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
	require.NotEmpty(t, eb.RequestID)

	resp = e.call(t, http.MethodGet, "/api/auth/me", "not-a-token", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok := e.login(t, adminEmail, adminPassword)
	var me userView
	resp = e.call(t, http.MethodGet, "/api/auth/me", tok, nil, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Ana", me.DisplayName)
	require.True(t, me.IsActive)
}

func TestRoleGuards(t *testing.T) {
	e := newEnv(t, true)
	admin := e.login(t, adminEmail, adminPassword)
	cook := e.createUser(t, admin, "carla@comandas.test", "Carla", app.RoleKitchen)

	var eb errorBody
	resp := e.call(t, http.MethodPost, "/api/orders", cook, map[string]any{"table_number": 1}, &eb)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "forbidden", eb.Error)

	resp = e.call(t, http.MethodGet, "/api/approvals/pending", cook, nil, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.call(t, http.MethodGet, "/api/orders", cook, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.call(t, http.MethodGet, "/api/nope", cook, nil, &eb)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", eb.Error)
}

func TestCreateOrderNeedsApproval(t *testing.T) {
	e := newEnv(t, true)
	admin := e.login(t, adminEmail, adminPassword)
	waiter := e.createUser(t, admin, "mario@comandas.test", "Mario", app.RoleWaiter)

	cazuela := e.product(t, waiter, "Cazuela de Mariscos")
	body := map[string]any{
		"table_number": 4,
		"items":        []map[string]any{{"product_id": cazuela.ID, "quantity": cazuela.Stock + 1}},
	}

	var eb errorBody
	resp := e.call(t, http.MethodPost, "/api/orders", waiter, body, &eb)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "insufficient_stock", eb.Error)
	require.Equal(t, []shortageView{{ProductID: cazuela.ID, Name: "Cazuela de Mariscos", Requested: cazuela.Stock + 1, Available: cazuela.Stock}}, eb.Shortages)

	body["force_approval_request"] = true
	var created createOrderResponse
	resp = e.call(t, http.MethodPost, "/api/orders", waiter, body, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "pending_stock_approval", created.Order.Status)
	require.Equal(t, "Mario", created.Order.WaiterName)
	require.False(t, created.Print.Printed)
	require.Len(t, created.Order.Shortages, 1)
	require.Equal(t, cazuela.Stock, e.product(t, waiter, "Cazuela de Mariscos").Stock)

	orderPath := "/api/orders/" + itoa(created.Order.ID)

	resp = e.call(t, http.MethodPatch, orderPath+"/status", admin, map[string]any{"status": "in_preparation"}, &eb)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "invalid_state", eb.Error)

	var pending struct {
		Orders []orderView `json:"orders"`
		Count  int         `json:"count"`
	}
	resp = e.call(t, http.MethodGet, "/api/approvals/pending", admin, nil, &pending)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, pending.Count)
	require.Equal(t, created.Order.ID, pending.Orders[0].ID)

	var approved orderView
	resp = e.call(t, http.MethodPost, orderPath+"/approve", admin, nil, &approved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "pending", approved.Status)
	require.True(t, approved.WithoutStock)
	require.Equal(t, "Ana", approved.ApprovedByName)
	require.Equal(t, int64(0), e.product(t, waiter, "Cazuela de Mariscos").Stock)

	resp = e.call(t, http.MethodPost, orderPath+"/approve", admin, map[string]any{"reason": "otra vez"}, &eb)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var hist struct {
		History []struct {
			Kind       string          `json:"kind"`
			ActorName  string          `json:"actor_name"`
			Reason     string          `json:"reason"`
			TotalDelta decimal.Decimal `json:"total_delta"`
		} `json:"history"`
	}
	resp = e.call(t, http.MethodGet, orderPath+"/history", waiter, nil, &hist)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, hist.History, 2)
	assert.Equal(t, "order_created_pending_stock", hist.History[0].Kind)
	assert.True(t, hist.History[0].TotalDelta.Equal(created.Order.Total))
	assert.Equal(t, "order_approved_without_stock", hist.History[1].Kind)
	assert.Equal(t, "Ana", hist.History[1].ActorName)
	assert.NotEmpty(t, hist.History[1].Reason)
}

func TestRejectViaAPI(t *testing.T) {
	e := newEnv(t, true)
	admin := e.login(t, adminEmail, adminPassword)

	agua := e.product(t, admin, "Agua")
	var created createOrderResponse
	resp := e.call(t, http.MethodPost, "/api/orders", admin, map[string]any{
		"table_number":           2,
		"force_approval_request": true,
		"items":                  []map[string]any{{"product_id": agua.ID, "quantity": agua.Stock + 5}},
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var rejected orderView
	resp = e.call(t, http.MethodPost, "/api/orders/"+itoa(created.Order.ID)+"/reject", admin, map[string]any{"reason": "no llegó el proveedor"}, &rejected)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "cancelled", rejected.Status)
	require.Equal(t, agua.Stock, e.product(t, admin, "Agua").Stock)
}

func TestModifyViaAPI(t *testing.T) {
	e := newEnv(t, true)
	admin := e.login(t, adminEmail, adminPassword)
	waiter := e.createUser(t, admin, "mario@comandas.test", "Mario", app.RoleWaiter)

	patacones := e.product(t, waiter, "Patacones")
	cola := e.product(t, waiter, "Coca Cola")

	var created createOrderResponse
	resp := e.call(t, http.MethodPost, "/api/orders", waiter, map[string]any{
		"table_number": 7,
		"items":        []map[string]any{{"product_id": patacones.ID, "quantity": 2}},
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "pending", created.Order.Status)
	require.Equal(t, patacones.Stock-2, e.product(t, waiter, "Patacones").Stock)

	path := "/api/orders/" + itoa(created.Order.ID) + "/items"
	change := []map[string]any{{"kind": "set_quantity", "item_id": created.Order.Items[0].ID, "quantity": 3}}

	var eb errorBody
	resp = e.call(t, http.MethodPatch, path, waiter, map[string]any{"changes": change}, &eb)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation_error", eb.Error)

	resp = e.call(t, http.MethodPatch, path, waiter, map[string]any{"changes": []any{}, "reason": "nada"}, &eb)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var mod modifyOrderResponse
	resp = e.call(t, http.MethodPatch, path, waiter, map[string]any{
		"reason":  "el cliente pidió más",
		"changes": append(change, map[string]any{"kind": "add", "product_id": cola.ID, "quantity": 2}),
	}, &mod)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, mod.Changes)
	require.True(t, mod.Order.Modified)
	require.True(t, mod.Delta.Equal(decimal.RequireFromString("5.50")), mod.Delta.String())
	require.True(t, mod.NewTotal.Equal(mod.PreviousTotal.Add(mod.Delta)))
	require.Equal(t, patacones.Stock-3, e.product(t, waiter, "Patacones").Stock)
	require.Equal(t, cola.Stock-2, e.product(t, waiter, "Coca Cola").Stock)

	resp = e.call(t, http.MethodPatch, path, waiter, map[string]any{
		"reason":  "error",
		"changes": []map[string]any{{"kind": "remove", "item_id": 9999}},
	}, &eb)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusAndPrint(t *testing.T) {
	e := newEnv(t, true)
	admin := e.login(t, adminEmail, adminPassword)
	waiter := e.createUser(t, admin, "mario@comandas.test", "Mario", app.RoleWaiter)
	cook := e.createUser(t, admin, "carla@comandas.test", "Carla", app.RoleKitchen)

	arroz := e.product(t, waiter, "Arroz con Mariscos")
	var created createOrderResponse
	resp := e.call(t, http.MethodPost, "/api/orders", waiter, map[string]any{
		"table_number": 3,
		"items":        []map[string]any{{"product_id": arroz.ID, "quantity": 1}},
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Contains(t, created.Print.Error, "not configured")
	path := "/api/orders/" + itoa(created.Order.ID)

	var eb errorBody
	resp = e.call(t, http.MethodPost, path+"/print", cook, nil, &eb)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "printer_disabled", eb.Error)

	resp = e.call(t, http.MethodPatch, path+"/status", waiter, map[string]any{"status": "cancelled"}, &eb)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.call(t, http.MethodPatch, path+"/status", cook, map[string]any{"status": "lista"}, &eb)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var o orderView
	resp = e.call(t, http.MethodPatch, path+"/status", cook, map[string]any{"status": "in_preparation"}, &o)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "in_preparation", o.Status)

	resp = e.call(t, http.MethodPatch, path+"/status", admin, map[string]any{"status": "cancelled"}, &eb)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var list struct {
		Orders []orderView `json:"orders"`
	}
	resp = e.call(t, http.MethodGet, "/api/orders?status=in_preparation", cook, nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list.Orders, 1)

	resp = e.call(t, http.MethodGet, "/api/orders?status=bogus", cook, nil, &eb)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.call(t, http.MethodGet, "/api/orders/abc", cook, nil, &eb)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.call(t, http.MethodGet, "/api/orders/4040", cook, nil, &eb)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStockEndpoints(t *testing.T) {
	e := newEnv(t, true)
	admin := e.login(t, adminEmail, adminPassword)
	jugo := e.product(t, admin, "Jugo Natural")

	var eb errorBody
	resp := e.call(t, http.MethodPost, "/api/stock/validate", admin, map[string]any{"items": []any{}}, &eb)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var check struct {
		Sufficient bool           `json:"sufficient"`
		Shortages  []shortageView `json:"shortages"`
	}
	resp = e.call(t, http.MethodPost, "/api/stock/validate", admin, map[string]any{
		"items": []map[string]any{{"product_id": jugo.ID, "quantity": 1}, {"product_id": 999, "quantity": 1}},
	}, &check)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, check.Sufficient)
	require.Equal(t, []shortageView{{ProductID: 999, Name: "not found", Requested: 1, Available: 0}}, check.Shortages)

	stockPath := "/api/products/" + itoa(jugo.ID) + "/stock"
	resp = e.call(t, http.MethodPost, stockPath, admin, map[string]any{"amount": -(jugo.Stock + 1), "mode": "add"}, &eb)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "negative_stock", eb.Error)
	require.Equal(t, jugo.Stock, *eb.Current)

	var adj struct {
		Previous int64 `json:"previous"`
		New      int64 `json:"new"`
		LowStock bool  `json:"low_stock"`
	}
	resp = e.call(t, http.MethodPost, stockPath, admin, map[string]any{"amount": 2}, &adj)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, jugo.Stock, adj.Previous)
	require.Equal(t, int64(2), adj.New)
	require.True(t, adj.LowStock)

	var low struct {
		Products []productView `json:"products"`
	}
	resp = e.call(t, http.MethodGet, "/api/stock/low", admin, nil, &low)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, low.Products)
	require.Equal(t, "Jugo Natural", low.Products[0].Name)
}

func TestProductCatalogAdmin(t *testing.T) {
	e := newEnv(t, true)
	admin := e.login(t, adminEmail, adminPassword)

	var p productView
	resp := e.call(t, http.MethodPost, "/api/products", admin, map[string]any{
		"name": "Bolón de Verde", "category": "Entradas", "price": "3.75", "stock": 12, "min_stock": 3, "prep_minutes": 12,
	}, &p)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, p.Price.Equal(decimal.RequireFromString("3.75")))
	require.Equal(t, int64(12), p.Stock)

	var eb errorBody
	resp = e.call(t, http.MethodPost, "/api/products", admin, map[string]any{"name": "Bolón de Verde", "category": "Entradas", "price": "1"}, &eb)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = e.call(t, http.MethodPatch, "/api/products/"+itoa(p.ID), admin, map[string]any{"stock": 1}, &eb)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.call(t, http.MethodPatch, "/api/products/"+itoa(p.ID), admin, map[string]any{"is_available": false, "price": "4.00"}, &p)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, p.IsAvailable)
	require.Equal(t, "Entradas", p.Category)

	var menu struct {
		Products []productView `json:"products"`
	}
	e.call(t, http.MethodGet, "/api/products", admin, nil, &menu)
	for _, m := range menu.Products {
		require.NotEqual(t, "Bolón de Verde", m.Name)
	}
	e.call(t, http.MethodGet, "/api/products?all=1", admin, nil, &menu)
	found := false
	for _, m := range menu.Products {
		found = found || m.Name == "Bolón de Verde"
	}
	require.True(t, found)
}

func TestLastAdminStaysActive(t *testing.T) {
	e := newEnv(t, true)
	admin := e.login(t, adminEmail, adminPassword)

	var me userView
	e.call(t, http.MethodGet, "/api/auth/me", admin, nil, &me)

	var eb errorBody
	resp := e.call(t, http.MethodPost, "/api/users/"+itoa(me.ID)+"/active", admin, map[string]any{"active": false}, &eb)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "last_admin", eb.Error)

	waiter := e.createUser(t, admin, "mario@comandas.test", "Mario", app.RoleWaiter)
	var wme userView
	e.call(t, http.MethodGet, "/api/auth/me", waiter, nil, &wme)

	var updated userView
	resp = e.call(t, http.MethodPost, "/api/users/"+itoa(wme.ID)+"/active", admin, map[string]any{"active": false}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, updated.IsActive)

	resp = e.call(t, http.MethodGet, "/api/auth/me", waiter, nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.call(t, http.MethodPost, "/api/users", admin, map[string]any{
		"email": "mario@comandas.test", "display_name": "Otro", "role": app.RoleWaiter, "password": "contraseña-larga",
	}, &eb)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "email_taken", eb.Error)

	resp = e.call(t, http.MethodPost, "/api/users", admin, map[string]any{
		"email": "x@comandas.test", "display_name": "X", "role": "bartender", "password": "contraseña-larga",
	}, &eb)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var settings settingsView
	resp = e.call(t, http.MethodGet, "/api/admin/settings", admin, nil, &settings)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, settings.Counts["users"])
	require.Equal(t, "none", settings.PrinterMode)
}

func TestPushSubscriptions(t *testing.T) {
	e := newEnv(t, true)
	admin := e.login(t, adminEmail, adminPassword)

	var key struct {
		Enabled bool `json:"enabled"`
	}
	resp := e.call(t, http.MethodGet, "/api/push/public-key", admin, nil, &key)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, key.Enabled)

	var eb errorBody
	resp = e.call(t, http.MethodPost, "/api/push/subscriptions", admin, map[string]any{"endpoint": "http://insecure"}, &eb)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	sub := map[string]any{
		"endpoint": "https://push.example.test/abc",
		"keys":     map[string]any{"p256dh": "BPk", "auth": "c2VjcmV0"},
	}
	resp = e.call(t, http.MethodPost, "/api/push/subscriptions", admin, sub, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	subs, err := e.app.Store().Q.ListPushSubscriptionsByRole(context.Background(), app.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	resp = e.call(t, http.MethodDelete, "/api/push/subscriptions", admin, map[string]any{"endpoint": "https://push.example.test/abc"}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	subs, err = e.app.Store().Q.ListPushSubscriptionsByRole(context.Background(), app.RoleAdmin)
	require.NoError(t, err)
	require.Empty(t, subs)
}
