package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"comandas-go/internal/app"
	"comandas-go/internal/db"
	"comandas-go/internal/httpx"
	"comandas-go/internal/orders"
)

type productInput struct {
	Name        *string          `json:"name"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	IsAvailable *bool            `json:"is_available"`
	PrepMinutes *int64           `json:"prep_minutes"`
	Stock       *int64           `json:"stock"`
	MinStock    *int64           `json:"min_stock"`
}

func (in productInput) validate() string {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return "name must not be empty"
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) == "" {
		return "category must not be empty"
	}
	if in.Price != nil && in.Price.IsNegative() {
		return "price must not be negative"
	}
	if in.PrepMinutes != nil && *in.PrepMinutes < 0 {
		return "prep_minutes must not be negative"
	}
	if in.Stock != nil && *in.Stock < 0 {
		return "stock must not be negative"
	}
	if in.MinStock != nil && *in.MinStock < 0 {
		return "min_stock must not be negative"
	}
	return ""
}

// ProductList serves the menu. Admins may pass ?all=1 to include unavailable products.
func (s *Server) ProductList(w http.ResponseWriter, r *http.Request) {
	onlyAvailable := true
	if u := s.App.CurrentUser(r); u != nil && u.Role == app.RoleAdmin && r.URL.Query().Get("all") == "1" {
		onlyAvailable = false
	}
	list, err := s.App.Store().Q.ListProducts(r.Context(), onlyAvailable)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": productViews(list)})
}

func (s *Server) ProductCreate(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if in.Name == nil || in.Category == nil || in.Price == nil {
		s.badRequest(w, r, "name, category and price are required")
		return
	}
	if msg := in.validate(); msg != "" {
		s.badRequest(w, r, msg)
		return
	}

	p := db.CreateProductParams{
		Name:        strings.TrimSpace(*in.Name),
		Category:    strings.TrimSpace(*in.Category),
		Price:       *in.Price,
		IsAvailable: true,
		PrepMinutes: in.PrepMinutes,
		MinStock:    in.MinStock,
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}

	ctx := r.Context()
	id, err := s.App.Store().Q.CreateProduct(ctx, p)
	if err != nil {
		if db.IsUniqueViolation(err) {
			httpx.WriteError(ctx, w, httpx.NewError("name_taken", "a product with that name already exists", http.StatusConflict))
			return
		}
		s.fail(w, r, err)
		return
	}
	created, err := s.App.Store().Q.GetProductByID(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.App.Logger().Info("product created", "product_id", id, "name", p.Name)
	s.App.Notify(ctx, orders.Event{Type: orders.EventInventoryChanged, Data: map[string]any{"product_id": id}})
	httpx.WriteJSON(w, http.StatusCreated, newProductView(*created))
}

// ProductUpdate patches catalog fields. Stock changes go through the stock endpoint.
func (s *Server) ProductUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var in productInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if in.Stock != nil {
		s.badRequest(w, r, "stock is adjusted via POST /api/products/{id}/stock")
		return
	}
	if msg := in.validate(); msg != "" {
		s.badRequest(w, r, msg)
		return
	}

	ctx := r.Context()
	cur, err := s.App.Store().Q.GetProductByID(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if cur == nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "product not found", http.StatusNotFound))
		return
	}

	p := db.UpdateProductParams{
		ID:          id,
		Name:        cur.Name,
		Category:    cur.Category,
		Price:       cur.Price,
		Description: cur.Description,
		IsAvailable: cur.IsAvailable,
		PrepMinutes: cur.PrepMinutes,
		MinStock:    cur.MinStock,
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	if in.PrepMinutes != nil {
		p.PrepMinutes = in.PrepMinutes
	}
	if in.MinStock != nil {
		p.MinStock = in.MinStock
	}

	if err := s.App.Store().Q.UpdateProduct(ctx, p); err != nil {
		if db.IsUniqueViolation(err) {
			httpx.WriteError(ctx, w, httpx.NewError("name_taken", "a product with that name already exists", http.StatusConflict))
			return
		}
		s.fail(w, r, err)
		return
	}
	updated, err := s.App.Store().Q.GetProductByID(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.App.Notify(ctx, orders.Event{Type: orders.EventInventoryChanged, Data: map[string]any{"product_id": id}})
	httpx.WriteJSON(w, http.StatusOK, newProductView(*updated))
}

/* ---------------- Stock ---------------- */

func (s *Server) StockValidate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Items []orders.StockRequest `json:"items"`
	}
	if !s.decodeJSON(w, r, &in) {
		return
	}
	res, err := s.App.Orders().CheckStock(r.Context(), in.Items)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) StockAdjust(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		Amount *int64           `json:"amount"`
		Mode   orders.StockMode `json:"mode"`
	}
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if in.Amount == nil {
		s.badRequest(w, r, "amount is required")
		return
	}
	if in.Mode == "" {
		in.Mode = orders.StockSet
	}

	adj, err := s.App.Orders().AdjustStock(r.Context(), id, *in.Amount, in.Mode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adj)
}

func (s *Server) StockLow(w http.ResponseWriter, r *http.Request) {
	list, err := s.App.Orders().LowStock(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": productViews(list), "count": len(list)})
}
