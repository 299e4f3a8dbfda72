package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"comandas-go/internal/db"
)

// JSON shapes of the db models. The db package stays free of wire concerns.

type userView struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func newUserView(u db.User) userView {
	return userView{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		DisplayName: u.DisplayName,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}

type productView struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	IsAvailable bool            `json:"is_available"`
	PrepMinutes *int64          `json:"prep_minutes"`
	Stock       int64           `json:"stock"`
	MinStock    *int64          `json:"min_stock"`
	LowStock    bool            `json:"low_stock"`
}

func newProductView(p db.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price,
		Description: p.Description,
		IsAvailable: p.IsAvailable,
		PrepMinutes: p.PrepMinutes,
		Stock:       p.Stock,
		MinStock:    p.MinStock,
		LowStock:    p.LowStock(),
	}
}

func productViews(ps []db.Product) []productView {
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProductView(p))
	}
	return out
}

type itemView struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Note      string          `json:"note,omitempty"`
}

type orderView struct {
	ID             int64           `json:"id"`
	TableNumber    int64           `json:"table_number"`
	WaiterID       *int64          `json:"waiter_id"`
	WaiterName     string          `json:"waiter_name"`
	Status         string          `json:"status"`
	Note           string          `json:"note,omitempty"`
	Total          decimal.Decimal `json:"total"`
	PrepMinutes    int64           `json:"prep_minutes"`
	Modified       bool            `json:"modified"`
	WithoutStock   bool            `json:"without_stock"`
	Shortages      []db.Shortage   `json:"shortages,omitempty"`
	ApprovedByID   *int64          `json:"approved_by_id,omitempty"`
	ApprovedByName string          `json:"approved_by_name,omitempty"`
	ApprovalReason string          `json:"approval_reason,omitempty"`
	Printed        bool            `json:"printed"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Items          []itemView      `json:"items"`
}

func newOrderView(o db.Order) orderView {
	v := orderView{
		ID:             o.ID,
		TableNumber:    o.TableNumber,
		WaiterID:       o.WaiterID,
		WaiterName:     o.WaiterName,
		Status:         o.Status,
		Note:           o.Note,
		Total:          o.Total,
		PrepMinutes:    o.PrepMinutes,
		Modified:       o.Modified,
		WithoutStock:   o.WithoutStock,
		Shortages:      o.Shortages,
		ApprovedByID:   o.ApprovedByID,
		ApprovedByName: o.ApprovedByName,
		ApprovalReason: o.ApprovalReason,
		Printed:        o.Printed,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		Items:          make([]itemView, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, itemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Category:  it.ProductCategory,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
			Note:      it.Note,
		})
	}
	return v
}

func orderViews(os []db.Order) []orderView {
	out := make([]orderView, 0, len(os))
	for _, o := range os {
		out = append(out, newOrderView(o))
	}
	return out
}
