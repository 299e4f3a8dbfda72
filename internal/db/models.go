package db

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin   = "admin"
	RoleWaiter  = "waiter"
	RoleKitchen = "kitchen"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	DisplayName  string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Product struct {
	ID          int64
	Name        string
	Category    string
	Price       decimal.Decimal
	Description string
	IsAvailable bool
	PrepMinutes *int64
	Stock       int64
	MinStock    *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LowStock reports whether the product is at or under its configured minimum.
func (p Product) LowStock() bool {
	return p.MinStock != nil && p.Stock <= *p.MinStock
}

// Shortage is one requested quantity the catalog could not cover.
type Shortage struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int64  `json:"requested"`
	Available   int64  `json:"available"`
}

type Order struct {
	ID             int64
	TableNumber    int64
	WaiterID       *int64
	WaiterName     string
	Status         string
	Note           string
	Total          decimal.Decimal
	PrepMinutes    int64
	Modified       bool
	WithoutStock   bool
	Shortages      []Shortage
	ApprovedByID   *int64
	ApprovalReason string
	Printed        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time

	ApprovedByName string
	Items          []OrderItem
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Note      string
	// StockTaken is how many units were actually deducted from the product for this line.
	// It falls short of Quantity when an approval or an edit met an empty shelf.
	StockTaken int64

	ProductName     string
	ProductCategory string
	PrepMinutes     *int64
}

type HistoryEntry struct {
	ID          int64
	OrderID     int64
	Kind        string
	Description string
	Payload     json.RawMessage
	ActorName   string
	ActorRole   string
	Reason      string
	TotalDelta  decimal.Decimal
	CreatedAt   time.Time
}

type PushSubscription struct {
	ID       int64
	UserID   int64
	Endpoint string
	P256dh   string
	Auth     string
}

/* ---------- parameter structs ---------- */

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	DisplayName  string
	IsActive     bool
}

type CreateProductParams struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	Description string
	IsAvailable bool
	PrepMinutes *int64
	Stock       int64
	MinStock    *int64
}

type UpdateProductParams struct {
	ID          int64
	Name        string
	Category    string
	Price       decimal.Decimal
	Description string
	IsAvailable bool
	PrepMinutes *int64
	MinStock    *int64
}

type CreateOrderParams struct {
	TableNumber int64
	WaiterID    *int64
	WaiterName  string
	Status      string
	Note        string
	Total       decimal.Decimal
	PrepMinutes int64
	Shortages   []Shortage
}

type CreateOrderItemParams struct {
	OrderID    int64
	ProductID  int64
	Quantity   int64
	UnitPrice  decimal.Decimal
	Subtotal   decimal.Decimal
	Note       string
	StockTaken int64
}

type UpdateOrderTotalsParams struct {
	ID          int64
	Total       decimal.Decimal
	PrepMinutes int64
	Modified    bool
}

type ApproveOrderParams struct {
	ID         int64
	ApprovedBy int64
	Reason     string
}

type AppendHistoryParams struct {
	OrderID     int64
	Kind        string
	Description string
	Payload     json.RawMessage
	ActorName   string
	ActorRole   string
	Reason      string
	TotalDelta  decimal.Decimal
}

type SavePushSubscriptionParams struct {
	UserID   int64
	Endpoint string
	P256dh   string
	Auth     string
}
