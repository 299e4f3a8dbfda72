package printer

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDisabled is returned by the no-op printer so callers can tell "not configured"
// apart from a real device failure.
var ErrDisabled = errors.New("printer: not configured")

// ErrUnavailable wraps every transport failure of a configured printer.
var ErrUnavailable = errors.New("printer: unavailable")

// Printer sends kitchen tickets to a device or a print agent.
type Printer interface {
	PrintTicket(ctx context.Context, t Ticket) error
	Test(ctx context.Context) error
}

// Ticket is what the kitchen sees for one order.
type Ticket struct {
	OrderID      int64           `json:"order_id"`
	TableNumber  int64           `json:"table_number"`
	WaiterName   string          `json:"waiter_name"`
	Note         string          `json:"note,omitempty"`
	PrepMinutes  int64           `json:"prep_minutes"`
	Total        decimal.Decimal `json:"total"`
	Modified     bool            `json:"modified,omitempty"`
	WithoutStock bool            `json:"without_stock,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Lines        []TicketLine    `json:"lines"`
}

type TicketLine struct {
	Quantity int64  `json:"quantity"`
	Name     string `json:"name"`
	Note     string `json:"note,omitempty"`
}

// Noop discards tickets.
type Noop struct{}

func (Noop) PrintTicket(context.Context, Ticket) error { return ErrDisabled }
func (Noop) Test(context.Context) error                { return ErrDisabled }
