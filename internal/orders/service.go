package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"comandas-go/internal/db"
	"comandas-go/internal/printer"
)

// Actor is the authenticated user performing an operation. Handlers resolve it from the
// bearer token; the service never reads ambient session state.
type Actor struct {
	ID   int64
	Name string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == db.RoleAdmin }

// EventType identifies a change pushed to live clients.
type EventType string

const (
	EventOrderCreated      EventType = "order.created"
	EventOrderModified     EventType = "order.modified"
	EventOrderStatus       EventType = "order.status"
	EventApprovalRequested EventType = "order.approval_requested"
	EventOrderApproved     EventType = "order.approved"
	EventOrderRejected     EventType = "order.rejected"
	EventOrderPrinted      EventType = "order.printed"
	EventInventoryChanged  EventType = "inventory.changed"
	EventLowStock          EventType = "inventory.low_stock"
)

type Event struct {
	Type    EventType      `json:"type"`
	OrderID int64          `json:"order_id,omitempty"`
	Status  Status         `json:"status,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Notifier fans events out to SSE subscribers and push endpoints.
// Delivery is best effort and never fails an operation.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

type Deps struct {
	Store        *db.Store
	Printer      printer.Printer
	Notifier     Notifier
	Logger       *slog.Logger
	PrintTimeout time.Duration
}

type Service struct {
	store        *db.Store
	printer      printer.Printer
	notifier     Notifier
	log          *slog.Logger
	printTimeout time.Duration
}

func New(d Deps) *Service {
	s := &Service{
		store:        d.Store,
		printer:      d.Printer,
		notifier:     d.Notifier,
		log:          d.Logger,
		printTimeout: d.PrintTimeout,
	}
	if s.printer == nil {
		s.printer = printer.Noop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.printTimeout <= 0 {
		s.printTimeout = printer.DefaultTimeout
	}
	return s
}

func (s *Service) notify(ctx context.Context, e Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, e)
}

/* ---------------- Create ---------------- */

type ItemInput struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Note      string `json:"note"`
}

type CreateInput struct {
	TableNumber int64       `json:"table_number"`
	WaiterName  string      `json:"waiter_name"`
	Note        string      `json:"note"`
	Items       []ItemInput `json:"items"`
	// ForceApprovalRequest creates the order anyway when stock is short; it then waits
	// for an admin in pending_stock_approval.
	ForceApprovalRequest bool `json:"force_approval_request"`
}

type CreateResult struct {
	Order      *db.Order
	Printed    bool
	PrintError string
}

// Create validates stock and persists a new order with its items and creation history.
func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (CreateResult, error) {
	if in.TableNumber <= 0 {
		return CreateResult{}, validationf("table number must be positive")
	}
	if len(in.Items) == 0 {
		return CreateResult{}, validationf("order needs at least one item")
	}
	reqs := make([]StockRequest, 0, len(in.Items))
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return CreateResult{}, validationf("item %d: quantity must be positive", i+1)
		}
		reqs = append(reqs, StockRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	waiter := in.WaiterName
	if waiter == "" {
		waiter = actor.Name
	}

	var orderID int64
	var status Status
	err := s.store.WithTx(ctx, func(q *db.Queries) error {
		products, err := q.GetProductsByIDs(ctx, productIDs(reqs))
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		for _, it := range in.Items {
			if _, ok := products[it.ProductID]; !ok {
				return notFoundf("product %d", it.ProductID)
			}
		}

		check := validateAgainst(products, mergeRequests(reqs))
		status = StatusPending
		if !check.Sufficient {
			if !in.ForceApprovalRequest {
				return &InsufficientStockError{Shortages: check.Shortages}
			}
			status = StatusPendingStockApproval
		}

		total := decimal.Zero
		lines := make([]PrepLine, 0, len(in.Items))
		snapshots := make([]ItemSnapshot, 0, len(in.Items))
		for _, it := range in.Items {
			p := products[it.ProductID]
			total = total.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
			lines = append(lines, PrepLine{Category: p.Category, PrepMinutes: p.PrepMinutes})
		}

		var actorID *int64
		if actor.ID != 0 {
			actorID = &actor.ID
		}
		var shortages []Shortage
		if status == StatusPendingStockApproval {
			shortages = check.Shortages
		}
		orderID, err = q.CreateOrder(ctx, db.CreateOrderParams{
			TableNumber: in.TableNumber,
			WaiterID:    actorID,
			WaiterName:  waiter,
			Status:      string(status),
			Note:        in.Note,
			Total:       total,
			PrepMinutes: EstimatePrepMinutes(lines),
			Shortages:   shortages,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, it := range in.Items {
			p := products[it.ProductID]
			var taken int64
			if status == StatusPending {
				if taken, err = takeStock(ctx, q, p.ID, it.Quantity); err != nil {
					return err
				}
			}
			itemID, err := q.CreateOrderItem(ctx, db.CreateOrderItemParams{
				OrderID:    orderID,
				ProductID:  p.ID,
				Quantity:   it.Quantity,
				UnitPrice:  p.Price,
				Subtotal:   p.Price.Mul(decimal.NewFromInt(it.Quantity)),
				Note:       it.Note,
				StockTaken: taken,
			})
			if err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
			snapshots = append(snapshots, ItemSnapshot{
				ItemID:    itemID,
				ProductID: p.ID,
				Name:      p.Name,
				Quantity:  it.Quantity,
				UnitPrice: p.Price,
			})
		}

		desc := fmt.Sprintf("Orden creada para la mesa %d", in.TableNumber)
		if status == StatusPendingStockApproval {
			desc = fmt.Sprintf("Orden creada para la mesa %d sin stock suficiente, pendiente de aprobación", in.TableNumber)
		}
		entry, err := newEntry(orderID, actor, "", desc, total, CreatedPayload{
			Status:    status,
			Items:     snapshots,
			Shortages: shortages,
		})
		if err != nil {
			return err
		}
		return q.AppendHistory(ctx, entry)
	})
	if err != nil {
		return CreateResult{}, err
	}

	o, err := s.store.Q.GetOrderByID(ctx, orderID)
	if err != nil {
		return CreateResult{}, fmt.Errorf("reload order: %w", err)
	}
	s.log.Info("order created", "order_id", o.ID, "table", o.TableNumber, "status", o.Status, "total", o.Total.StringFixed(2))

	res := CreateResult{Order: o}
	if status == StatusPendingStockApproval {
		s.notify(ctx, Event{
			Type:    EventApprovalRequested,
			OrderID: o.ID,
			Status:  status,
			Data:    map[string]any{"table_number": o.TableNumber, "waiter": o.WaiterName, "shortages": o.Shortages},
		})
		return res, nil
	}

	s.notify(ctx, Event{Type: EventOrderCreated, OrderID: o.ID, Status: status, Data: map[string]any{"table_number": o.TableNumber}})
	s.notifyLowStock(ctx, o.Items)
	if err := s.printOrder(ctx, o); err != nil {
		res.PrintError = err.Error()
	} else {
		res.Printed = true
	}
	return res, nil
}

func productIDs(reqs []StockRequest) []int64 {
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ProductID)
	}
	return ids
}

/* ---------------- Read ---------------- */

func (s *Service) Get(ctx context.Context, orderID int64) (*db.Order, error) {
	o, err := s.store.Q.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if o == nil {
		return nil, notFoundf("order %d", orderID)
	}
	return o, nil
}

// List returns orders newest first. An empty status lists everything.
func (s *Service) List(ctx context.Context, status string) ([]db.Order, error) {
	if status != "" {
		if _, ok := ParseStatus(status); !ok {
			return nil, validationf("unknown status %q", status)
		}
	}
	return s.store.Q.ListOrders(ctx, status, false)
}

// History returns the decoded audit trail of an order in creation order.
func (s *Service) History(ctx context.Context, orderID int64) ([]Entry, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	rows, err := s.store.Q.ListHistory(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e, err := decodeEntry(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

/* ---------------- Status ---------------- */

// SetStatus moves an order along the kitchen lifecycle. Orders waiting for stock
// approval only leave that state through Approve or Reject.
func (s *Service) SetStatus(ctx context.Context, actor Actor, orderID int64, to Status) (*db.Order, error) {
	if _, ok := ParseStatus(string(to)); !ok {
		return nil, validationf("unknown status %q", to)
	}

	var from Status
	err := s.store.WithTx(ctx, func(q *db.Queries) error {
		o, err := q.GetOrderByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if o == nil {
			return notFoundf("order %d", orderID)
		}
		from = Status(o.Status)
		if from == StatusPendingStockApproval {
			return invalidStatef("order %d is waiting for stock approval", orderID)
		}
		if !canTransition(from, to) {
			return invalidStatef("order %d cannot move from %s to %s", orderID, from, to)
		}
		if to == StatusCancelled && !actor.IsAdmin() {
			return fmt.Errorf("%w: only admins can cancel orders", ErrForbidden)
		}

		// Only what was actually deducted goes back; approved shortfalls never reached the shelf.
		restored := false
		if to == StatusCancelled && from == StatusPending {
			for _, it := range o.Items {
				if err := returnStock(ctx, q, it.ProductID, it.StockTaken); err != nil {
					return err
				}
			}
			restored = true
		}
		if err := q.UpdateOrderStatus(ctx, orderID, string(to)); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		p := StatusPayload{From: from, To: to, StockRestored: restored}
		entry, err := newEntry(orderID, actor, "", statusDescription(p), decimal.Zero, p)
		if err != nil {
			return err
		}
		return q.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.log.Info("order status changed", "order_id", orderID, "from", from, "to", to, "actor", actor.Name)
	s.notify(ctx, Event{Type: EventOrderStatus, OrderID: orderID, Status: to, Data: map[string]any{"from": from}})
	if to == StatusCancelled && from == StatusPending {
		s.notify(ctx, Event{Type: EventInventoryChanged, OrderID: orderID})
	}
	return o, nil
}

func statusDescription(p StatusPayload) string {
	switch p.To {
	case StatusCompleted:
		return "Orden completada"
	case StatusCancelled:
		if p.StockRestored {
			return "Orden cancelada, stock restituido"
		}
		return "Orden cancelada"
	}
	return fmt.Sprintf("Estado cambiado de %s a %s", p.From, p.To)
}

/* ---------------- Print ---------------- */

// Print sends the kitchen ticket for an order that is queued or cooking.
func (s *Service) Print(ctx context.Context, orderID int64) (*db.Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !Status(o.Status).printable() {
		return nil, invalidStatef("order %d in status %s cannot be printed", orderID, o.Status)
	}
	if err := s.printOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// TestPrinter prints a connectivity ticket.
func (s *Service) TestPrinter(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.printTimeout)
	defer cancel()
	return s.printer.Test(ctx)
}

// printOrder is best effort: a failure is logged and returned but never undoes the order.
func (s *Service) printOrder(ctx context.Context, o *db.Order) error {
	pctx, cancel := context.WithTimeout(ctx, s.printTimeout)
	defer cancel()

	if err := s.printer.PrintTicket(pctx, ticketFor(o)); err != nil {
		if errors.Is(err, printer.ErrDisabled) {
			s.log.Debug("printing skipped", "order_id", o.ID, "err", err)
		} else {
			s.log.Warn("print failed", "order_id", o.ID, "err", err)
		}
		return err
	}
	if err := s.store.Q.SetOrderPrinted(ctx, o.ID, true); err != nil {
		s.log.Warn("mark printed failed", "order_id", o.ID, "err", err)
	}
	o.Printed = true
	s.notify(ctx, Event{Type: EventOrderPrinted, OrderID: o.ID, Status: Status(o.Status)})
	return nil
}

func ticketFor(o *db.Order) printer.Ticket {
	t := printer.Ticket{
		OrderID:      o.ID,
		TableNumber:  o.TableNumber,
		WaiterName:   o.WaiterName,
		Note:         o.Note,
		PrepMinutes:  o.PrepMinutes,
		Total:        o.Total,
		Modified:     o.Modified,
		WithoutStock: o.WithoutStock,
		CreatedAt:    o.CreatedAt,
	}
	for _, it := range o.Items {
		t.Lines = append(t.Lines, printer.TicketLine{Quantity: it.Quantity, Name: it.ProductName, Note: it.Note})
	}
	return t
}

func (s *Service) notifyLowStock(ctx context.Context, items []db.OrderItem) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.store.Q.GetProductsByIDs(ctx, ids)
	if err != nil {
		s.log.Warn("low stock check failed", "err", err)
		return
	}
	s.notify(ctx, Event{Type: EventInventoryChanged})
	for _, id := range ids {
		p, ok := products[id]
		if !ok || !p.LowStock() {
			continue
		}
		delete(products, id)
		s.notify(ctx, Event{Type: EventLowStock, Data: map[string]any{"product_id": p.ID, "name": p.Name, "stock": p.Stock}})
	}
}
