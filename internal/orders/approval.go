package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"comandas-go/internal/db"
)

const (
	defaultApproveReason = "Aprobado por administrador"
	defaultRejectReason  = "Rechazado por falta de stock"
)

// loadPendingApproval checks the shared preconditions of Approve and Reject: the order
// waits for stock approval and the acting user, as currently stored, is an active admin.
func loadPendingApproval(ctx context.Context, q *db.Queries, actor Actor, orderID int64) (*db.Order, *db.User, error) {
	o, err := q.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("load order: %w", err)
	}
	if o == nil {
		return nil, nil, notFoundf("order %d", orderID)
	}
	if Status(o.Status) != StatusPendingStockApproval {
		return nil, nil, invalidStatef("order %d is %s, not waiting for stock approval", orderID, o.Status)
	}

	u, err := q.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, nil, notFoundf("user %d", actor.ID)
	}
	if u.Role != db.RoleAdmin || !u.IsActive {
		return nil, nil, fmt.Errorf("%w: %s is not an active admin", ErrForbidden, u.DisplayName)
	}
	return o, u, nil
}

// Approve lets an order created against insufficient stock into the kitchen queue.
// Stock is deducted for every item; products that ran out are floored at zero and
// the uncovered quantity is recorded in the history entry.
func (s *Service) Approve(ctx context.Context, actor Actor, orderID int64, reason string) (*db.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultApproveReason
	}

	var unfulfilled []Unfulfilled
	err := s.store.WithTx(ctx, func(q *db.Queries) error {
		o, admin, err := loadPendingApproval(ctx, q, actor, orderID)
		if err != nil {
			return err
		}

		unfulfilled = nil
		for _, it := range o.Items {
			want := it.Quantity - it.StockTaken
			taken, err := takeStock(ctx, q, it.ProductID, want)
			if err != nil {
				return err
			}
			if taken > 0 {
				if err := q.SetOrderItemStockTaken(ctx, o.ID, it.ID, it.StockTaken+taken); err != nil {
					return fmt.Errorf("record taken stock: %w", err)
				}
			}
			if short := want - taken; short > 0 {
				unfulfilled = append(unfulfilled, Unfulfilled{ProductID: it.ProductID, Name: it.ProductName, Quantity: short})
			}
		}

		if err := q.ApproveOrder(ctx, db.ApproveOrderParams{ID: o.ID, ApprovedBy: admin.ID, Reason: reason}); err != nil {
			return fmt.Errorf("approve order: %w", err)
		}

		entry, err := newEntry(o.ID, actorFromUser(admin), reason,
			fmt.Sprintf("Orden aprobada sin stock por %s", admin.DisplayName),
			decimal.Zero,
			ApprovalPayload{
				From:        StatusPendingStockApproval,
				To:          StatusPending,
				ApprovedBy:  admin.DisplayName,
				Unfulfilled: unfulfilled,
			})
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
	s.log.Info("order approved without stock", "order_id", orderID, "admin", o.ApprovedByName, "unfulfilled", len(unfulfilled))
	s.notify(ctx, Event{Type: EventOrderApproved, OrderID: orderID, Status: StatusPending, Data: map[string]any{"approved_by": o.ApprovedByName, "table_number": o.TableNumber}})
	s.notifyLowStock(ctx, o.Items)
	return o, nil
}

// Reject cancels an order waiting for stock approval. No stock was ever taken for it.
func (s *Service) Reject(ctx context.Context, actor Actor, orderID int64, reason string) (*db.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectReason
	}

	err := s.store.WithTx(ctx, func(q *db.Queries) error {
		o, admin, err := loadPendingApproval(ctx, q, actor, orderID)
		if err != nil {
			return err
		}
		if err := q.UpdateOrderStatus(ctx, o.ID, string(StatusCancelled)); err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		entry, err := newEntry(o.ID, actorFromUser(admin), reason,
			fmt.Sprintf("Orden rechazada por %s", admin.DisplayName),
			decimal.Zero,
			RejectionPayload{
				From:       StatusPendingStockApproval,
				To:         StatusCancelled,
				RejectedBy: admin.DisplayName,
			})
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
	s.log.Info("order rejected", "order_id", orderID, "actor", actor.Name)
	s.notify(ctx, Event{Type: EventOrderRejected, OrderID: orderID, Status: StatusCancelled, Data: map[string]any{"reason": reason, "table_number": o.TableNumber}})
	return o, nil
}

// PendingApprovals lists orders waiting for an admin, oldest first.
func (s *Service) PendingApprovals(ctx context.Context) ([]db.Order, error) {
	return s.store.Q.ListOrders(ctx, string(StatusPendingStockApproval), true)
}

func actorFromUser(u *db.User) Actor {
	return Actor{ID: u.ID, Name: u.DisplayName, Role: u.Role}
}
