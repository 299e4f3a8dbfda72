package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"comandas-go/internal/db"
)

// ChangeKind selects what a Change does to the item set.
type ChangeKind string

const (
	ChangeRemove      ChangeKind = "remove"
	ChangeAdd         ChangeKind = "add"
	ChangeSetQuantity ChangeKind = "set_quantity"
)

// Change is one edit of an order's items. remove and set_quantity address an existing
// item by ItemID; add names a ProductID.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	ItemID    int64      `json:"item_id,omitempty"`
	ProductID int64      `json:"product_id,omitempty"`
	Quantity  int64      `json:"quantity,omitempty"`
	Note      string     `json:"note,omitempty"`
}

type ModifyInput struct {
	Changes []Change `json:"changes"`
	Reason  string   `json:"reason"`
}

type ModifyResult struct {
	Order         *db.Order       `json:"order"`
	PreviousTotal decimal.Decimal `json:"previous_total"`
	NewTotal      decimal.Decimal `json:"new_total"`
	Delta         decimal.Decimal `json:"delta"`
	Changes       int             `json:"changes"`
}

// Modify applies a list of item changes to a pending order. Every change is audited and
// the totals are recomputed from the surviving lines. Stock follows the items as far as the
// shelf allows; an edit never fails for lack of stock, the shortfall goes on its history entry.
// Nothing is written unless every change succeeds.
func (s *Service) Modify(ctx context.Context, actor Actor, orderID int64, in ModifyInput) (ModifyResult, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return ModifyResult{}, validationf("a reason is required to modify an order")
	}
	if len(in.Changes) == 0 {
		return ModifyResult{}, ErrNoChanges
	}

	var res ModifyResult
	err := s.store.WithTx(ctx, func(q *db.Queries) error {
		o, err := q.GetOrderByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if o == nil {
			return notFoundf("order %d", orderID)
		}
		if Status(o.Status) != StatusPending {
			return invalidStatef("order %d is %s; only pending orders can be modified", orderID, o.Status)
		}
		res.PreviousTotal = o.Total

		var entries []db.AppendHistoryParams
		for i, c := range in.Changes {
			e, err := applyChange(ctx, q, o, actor, reason, c)
			if err != nil {
				return fmt.Errorf("change %d: %w", i+1, err)
			}
			entries = append(entries, e)
		}

		items, err := q.ListOrderItems(ctx, orderID)
		if err != nil {
			return fmt.Errorf("reload items: %w", err)
		}
		res.NewTotal = sumSubtotals(items)
		err = q.UpdateOrderTotals(ctx, db.UpdateOrderTotalsParams{
			ID:          orderID,
			Total:       res.NewTotal,
			PrepMinutes: EstimatePrepMinutes(prepLinesFromItems(items)),
			Modified:    true,
		})
		if err != nil {
			return fmt.Errorf("update totals: %w", err)
		}
		return q.AppendHistory(ctx, entries...)
	})
	if err != nil {
		return ModifyResult{}, err
	}

	o, err := s.Get(ctx, orderID)
	if err != nil {
		return ModifyResult{}, err
	}
	res.Order = o
	res.Delta = res.NewTotal.Sub(res.PreviousTotal)
	res.Changes = len(in.Changes)

	s.log.Info("order modified", "order_id", orderID, "changes", res.Changes,
		"previous_total", res.PreviousTotal.StringFixed(2), "new_total", res.NewTotal.StringFixed(2), "actor", actor.Name)
	s.notify(ctx, Event{
		Type:    EventOrderModified,
		OrderID: orderID,
		Status:  Status(o.Status),
		Data:    map[string]any{"delta": res.Delta.StringFixed(2), "changes": res.Changes, "reason": reason},
	})
	s.notifyLowStock(ctx, o.Items)
	return res, nil
}

// applyChange mutates one item inside q's transaction and returns its history entry.
// o.Items is kept in step so later changes in the same batch see earlier ones.
func applyChange(ctx context.Context, q *db.Queries, o *db.Order, actor Actor, reason string, c Change) (db.AppendHistoryParams, error) {
	switch c.Kind {
	case ChangeRemove:
		idx := findItem(o.Items, c.ItemID)
		if idx < 0 {
			return db.AppendHistoryParams{}, notFoundf("item %d in order %d", c.ItemID, o.ID)
		}
		it := o.Items[idx]
		if err := q.DeleteOrderItem(ctx, o.ID, it.ID); err != nil {
			return db.AppendHistoryParams{}, fmt.Errorf("delete item: %w", err)
		}
		if err := returnStock(ctx, q, it.ProductID, it.StockTaken); err != nil {
			return db.AppendHistoryParams{}, err
		}
		o.Items = append(o.Items[:idx], o.Items[idx+1:]...)

		return newEntry(o.ID, actor, reason,
			fmt.Sprintf("Eliminado: %dx %s", it.Quantity, it.ProductName),
			it.Subtotal.Neg(),
			ItemRemovedPayload{
				Item:   snapshotItem(it),
				Before: Quantities{Quantity: it.Quantity, Subtotal: it.Subtotal},
			})

	case ChangeAdd:
		if c.Quantity <= 0 {
			return db.AppendHistoryParams{}, validationf("quantity must be positive")
		}
		p, err := q.GetProductByID(ctx, c.ProductID)
		if err != nil {
			return db.AppendHistoryParams{}, fmt.Errorf("load product: %w", err)
		}
		if p == nil {
			return db.AppendHistoryParams{}, notFoundf("product %d", c.ProductID)
		}
		taken, err := takeStock(ctx, q, p.ID, c.Quantity)
		if err != nil {
			return db.AppendHistoryParams{}, err
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(c.Quantity))
		itemID, err := q.CreateOrderItem(ctx, db.CreateOrderItemParams{
			OrderID:    o.ID,
			ProductID:  p.ID,
			Quantity:   c.Quantity,
			UnitPrice:  p.Price,
			Subtotal:   subtotal,
			Note:       c.Note,
			StockTaken: taken,
		})
		if err != nil {
			return db.AppendHistoryParams{}, fmt.Errorf("insert item: %w", err)
		}
		it := db.OrderItem{
			ID:              itemID,
			OrderID:         o.ID,
			ProductID:       p.ID,
			Quantity:        c.Quantity,
			UnitPrice:       p.Price,
			Subtotal:        subtotal,
			Note:            c.Note,
			StockTaken:      taken,
			ProductName:     p.Name,
			ProductCategory: p.Category,
			PrepMinutes:     p.PrepMinutes,
		}
		o.Items = append(o.Items, it)

		return newEntry(o.ID, actor, reason,
			fmt.Sprintf("Agregado: %dx %s", it.Quantity, it.ProductName),
			subtotal,
			ItemAddedPayload{
				Item:        snapshotItem(it),
				After:       Quantities{Quantity: it.Quantity, Subtotal: subtotal},
				Unfulfilled: it.Quantity - taken,
			})

	case ChangeSetQuantity:
		if c.Quantity <= 0 {
			return db.AppendHistoryParams{}, validationf("quantity must be positive; use remove to drop an item")
		}
		idx := findItem(o.Items, c.ItemID)
		if idx < 0 {
			return db.AppendHistoryParams{}, notFoundf("item %d in order %d", c.ItemID, o.ID)
		}
		before := o.Items[idx]
		after := before
		after.Quantity = c.Quantity
		after.Subtotal = before.UnitPrice.Mul(decimal.NewFromInt(c.Quantity))

		if err := q.UpdateOrderItemQuantity(ctx, o.ID, before.ID, after.Quantity, after.Subtotal); err != nil {
			return db.AppendHistoryParams{}, fmt.Errorf("update item: %w", err)
		}
		// Taken stock converges on the new quantity as far as the shelf allows.
		switch {
		case before.StockTaken > after.Quantity:
			if err := returnStock(ctx, q, before.ProductID, before.StockTaken-after.Quantity); err != nil {
				return db.AppendHistoryParams{}, err
			}
			after.StockTaken = after.Quantity
		case before.StockTaken < after.Quantity:
			taken, err := takeStock(ctx, q, before.ProductID, after.Quantity-before.StockTaken)
			if err != nil {
				return db.AppendHistoryParams{}, err
			}
			after.StockTaken += taken
		}
		if after.StockTaken != before.StockTaken {
			if err := q.SetOrderItemStockTaken(ctx, o.ID, before.ID, after.StockTaken); err != nil {
				return db.AppendHistoryParams{}, fmt.Errorf("record taken stock: %w", err)
			}
		}
		o.Items[idx] = after

		return newEntry(o.ID, actor, reason,
			fmt.Sprintf("Cantidad de %s: %d → %d", before.ProductName, before.Quantity, after.Quantity),
			after.Subtotal.Sub(before.Subtotal),
			ItemModifiedPayload{
				Item:        snapshotItem(after),
				Before:      Quantities{Quantity: before.Quantity, Subtotal: before.Subtotal},
				After:       Quantities{Quantity: after.Quantity, Subtotal: after.Subtotal},
				Unfulfilled: after.Quantity - after.StockTaken,
			})
	}
	return db.AppendHistoryParams{}, validationf("unknown change kind %q", c.Kind)
}

func findItem(items []db.OrderItem, id int64) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
