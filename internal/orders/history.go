package orders

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"comandas-go/internal/db"
)

// HistoryKind names the kind of change an audit entry records.
type HistoryKind string

const (
	KindCreated             HistoryKind = "order_created"
	KindCreatedPendingStock HistoryKind = "order_created_pending_stock"
	KindItemAdded           HistoryKind = "item_added"
	KindItemRemoved         HistoryKind = "item_removed"
	KindItemModified        HistoryKind = "item_modified"
	KindApproved            HistoryKind = "order_approved_without_stock"
	KindRejected            HistoryKind = "order_rejected_without_stock"
	KindStatusChanged       HistoryKind = "status_changed"
	KindCompleted           HistoryKind = "order_completed"
	KindCancelled           HistoryKind = "order_cancelled"
)

// Payload is the kind-specific body of a history entry. Each variant carries only
// the fields relevant to its action.
type Payload interface {
	Kind() HistoryKind
}

// ItemSnapshot freezes a line item as it was when the entry was written.
type ItemSnapshot struct {
	ItemID    int64           `json:"item_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Quantities is a before/after view of one line.
type Quantities struct {
	Quantity int64           `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CreatedPayload struct {
	Status    Status         `json:"status"`
	Items     []ItemSnapshot `json:"items"`
	Shortages []Shortage     `json:"shortages,omitempty"`
}

func (p CreatedPayload) Kind() HistoryKind {
	if p.Status == StatusPendingStockApproval {
		return KindCreatedPendingStock
	}
	return KindCreated
}

// Unfulfilled on item payloads counts units the shelf could not cover when the edit ran.
type ItemAddedPayload struct {
	Item        ItemSnapshot `json:"item"`
	After       Quantities   `json:"after"`
	Unfulfilled int64        `json:"unfulfilled,omitempty"`
}

func (ItemAddedPayload) Kind() HistoryKind { return KindItemAdded }

type ItemRemovedPayload struct {
	Item   ItemSnapshot `json:"item"`
	Before Quantities   `json:"before"`
}

func (ItemRemovedPayload) Kind() HistoryKind { return KindItemRemoved }

type ItemModifiedPayload struct {
	Item        ItemSnapshot `json:"item"`
	Before      Quantities   `json:"before"`
	After       Quantities   `json:"after"`
	Unfulfilled int64        `json:"unfulfilled,omitempty"`
}

func (ItemModifiedPayload) Kind() HistoryKind { return KindItemModified }

// Unfulfilled is stock an approval could not deduct because the product ran out.
type Unfulfilled struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
}

type ApprovalPayload struct {
	From        Status        `json:"from"`
	To          Status        `json:"to"`
	ApprovedBy  string        `json:"approved_by"`
	Unfulfilled []Unfulfilled `json:"unfulfilled,omitempty"`
}

func (ApprovalPayload) Kind() HistoryKind { return KindApproved }

type RejectionPayload struct {
	From       Status `json:"from"`
	To         Status `json:"to"`
	RejectedBy string `json:"rejected_by"`
}

func (RejectionPayload) Kind() HistoryKind { return KindRejected }

// StatusPayload covers kitchen progression, completion and cancellation.
type StatusPayload struct {
	From          Status `json:"from"`
	To            Status `json:"to"`
	StockRestored bool   `json:"stock_restored,omitempty"`
}

func (p StatusPayload) Kind() HistoryKind {
	switch p.To {
	case StatusCompleted:
		return KindCompleted
	case StatusCancelled:
		return KindCancelled
	}
	return KindStatusChanged
}

// Entry is a decoded audit record.
type Entry struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	Kind        HistoryKind     `json:"kind"`
	Description string          `json:"description"`
	Payload     Payload         `json:"payload"`
	ActorName   string          `json:"actor_name"`
	ActorRole   string          `json:"actor_role"`
	Reason      string          `json:"reason,omitempty"`
	TotalDelta  decimal.Decimal `json:"total_delta"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newEntry(orderID int64, actor Actor, reason, description string, delta decimal.Decimal, p Payload) (db.AppendHistoryParams, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return db.AppendHistoryParams{}, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return db.AppendHistoryParams{
		OrderID:     orderID,
		Kind:        string(p.Kind()),
		Description: description,
		Payload:     b,
		ActorName:   actor.Name,
		ActorRole:   actor.Role,
		Reason:      reason,
		TotalDelta:  delta,
	}, nil
}

func decodePayload(kind HistoryKind, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch kind {
	case KindCreated, KindCreatedPendingStock:
		var v CreatedPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		p = v
	case KindItemAdded:
		var v ItemAddedPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		p = v
	case KindItemRemoved:
		var v ItemRemovedPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		p = v
	case KindItemModified:
		var v ItemModifiedPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		p = v
	case KindApproved:
		var v ApprovalPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		p = v
	case KindRejected:
		var v RejectionPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		p = v
	case KindStatusChanged, KindCompleted, KindCancelled:
		var v StatusPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		p = v
	default:
		return nil, fmt.Errorf("unknown history kind %q", kind)
	}
	return p, nil
}

func decodeEntry(e db.HistoryEntry) (Entry, error) {
	kind := HistoryKind(e.Kind)
	p, err := decodePayload(kind, e.Payload)
	if err != nil {
		return Entry{}, fmt.Errorf("decode history %d: %w", e.ID, err)
	}
	return Entry{
		ID:          e.ID,
		OrderID:     e.OrderID,
		Kind:        kind,
		Description: e.Description,
		Payload:     p,
		ActorName:   e.ActorName,
		ActorRole:   e.ActorRole,
		Reason:      e.Reason,
		TotalDelta:  e.TotalDelta,
		CreatedAt:   e.CreatedAt,
	}, nil
}

func snapshotItem(it db.OrderItem) ItemSnapshot {
	return ItemSnapshot{
		ItemID:    it.ID,
		ProductID: it.ProductID,
		Name:      it.ProductName,
		Quantity:  it.Quantity,
		UnitPrice: it.UnitPrice,
	}
}
