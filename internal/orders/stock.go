package orders

import (
	"context"
	"fmt"

	"comandas-go/internal/db"
)

const productNotFoundName = "not found"

// StockRequest asks for quantity units of a product.
type StockRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// StockValidation is the outcome of checking a request list against the catalog.
type StockValidation struct {
	Sufficient bool       `json:"sufficient"`
	Shortages  []Shortage `json:"shortages"`
}

// ValidateStock reports which requests exceed current stock. It reads a single snapshot
// and reserves nothing: repeated products are each compared against the same stock.
// Unknown products are reported as shortages with nothing available.
func ValidateStock(ctx context.Context, q *db.Queries, reqs []StockRequest) (StockValidation, error) {
	products, err := q.GetProductsByIDs(ctx, productIDs(reqs))
	if err != nil {
		return StockValidation{}, fmt.Errorf("load products: %w", err)
	}
	return validateAgainst(products, reqs), nil
}

// CheckStock validates a request list coming from a client before any order exists.
func (s *Service) CheckStock(ctx context.Context, reqs []StockRequest) (StockValidation, error) {
	if len(reqs) == 0 {
		return StockValidation{}, validationf("items must not be empty")
	}
	for i, r := range reqs {
		if r.Quantity <= 0 {
			return StockValidation{}, validationf("item %d: quantity must be positive", i+1)
		}
	}
	return ValidateStock(ctx, s.store.Q, reqs)
}

func validateAgainst(products map[int64]db.Product, reqs []StockRequest) StockValidation {
	out := StockValidation{Shortages: []Shortage{}}
	for _, r := range reqs {
		p, ok := products[r.ProductID]
		if !ok {
			out.Shortages = append(out.Shortages, Shortage{
				ProductID:   r.ProductID,
				ProductName: productNotFoundName,
				Requested:   r.Quantity,
				Available:   0,
			})
			continue
		}
		if r.Quantity > p.Stock {
			out.Shortages = append(out.Shortages, Shortage{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   r.Quantity,
				Available:   p.Stock,
			})
		}
	}
	out.Sufficient = len(out.Shortages) == 0
	return out
}

// mergeRequests folds repeated products into one request each, keeping first-seen order.
// Order creation validates the merged list so two lines of the same dish cannot each pass
// against stock that only covers one of them.
func mergeRequests(reqs []StockRequest) []StockRequest {
	idx := map[int64]int{}
	var out []StockRequest
	for _, r := range reqs {
		if i, ok := idx[r.ProductID]; ok {
			out[i].Quantity += r.Quantity
			continue
		}
		idx[r.ProductID] = len(out)
		out = append(out, r)
	}
	return out
}

// StockMode selects how AdjustStock interprets its amount.
type StockMode string

const (
	StockSet StockMode = "set"
	StockAdd StockMode = "add"
)

// StockAdjustment describes an applied catalog stock change.
type StockAdjustment struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Previous    int64  `json:"previous"`
	New         int64  `json:"new"`
	Delta       int64  `json:"delta"`
	LowStock    bool   `json:"low_stock"`
}

// AdjustStock sets or shifts a product's stock. The result can never be negative.
func (s *Service) AdjustStock(ctx context.Context, productID, amount int64, mode StockMode) (StockAdjustment, error) {
	if mode != StockSet && mode != StockAdd {
		return StockAdjustment{}, validationf("mode must be %q or %q", StockSet, StockAdd)
	}
	if mode == StockSet && amount < 0 {
		return StockAdjustment{}, validationf("stock cannot be set to %d", amount)
	}

	var out StockAdjustment
	err := s.store.WithTx(ctx, func(q *db.Queries) error {
		p, err := q.GetProductByID(ctx, productID)
		if err != nil {
			return fmt.Errorf("load product: %w", err)
		}
		if p == nil {
			return notFoundf("product %d", productID)
		}

		next := amount
		if mode == StockAdd {
			next = p.Stock + amount
		}
		if next < 0 {
			return &NegativeStockError{ProductID: p.ID, Current: p.Stock, Requested: amount}
		}
		if err := q.SetProductStock(ctx, p.ID, next); err != nil {
			return fmt.Errorf("update stock: %w", err)
		}

		prev := p.Stock
		p.Stock = next
		out = StockAdjustment{
			ProductID:   p.ID,
			ProductName: p.Name,
			Previous:    prev,
			New:         next,
			LowStock:    p.LowStock(),
		}
		return nil
	})
	if err != nil {
		return StockAdjustment{}, err
	}
	out.Delta = out.New - out.Previous

	s.log.Info("stock adjusted", "product_id", out.ProductID, "mode", mode, "previous", out.Previous, "new", out.New)
	s.notify(ctx, Event{Type: EventInventoryChanged, Data: map[string]any{"product_id": out.ProductID, "stock": out.New}})
	if out.LowStock {
		s.notify(ctx, Event{Type: EventLowStock, Data: map[string]any{"product_id": out.ProductID, "name": out.ProductName, "stock": out.New}})
	}
	return out, nil
}

// LowStock lists products at or under their minimum, lowest stock first.
func (s *Service) LowStock(ctx context.Context) ([]db.Product, error) {
	return s.store.Q.ListLowStock(ctx)
}

// takeStock deducts up to want units of a product inside q's transaction and returns how
// many it took. The shelf floors at zero; callers record whatever could not be taken.
func takeStock(ctx context.Context, q *db.Queries, productID, want int64) (int64, error) {
	if want <= 0 {
		return 0, nil
	}
	p, err := q.GetProductByID(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("load product: %w", err)
	}
	if p == nil {
		return 0, notFoundf("product %d", productID)
	}
	taken := min(want, p.Stock)
	if taken <= 0 {
		return 0, nil
	}
	if err := q.SetProductStock(ctx, p.ID, p.Stock-taken); err != nil {
		return 0, fmt.Errorf("update stock: %w", err)
	}
	return taken, nil
}

// returnStock puts n previously taken units of a product back on the shelf.
func returnStock(ctx context.Context, q *db.Queries, productID, n int64) error {
	if n <= 0 {
		return nil
	}
	p, err := q.GetProductByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if p == nil {
		return notFoundf("product %d", productID)
	}
	if err := q.SetProductStock(ctx, p.ID, p.Stock+n); err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return nil
}
