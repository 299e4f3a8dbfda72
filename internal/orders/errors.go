package orders

import (
	"errors"
	"fmt"
	"strings"

	"comandas-go/internal/db"
)

var (
	// ErrValidation signals a missing or malformed input field.
	ErrValidation = errors.New("orders: invalid input")
	// ErrNotFound indicates the order, item, product or user does not exist.
	ErrNotFound = errors.New("orders: not found")
	// ErrInvalidState indicates the operation is not legal for the order's current status.
	ErrInvalidState = errors.New("orders: invalid state")
	// ErrForbidden indicates the acting user lacks the required role.
	ErrForbidden = errors.New("orders: forbidden")
	// ErrNoChanges is returned by Modify for an empty change list. It is also an ErrValidation.
	ErrNoChanges = fmt.Errorf("%w: no changes requested", ErrValidation)
)

// Shortage is re-exported so callers do not need the db package to read validation results.
type Shortage = db.Shortage

// InsufficientStockError blocks order creation (or a modification) until the caller decides to force it.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	names := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		names = append(names, s.ProductName)
	}
	return fmt.Sprintf("orders: insufficient stock for %d product(s): %s", len(e.Shortages), strings.Join(names, ", "))
}

// NegativeStockError reports a stock adjustment that would leave a product below zero.
type NegativeStockError struct {
	ProductID int64
	Current   int64
	Requested int64
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("orders: stock of product %d cannot go negative (current %d, requested %d)", e.ProductID, e.Current, e.Requested)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

func invalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidState}, args...)...)
}
