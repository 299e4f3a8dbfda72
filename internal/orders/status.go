package orders

import "slices"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPendingStockApproval Status = "pending_stock_approval"
	StatusPending              Status = "pending"
	StatusInPreparation        Status = "in_preparation"
	StatusReady                Status = "ready"
	StatusCompleted            Status = "completed"
	StatusCancelled            Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPendingStockApproval: {StatusPending, StatusCancelled},
	StatusPending:              {StatusInPreparation, StatusCompleted, StatusCancelled},
	StatusInPreparation:        {StatusReady, StatusCompleted},
	StatusReady:                {StatusCompleted},
}

// ParseStatus returns the status named by s, or false if s is not a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	switch st {
	case StatusPendingStockApproval, StatusPending, StatusInPreparation, StatusReady, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func canTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// printable statuses are those where a kitchen ticket is meaningful.
func (s Status) printable() bool {
	return s == StatusPending || s == StatusInPreparation
}
