package orders

import (
	"github.com/shopspring/decimal"

	"comandas-go/internal/db"
)

const (
	CategoryStarters = "Entradas"
	CategoryMains    = "Platos Fuertes"
	CategorySides    = "Acompañamientos"
	CategoryDrinks   = "Bebidas"
)

var sideLoadFactor = decimal.New(1, -1) // 10%

// PrepLine is the part of a line item the preparation estimate depends on.
type PrepLine struct {
	Category    string
	PrepMinutes *int64
}

// EstimatePrepMinutes returns the kitchen estimate for a set of lines.
// Mains cook in parallel, so the slowest one gates the order; every starter or
// side line adds a tenth of its own time. The result is rounded up.
func EstimatePrepMinutes(lines []PrepLine) int64 {
	var base int64
	extra := decimal.Zero
	for _, l := range lines {
		var minutes int64
		if l.PrepMinutes != nil {
			minutes = *l.PrepMinutes
		}
		switch l.Category {
		case CategoryMains:
			base = max(base, minutes)
		case CategorySides, CategoryStarters:
			extra = extra.Add(decimal.NewFromInt(minutes).Mul(sideLoadFactor))
		}
	}
	return decimal.NewFromInt(base).Add(extra).Ceil().IntPart()
}

func prepLinesFromItems(items []db.OrderItem) []PrepLine {
	out := make([]PrepLine, 0, len(items))
	for _, it := range items {
		out = append(out, PrepLine{Category: it.ProductCategory, PrepMinutes: it.PrepMinutes})
	}
	return out
}

func sumSubtotals(items []db.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}
