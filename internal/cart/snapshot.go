package cart

import (
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/shopspring/decimal"
)

// Snapshot is the cart exactly as the server last reported it.
type Snapshot struct {
	Lines      []api.CartLine  `json:"carts"`
	Total      decimal.Decimal `json:"total"`
	FinalTotal decimal.Decimal `json:"final_total"`
}

func snapshotOf(c api.Cart) Snapshot {
	lines := make([]api.CartLine, len(c.Carts))
	copy(lines, c.Carts)
	return Snapshot{Lines: lines, Total: c.Total, FinalTotal: c.FinalTotal}
}

func (s Snapshot) clone() Snapshot {
	lines := make([]api.CartLine, len(s.Lines))
	copy(lines, s.Lines)
	s.Lines = lines
	return s
}

func (s Snapshot) Empty() bool { return len(s.Lines) == 0 }

func (s Snapshot) Line(id string) (api.CartLine, bool) {
	for _, l := range s.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return api.CartLine{}, false
}

// LineFor returns the first line referencing productID.
func (s Snapshot) LineFor(productID string) (api.CartLine, bool) {
	for _, l := range s.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return api.CartLine{}, false
}

// CanDecrement reports whether the decrement control is enabled for l.
func CanDecrement(l api.CartLine) bool { return l.Qty > 1 }
