package shop

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmptyCart  = errors.New("cart is empty")
	ErrInvalidQty = errors.New("qty must be at least 1")
)

type Product struct {
	ID          string
	Title       string
	Category    string
	OriginPrice decimal.Decimal
	Price       decimal.Decimal
	Unit        string
	Description string
	Content     string
	Enabled     bool
	ImageURL    string
	ImagesURL   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate returns the list of problems with p, empty when p is fine.
func (p Product) Validate() []string {
	var out []string
	if strings.TrimSpace(p.Title) == "" {
		out = append(out, "title is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		out = append(out, "category is required")
	}
	if strings.TrimSpace(p.Unit) == "" {
		out = append(out, "unit is required")
	}
	if p.OriginPrice.IsNegative() {
		out = append(out, "origin_price must not be negative")
	}
	if p.Price.IsNegative() {
		out = append(out, "price must not be negative")
	}
	return out
}

type CartLine struct {
	ID        string
	ProductID string
	Qty       int
	Product   Product
}

// Total is the price the shop charges for the line.
func (l CartLine) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Cart belongs to one API namespace (the api_path segment).
type Cart struct {
	Namespace string
	Lines     []CartLine
}

func (c Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

type Customer struct {
	Email   string
	Name    string
	Tel     string
	Address string
}

type Order struct {
	ID        string
	Namespace string
	Customer  Customer
	Message   string
	Items     []OrderItem
	Total     decimal.Decimal
	CreatedAt time.Time
}

type OrderItem struct {
	ProductID string
	Qty       int
	Price     decimal.Decimal
}
