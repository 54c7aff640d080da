package shop

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore keeps everything in process memory. It backs local development
// (STORE=memory) and tests.
type MemStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	products map[string]Product
	carts    map[string][]CartLine
	orders   []Order
}

func NewMemStore(seed ...Product) *MemStore {
	m := &MemStore{
		now:      time.Now,
		products: map[string]Product{},
		carts:    map[string][]CartLine{},
	}
	for _, p := range seed {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		m.products[p.ID] = p
	}
	return m
}

func (m *MemStore) ListProducts(context.Context) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) GetProduct(_ context.Context, id string) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *MemStore) CreateProduct(_ context.Context, p Product) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = p
	return p, nil
}

func (m *MemStore) UpdateProduct(_ context.Context, p Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = m.now()
	m.products[p.ID] = p
	return nil
}

func (m *MemStore) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	for ns, lines := range m.carts {
		m.carts[ns] = removeLines(lines, func(l CartLine) bool { return l.ProductID == id })
	}
	return nil
}

func (m *MemStore) GetCart(_ context.Context, ns string) (Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cartLocked(ns), nil
}

func (m *MemStore) cartLocked(ns string) Cart {
	lines := make([]CartLine, 0, len(m.carts[ns]))
	for _, l := range m.carts[ns] {
		l.Product = m.products[l.ProductID]
		lines = append(lines, l)
	}
	return Cart{Namespace: ns, Lines: lines}
}

func (m *MemStore) AddToCart(_ context.Context, ns, productID string, qty int) (CartLine, error) {
	if qty < 1 {
		return CartLine{}, ErrInvalidQty
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return CartLine{}, ErrNotFound
	}
	lines := m.carts[ns]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Qty += qty
			l := lines[i]
			l.Product = p
			return l, nil
		}
	}
	l := CartLine{ID: uuid.NewString(), ProductID: productID, Qty: qty}
	m.carts[ns] = append(lines, l)
	l.Product = p
	return l, nil
}

func (m *MemStore) UpdateCartLine(_ context.Context, ns, lineID, productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQty
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[productID]; !ok {
		return ErrNotFound
	}
	lines := m.carts[ns]
	for i := range lines {
		if lines[i].ID == lineID {
			lines[i].ProductID = productID
			lines[i].Qty = qty
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemStore) DeleteCartLine(_ context.Context, ns, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.carts[ns])
	m.carts[ns] = removeLines(m.carts[ns], func(l CartLine) bool { return l.ID == lineID })
	if len(m.carts[ns]) == before {
		return ErrNotFound
	}
	return nil
}

func (m *MemStore) ClearCart(_ context.Context, ns string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, ns)
	return nil
}

func (m *MemStore) CreateOrder(_ context.Context, ns string, c Customer, message string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.cartLocked(ns)
	if len(cart.Lines) == 0 {
		return Order{}, ErrEmptyCart
	}
	o := Order{
		ID:        uuid.NewString(),
		Namespace: ns,
		Customer:  c,
		Message:   message,
		Total:     cart.Total(),
		CreatedAt: m.now(),
	}
	for _, l := range cart.Lines {
		o.Items = append(o.Items, OrderItem{ProductID: l.ProductID, Qty: l.Qty, Price: l.Product.Price})
	}
	m.orders = append(m.orders, o)
	delete(m.carts, ns)
	return o, nil
}

// Orders returns the orders placed so far.
func (m *MemStore) Orders() []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Order(nil), m.orders...)
}

func removeLines(lines []CartLine, drop func(CartLine) bool) []CartLine {
	out := lines[:0]
	for _, l := range lines {
		if !drop(l) {
			out = append(out, l)
		}
	}
	return out
}
