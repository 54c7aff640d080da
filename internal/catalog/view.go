// Package catalog holds the product list a shopper browses and the detail
// modal used to pick a quantity before adding a product to the cart.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MaxQty is the largest quantity the detail selector offers.
const MaxQty = 10

const TitleFetchProducts = "Failed to fetch products"

const loadTimeout = 30 * time.Second

var (
	ErrUnknownProduct = errors.New("catalog: no such product")
	ErrQtyOutOfRange  = fmt.Errorf("catalog: quantity must be between 1 and %d", MaxQty)
	ErrModalClosed    = errors.New("catalog: detail is not open")
)

type Source interface {
	Products(ctx context.Context) ([]api.Product, error)
}

// Cart is the part of a cart session the catalog drives.
type Cart interface {
	AddItem(ctx context.Context, productID string, qty int) error
}

type View struct {
	src    Source
	cart   Cart
	notify notify.Notifier
	log    *zap.Logger
	sf     singleflight.Group

	mu       sync.RWMutex
	products []api.Product
	loading  int
	modal    Modal
}

func NewView(src Source, cart Cart, n notify.Notifier, log *zap.Logger) *View {
	if log == nil {
		log = zap.NewNop()
	}
	return &View{src: src, cart: cart, notify: n, log: log, modal: Modal{Qty: 1}}
}

// Load fetches the catalog. The screen loading flag is held while the
// request runs; on failure the previous list stays.
func (v *View) Load(ctx context.Context) error {
	ch := v.sf.DoChan("load", func() (any, error) {
		v.hold(1)
		defer v.hold(-1)

		// shared by every waiter, so no single caller may cancel it
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		ps, err := v.src.Products(loadCtx)
		if err != nil {
			v.log.Warn(TitleFetchProducts, zap.Error(err))
			v.notify.Error(TitleFetchProducts, api.MessageOf(err))
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		v.mu.Lock()
		v.products = ps
		v.mu.Unlock()
		return nil, nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *View) hold(d int) {
	v.mu.Lock()
	v.loading += d
	v.mu.Unlock()
}

func (v *View) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading > 0
}

func (v *View) Products() []api.Product {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]api.Product(nil), v.products...)
}

func (v *View) Product(id string) (api.Product, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.find(id)
}

func (v *View) find(id string) (api.Product, bool) {
	for _, p := range v.products {
		if p.ID == id {
			return p, true
		}
	}
	return api.Product{}, false
}

// SeeMore opens the detail modal for a product with the quantity reset to 1.
// The cart is not touched.
func (v *View) SeeMore(productID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.find(productID)
	if !ok {
		return ErrUnknownProduct
	}
	v.modal = Modal{Open: true, Product: p, Qty: 1}
	return nil
}

func (v *View) SelectQty(n int) error {
	if n < 1 || n > MaxQty {
		return ErrQtyOutOfRange
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.modal.Open {
		return ErrModalClosed
	}
	v.modal.Qty = n
	return nil
}

// Confirm adds the modal's product with the selected quantity and closes
// the modal when the cart accepts it. A failed add leaves it open.
func (v *View) Confirm(ctx context.Context) error {
	m := v.Modal()
	if !m.Open {
		return ErrModalClosed
	}
	if err := v.cart.AddItem(ctx, m.Product.ID, m.Qty); err != nil {
		return err
	}
	v.Close()
	return nil
}

func (v *View) Close() {
	v.mu.Lock()
	v.modal = Modal{Qty: 1}
	v.mu.Unlock()
}

func (v *View) Modal() Modal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.modal
}

// AddOne is the list row button: one unit of the product.
func (v *View) AddOne(ctx context.Context, productID string) error {
	return v.cart.AddItem(ctx, productID, 1)
}

// QtyOptions lists the values the detail selector offers.
func QtyOptions() []int {
	out := make([]int, MaxQty)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
