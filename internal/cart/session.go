// Package cart keeps a shopper's view of the remote cart consistent with the
// server. The server is authoritative: every mutation is followed by a full
// refresh that replaces the local snapshot wholesale, and a failed call never
// touches it.
//
// All remote calls of a session run on one worker in issue order, so the
// snapshot a shopper ends up with always reflects the last mutation issued.
package cart

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

var (
	ErrBusy            = errors.New("cart: action already in flight")
	ErrEmptyCart       = errors.New("cart: cart is empty")
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
	ErrMissingID       = errors.New("cart: missing identifier")
	ErrUnknownLine     = errors.New("cart: no such cart line")
	ErrClosed          = errors.New("cart: session closed")
)

// Notification headlines.
const (
	TitleFetchCart      = "Failed to fetch cart"
	TitleAdded          = "Added to cart"
	TitleAddFailed      = "Failed to add to cart"
	TitleUpdateFailed   = "Failed to update quantity"
	TitleRemoveFailed   = "Failed to remove cart item"
	TitleClearFailed    = "Failed to clear cart"
	TitleOrderSubmitted = "Order submitted!"
	TitleOrderFailed    = "Failed to submit order"

	DetailEmptyCart = "Your cart is empty."
)

// refreshTimeout bounds a shared refresh, queue wait included.
const refreshTimeout = 30 * time.Second

// Class groups actions that share one pending flag.
type Class int

const (
	// ClassItem is the add-to-cart button.
	ClassItem Class = iota
	// ClassScreen is the full screen loading overlay.
	ClassScreen
)

type Remote interface {
	Cart(ctx context.Context) (api.Cart, error)
	AddToCart(ctx context.Context, productID string, qty int) error
	UpdateCartLine(ctx context.Context, lineID, productID string, qty int) error
	DeleteCartLine(ctx context.Context, lineID string) error
	ClearCart(ctx context.Context) error
	SubmitOrder(ctx context.Context, order api.OrderRequest) (api.OrderResult, error)
}

type Session struct {
	remote Remote
	notify notify.Notifier
	log    *zap.Logger

	q  *queue
	sf singleflight.Group

	mu sync.RWMutex
	// guarded by mu
	snap       Snapshot
	itemBusy   bool
	screenBusy bool
	screenHeld int
}

func NewSession(remote Remote, n notify.Notifier, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		remote: remote,
		notify: n,
		log:    log,
		q:      newQueue(),
	}
}

// Close stops the worker. Calls made afterwards fail with ErrClosed.
func (s *Session) Close() { s.q.close() }

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

func (s *Session) Loading(c Class) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c == ClassItem {
		return s.itemBusy
	}
	return s.screenBusy || s.screenHeld > 0
}

func (s *Session) ScreenLoading() bool { return s.Loading(ClassScreen) }

func (s *Session) CanCheckout() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.snap.Empty()
}

// Refresh replaces the snapshot with the server's cart. Concurrent callers
// share one round trip.
func (s *Session) Refresh(ctx context.Context) error {
	ch := s.sf.DoChan("refresh", func() (any, error) {
		// shared by every waiter, so no single caller may cancel it
		jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return nil, s.q.run(jobCtx, s.refresh)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddItem posts a new line. A second AddItem while one is in flight is
// refused with ErrBusy and never reaches the network.
func (s *Session) AddItem(ctx context.Context, productID string, qty int) error {
	if productID == "" {
		return ErrMissingID
	}
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if !s.acquire(ClassItem) {
		return ErrBusy
	}
	defer s.release(ClassItem)

	return s.q.run(ctx, func(ctx context.Context) error {
		if err := s.remote.AddToCart(ctx, productID, qty); err != nil {
			s.fail(TitleAddFailed, err)
			return fmt.Errorf("add product %s: %w", productID, err)
		}
		s.log.Debug("cart item added", zap.String("product_id", productID), zap.Int("qty", qty))
		s.notify.Success(TitleAdded)
		_ = s.refresh(ctx)
		return nil
	})
}

// UpdateQuantity sets the quantity of a line. Callers clamp qty at 1; the
// decrement control is disabled there.
func (s *Session) UpdateQuantity(ctx context.Context, lineID, productID string, qty int) error {
	if lineID == "" || productID == "" {
		return ErrMissingID
	}
	if qty < 1 {
		return ErrInvalidQuantity
	}
	return s.mutate(ctx, TitleUpdateFailed, func(ctx context.Context) error {
		return s.remote.UpdateCartLine(ctx, lineID, productID, qty)
	})
}

func (s *Session) RemoveItem(ctx context.Context, lineID string) error {
	if lineID == "" {
		return ErrMissingID
	}
	return s.mutate(ctx, TitleRemoveFailed, func(ctx context.Context) error {
		return s.remote.DeleteCartLine(ctx, lineID)
	})
}

func (s *Session) Clear(ctx context.Context) error {
	return s.mutate(ctx, TitleClearFailed, s.remote.ClearCart)
}

// Increment raises the quantity of the given line by one.
func (s *Session) Increment(ctx context.Context, lineID string) error {
	l, ok := s.Snapshot().Line(lineID)
	if !ok {
		return ErrUnknownLine
	}
	return s.UpdateQuantity(ctx, l.ID, l.ProductID, l.Qty+1)
}

// Decrement lowers the quantity of the given line by one. At quantity 1 the
// control is disabled and nothing is sent.
func (s *Session) Decrement(ctx context.Context, lineID string) error {
	l, ok := s.Snapshot().Line(lineID)
	if !ok {
		return ErrUnknownLine
	}
	if !CanDecrement(l) {
		return nil
	}
	return s.UpdateQuantity(ctx, l.ID, l.ProductID, l.Qty-1)
}

// Checkout posts the order. It is refused without a request while the cart
// is empty. On success the cart is refreshed, onAccepted runs (the form
// resets there) and a toast is shown; on failure nothing local changes.
func (s *Session) Checkout(ctx context.Context, order api.OrderRequest, onAccepted func()) (api.OrderResult, error) {
	if !s.CanCheckout() {
		return api.OrderResult{}, ErrEmptyCart
	}
	if !s.acquire(ClassScreen) {
		return api.OrderResult{}, ErrBusy
	}
	defer s.release(ClassScreen)

	var res api.OrderResult
	err := s.q.run(ctx, func(ctx context.Context) error {
		// a queued clear may have emptied the cart meanwhile
		if !s.CanCheckout() {
			s.log.Warn(TitleOrderFailed, zap.Error(ErrEmptyCart))
			s.notify.Error(TitleOrderFailed, DetailEmptyCart)
			return ErrEmptyCart
		}
		out, err := s.remote.SubmitOrder(ctx, order)
		if err != nil {
			s.fail(TitleOrderFailed, err)
			return fmt.Errorf("submit order: %w", err)
		}
		res = out
		s.log.Info("order submitted", zap.String("order_id", out.OrderID))
		_ = s.refresh(ctx)
		if onAccepted != nil {
			onAccepted()
		}
		s.notify.Success(TitleOrderSubmitted)
		return nil
	})
	return res, err
}

func (s *Session) mutate(ctx context.Context, title string, call func(ctx context.Context) error) error {
	if !s.acquire(ClassScreen) {
		return ErrBusy
	}
	defer s.release(ClassScreen)

	return s.q.run(ctx, func(ctx context.Context) error {
		if err := call(ctx); err != nil {
			s.fail(title, err)
			return err
		}
		_ = s.refresh(ctx)
		return nil
	})
}

// refresh runs on the worker.
func (s *Session) refresh(ctx context.Context) error {
	s.holdScreen()
	defer s.unholdScreen()

	c, err := s.remote.Cart(ctx)
	if err != nil {
		s.fail(TitleFetchCart, err)
		return fmt.Errorf("refresh cart: %w", err)
	}
	s.mu.Lock()
	s.snap = snapshotOf(c)
	s.mu.Unlock()
	return nil
}

func (s *Session) fail(title string, err error) {
	s.log.Warn(title, zap.Error(err))
	s.notify.Error(title, api.MessageOf(err))
}

func (s *Session) acquire(c Class) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch c {
	case ClassItem:
		if s.itemBusy {
			return false
		}
		s.itemBusy = true
	default:
		if s.screenBusy {
			return false
		}
		s.screenBusy = true
	}
	return true
}

func (s *Session) release(c Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == ClassItem {
		s.itemBusy = false
		return
	}
	s.screenBusy = false
}

func (s *Session) holdScreen() {
	s.mu.Lock()
	s.screenHeld++
	s.mu.Unlock()
}

func (s *Session) unholdScreen() {
	s.mu.Lock()
	s.screenHeld--
	s.mu.Unlock()
}
