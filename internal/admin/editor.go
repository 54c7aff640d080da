// Package admin edits the product catalog through the authenticated admin
// endpoints. It never touches a shopper's cart.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"go.uber.org/zap"
)

const (
	TitleSignInFailed = "Failed to sign in"
	TitleFetchFailed  = "Failed to fetch products"
	TitleCreated      = "Product created"
	TitleCreateFailed = "Failed to create product"
	TitleUpdated      = "Product updated"
	TitleUpdateFailed = "Failed to update product"
	TitleDeleted      = "Product deleted"
	TitleDeleteFailed = "Failed to delete product"
)

var (
	ErrBusy      = errors.New("admin: action already in flight")
	ErrSignedOut = errors.New("admin: sign in first")
	ErrMissingID = errors.New("admin: missing product id")
)

type Remote interface {
	SignIn(ctx context.Context, username, password string) (string, error)
	AdminProducts(ctx context.Context, page int) ([]api.Product, api.Pagination, error)
	CreateProduct(ctx context.Context, p api.Product) error
	UpdateProduct(ctx context.Context, id string, p api.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type Editor struct {
	remote Remote
	notify notify.Notifier
	log    *zap.Logger

	mu       sync.RWMutex
	signedIn bool
	busy     bool
	products []api.Product
	page     api.Pagination
}

func NewEditor(remote Remote, n notify.Notifier, log *zap.Logger) *Editor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Editor{remote: remote, notify: n, log: log, page: api.Pagination{CurrentPage: 1}}
}

func (e *Editor) SignIn(ctx context.Context, username, password string) error {
	if !e.acquire() {
		return ErrBusy
	}
	defer e.release()

	if _, err := e.remote.SignIn(ctx, username, password); err != nil {
		e.fail(TitleSignInFailed, err)
		return fmt.Errorf("sign in: %w", err)
	}
	e.mu.Lock()
	e.signedIn = true
	e.mu.Unlock()
	e.log.Info("admin signed in", zap.String("username", username))
	return nil
}

// SetSignedIn marks the editor as holding a token obtained elsewhere.
func (e *Editor) SetSignedIn() {
	e.mu.Lock()
	e.signedIn = true
	e.mu.Unlock()
}

// List loads one page of the catalog, disabled products included.
func (e *Editor) List(ctx context.Context, page int) error {
	if !e.acquire() {
		return ErrBusy
	}
	defer e.release()
	return e.load(ctx, page)
}

func (e *Editor) Create(ctx context.Context, p api.Product) error {
	return e.change(ctx, TitleCreated, TitleCreateFailed, func(ctx context.Context) error {
		return e.remote.CreateProduct(ctx, p)
	})
}

func (e *Editor) Update(ctx context.Context, id string, p api.Product) error {
	if id == "" {
		return ErrMissingID
	}
	return e.change(ctx, TitleUpdated, TitleUpdateFailed, func(ctx context.Context) error {
		return e.remote.UpdateProduct(ctx, id, p)
	})
}

func (e *Editor) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return e.change(ctx, TitleDeleted, TitleDeleteFailed, func(ctx context.Context) error {
		return e.remote.DeleteProduct(ctx, id)
	})
}

func (e *Editor) Products() []api.Product {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]api.Product(nil), e.products...)
}

func (e *Editor) Pagination() api.Pagination {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.page
}

func (e *Editor) Loading() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.busy
}

// change runs one write and reloads the current page, the same way a cart
// mutation is followed by a refresh.
func (e *Editor) change(ctx context.Context, okTitle, failTitle string, call func(context.Context) error) error {
	if !e.acquire() {
		return ErrBusy
	}
	defer e.release()

	if err := call(ctx); err != nil {
		e.fail(failTitle, err)
		return err
	}
	e.notify.Success(okTitle)
	_ = e.load(ctx, e.Pagination().CurrentPage)
	return nil
}

func (e *Editor) load(ctx context.Context, page int) error {
	e.mu.RLock()
	signedIn := e.signedIn
	e.mu.RUnlock()
	if !signedIn {
		return ErrSignedOut
	}

	ps, pg, err := e.remote.AdminProducts(ctx, page)
	if err != nil {
		e.fail(TitleFetchFailed, err)
		return fmt.Errorf("list products page %d: %w", page, err)
	}
	e.mu.Lock()
	e.products = ps
	e.page = pg
	e.mu.Unlock()
	return nil
}

func (e *Editor) fail(title string, err error) {
	e.log.Warn(title, zap.Error(err))
	e.notify.Error(title, api.MessageOf(err))
}

func (e *Editor) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return false
	}
	e.busy = true
	return true
}

func (e *Editor) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}
