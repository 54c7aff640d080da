package shop

import "context"

// Store is the persistence behind the shop API. Repo (Postgres) and
// MemStore implement it.
type Store interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id string) error

	GetCart(ctx context.Context, ns string) (Cart, error)
	// AddToCart merges qty into an existing line for the same product.
	AddToCart(ctx context.Context, ns, productID string, qty int) (CartLine, error)
	UpdateCartLine(ctx context.Context, ns, lineID, productID string, qty int) error
	DeleteCartLine(ctx context.Context, ns, lineID string) error
	ClearCart(ctx context.Context, ns string) error

	// CreateOrder turns the namespace's cart into an order and empties the
	// cart, atomically. It fails with ErrEmptyCart when there is nothing to
	// order.
	CreateOrder(ctx context.Context, ns string, c Customer, message string) (Order, error)
}
