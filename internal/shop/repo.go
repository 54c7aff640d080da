package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres Store. Money columns are NUMERIC and travel as text
// so decimal values keep their exact scale.
type Repo struct{ DB *pgxpool.Pool }

const productColumns = `p.id, p.title, p.category, p.origin_price::text, p.price::text, p.unit,
	p.description, p.content, p.is_enabled, p.image_url, p.images_url, p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, extra ...any) (Product, error) {
	var p Product
	var origin, price string
	dest := append([]any{
		&p.ID, &p.Title, &p.Category, &origin, &price, &p.Unit,
		&p.Description, &p.Content, &p.Enabled, &p.ImageURL, &p.ImagesURL, &p.CreatedAt, &p.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Product{}, err
	}
	var err error
	if p.OriginPrice, err = decimal.NewFromString(origin); err != nil {
		return Product{}, fmt.Errorf("origin_price: %w", err)
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return Product{}, fmt.Errorf("price: %w", err)
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products p ORDER BY p.created_at, p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, title, category, origin_price, price, unit, description, content, is_enabled, image_url, images_url)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		p.ID, p.Title, p.Category, p.OriginPrice.String(), p.Price.String(), p.Unit,
		p.Description, p.Content, p.Enabled, p.ImageURL, p.ImagesURL,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) UpdateProduct(ctx context.Context, p Product) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET title=$2, category=$3, origin_price=$4::numeric, price=$5::numeric, unit=$6,
			description=$7, content=$8, is_enabled=$9, image_url=$10, images_url=$11, updated_at=now()
		WHERE id=$1`,
		p.ID, p.Title, p.Category, p.OriginPrice.String(), p.Price.String(), p.Unit,
		p.Description, p.Content, p.Enabled, p.ImageURL, p.ImagesURL,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct also drops the product from every cart (ON DELETE CASCADE).
func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) GetCart(ctx context.Context, ns string) (Cart, error) {
	return getCart(ctx, r.DB, ns, false)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getCart(ctx context.Context, q querier, ns string, lock bool) (Cart, error) {
	sql := `SELECT ` + productColumns + `, c.id, c.qty
		FROM cart_lines c JOIN products p ON p.id = c.product_id
		WHERE c.namespace=$1 ORDER BY c.created_at, c.id`
	if lock {
		sql += ` FOR UPDATE OF c`
	}
	rows, err := q.Query(ctx, sql, ns)
	if err != nil {
		return Cart{}, err
	}
	defer rows.Close()

	cart := Cart{Namespace: ns}
	for rows.Next() {
		var l CartLine
		p, err := scanProduct(rows, &l.ID, &l.Qty)
		if err != nil {
			return Cart{}, err
		}
		l.ProductID = p.ID
		l.Product = p
		cart.Lines = append(cart.Lines, l)
	}
	return cart, rows.Err()
}

func (r *Repo) AddToCart(ctx context.Context, ns, productID string, qty int) (CartLine, error) {
	if qty < 1 {
		return CartLine{}, ErrInvalidQty
	}
	p, err := r.GetProduct(ctx, productID)
	if err != nil {
		return CartLine{}, err
	}
	l := CartLine{ProductID: productID, Product: p}
	err = r.DB.QueryRow(ctx, `
		INSERT INTO cart_lines(id, namespace, product_id, qty)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, product_id) DO UPDATE SET qty = cart_lines.qty + EXCLUDED.qty
		RETURNING id, qty`,
		uuid.NewString(), ns, productID, qty,
	).Scan(&l.ID, &l.Qty)
	if err != nil {
		return CartLine{}, err
	}
	return l, nil
}

func (r *Repo) UpdateCartLine(ctx context.Context, ns, lineID, productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQty
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE cart_lines SET product_id=$3, qty=$4
		WHERE namespace=$1 AND id=$2 AND EXISTS (SELECT 1 FROM products WHERE id=$3)`,
		ns, lineID, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteCartLine(ctx context.Context, ns, lineID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE namespace=$1 AND id=$2`, ns, lineID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ClearCart(ctx context.Context, ns string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE namespace=$1`, ns)
	return err
}

// CreateOrder prices the order from the products table, never from the
// client, and empties the cart in the same transaction.
func (r *Repo) CreateOrder(ctx context.Context, ns string, c Customer, message string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cart, err := getCart(ctx, tx, ns, true)
	if err != nil {
		return Order{}, err
	}
	if len(cart.Lines) == 0 {
		return Order{}, ErrEmptyCart
	}

	o := Order{
		ID:        uuid.NewString(),
		Namespace: ns,
		Customer:  c,
		Message:   message,
		Total:     cart.Total(),
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, namespace, email, name, tel, address, message, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric)
		RETURNING created_at`,
		o.ID, ns, c.Email, c.Name, c.Tel, c.Address, message, o.Total.String(),
	).Scan(&o.CreatedAt)
	if err != nil {
		return Order{}, err
	}

	for _, l := range cart.Lines {
		it := OrderItem{ProductID: l.ProductID, Qty: l.Qty, Price: l.Product.Price}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, price)
			VALUES ($1, $2, $3, $4::numeric)`,
			o.ID, it.ProductID, it.Qty, it.Price.String(),
		); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE namespace=$1`, ns); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}
