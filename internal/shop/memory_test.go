package shop

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProducts() []Product {
	return []Product{
		{ID: "1", Title: "A", Category: "tea", Unit: "box", Price: decimal.NewFromInt(100), OriginPrice: decimal.NewFromInt(150)},
		{ID: "2", Title: "B", Category: "tea", Unit: "box", Price: decimal.RequireFromString("19.5"), OriginPrice: decimal.NewFromInt(25)},
	}
}

func TestMemStore_AddMergesSameProduct(t *testing.T) {
	s := NewMemStore(seedProducts()...)
	ctx := context.Background()

	first, err := s.AddToCart(ctx, "ns", "1", 2)
	require.NoError(t, err)
	second, err := s.AddToCart(ctx, "ns", "1", 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Qty)

	cart, err := s.GetCart(ctx, "ns")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(500)))
}

func TestMemStore_CartsAreNamespaced(t *testing.T) {
	s := NewMemStore(seedProducts()...)
	ctx := context.Background()

	_, err := s.AddToCart(ctx, "a", "1", 1)
	require.NoError(t, err)

	other, err := s.GetCart(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, other.Lines)
}

func TestMemStore_AddRejectsUnknownProductAndBadQty(t *testing.T) {
	s := NewMemStore(seedProducts()...)
	ctx := context.Background()

	_, err := s.AddToCart(ctx, "ns", "404", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.AddToCart(ctx, "ns", "1", 0)
	assert.ErrorIs(t, err, ErrInvalidQty)
}

func TestMemStore_UpdateAndDeleteLine(t *testing.T) {
	s := NewMemStore(seedProducts()...)
	ctx := context.Background()

	l, err := s.AddToCart(ctx, "ns", "2", 1)
	require.NoError(t, err)

	require.NoError(t, s.UpdateCartLine(ctx, "ns", l.ID, "2", 4))
	cart, _ := s.GetCart(ctx, "ns")
	assert.Equal(t, 4, cart.Lines[0].Qty)
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(78)))

	assert.ErrorIs(t, s.UpdateCartLine(ctx, "ns", "nope", "2", 1), ErrNotFound)
	require.NoError(t, s.DeleteCartLine(ctx, "ns", l.ID))
	assert.ErrorIs(t, s.DeleteCartLine(ctx, "ns", l.ID), ErrNotFound)
}

func TestMemStore_CreateOrderEmptiesCart(t *testing.T) {
	s := NewMemStore(seedProducts()...)
	ctx := context.Background()

	_, err := s.CreateOrder(ctx, "ns", Customer{Email: "a@b.co"}, "")
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = s.AddToCart(ctx, "ns", "1", 1)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, "ns", "2", 2)
	require.NoError(t, err)

	o, err := s.CreateOrder(ctx, "ns", Customer{Email: "a@b.co"}, "leave at door")
	require.NoError(t, err)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(139)))
	assert.Len(t, o.Items, 2)

	cart, _ := s.GetCart(ctx, "ns")
	assert.Empty(t, cart.Lines)
	assert.Len(t, s.Orders(), 1)
}

func TestMemStore_DeleteProductDropsCartLines(t *testing.T) {
	s := NewMemStore(seedProducts()...)
	ctx := context.Background()

	_, err := s.AddToCart(ctx, "ns", "1", 1)
	require.NoError(t, err)
	require.NoError(t, s.DeleteProduct(ctx, "1"))

	cart, _ := s.GetCart(ctx, "ns")
	assert.Empty(t, cart.Lines)
	assert.ErrorIs(t, s.DeleteProduct(ctx, "1"), ErrNotFound)
}

func TestProduct_Validate(t *testing.T) {
	assert.Empty(t, seedProducts()[0].Validate())

	bad := Product{Price: decimal.NewFromInt(-1)}
	assert.ElementsMatch(t, []string{
		"title is required",
		"category is required",
		"unit is required",
		"price must not be negative",
	}, bad.Validate())
}
