package catalog

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu       sync.Mutex
	products []api.Product
	err      error
	calls    int
	gate     chan struct{}
}

func (s *stubSource) Products(context.Context) ([]api.Product, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	ps, err := s.products, s.err
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return ps, err
}

type addCall struct {
	productID string
	qty       int
}

type stubCart struct {
	mu   sync.Mutex
	adds []addCall
	err  error
}

func (c *stubCart) AddItem(_ context.Context, productID string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adds = append(c.adds, addCall{productID, qty})
	return c.err
}

type errRecorder struct {
	titles  []string
	details []string
}

func (r *errRecorder) Success(string) {}

func (r *errRecorder) Error(title, detail string) {
	r.titles = append(r.titles, title)
	r.details = append(r.details, detail)
}

var products = []api.Product{
	{ID: "tea", Title: "Tea", ImageURL: "tea.png", ImagesURL: []string{"tea2.png"}},
	{ID: "cake", Title: "Cake"},
}

func TestView_LoadAndLookup(t *testing.T) {
	src := &stubSource{products: products}
	v := NewView(src, &stubCart{}, &errRecorder{}, nil)

	require.NoError(t, v.Load(context.Background()))
	assert.Len(t, v.Products(), 2)
	assert.False(t, v.Loading())

	p, ok := v.Product("cake")
	require.True(t, ok)
	assert.Equal(t, "Cake", p.Title)
	_, ok = v.Product("nope")
	assert.False(t, ok)
}

func TestView_LoadFailureKeepsListAndNotifies(t *testing.T) {
	src := &stubSource{products: products}
	rec := &errRecorder{}
	v := NewView(src, &stubCart{}, rec, nil)
	require.NoError(t, v.Load(context.Background()))

	src.err = &api.Error{Op: "list products", Kind: api.KindServer, Status: http.StatusBadGateway, Message: "upstream down"}
	err := v.Load(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsServer(err))

	assert.Len(t, v.Products(), 2)
	assert.Equal(t, []string{TitleFetchProducts}, rec.titles)
	assert.Equal(t, []string{"upstream down"}, rec.details)
	assert.False(t, v.Loading())
}

func TestView_LoadHoldsLoadingFlag(t *testing.T) {
	src := &stubSource{products: products, gate: make(chan struct{})}
	v := NewView(src, &stubCart{}, &errRecorder{}, nil)

	done := make(chan error, 1)
	go func() { done <- v.Load(context.Background()) }()

	require.Eventually(t, v.Loading, time.Second, time.Millisecond)
	close(src.gate)
	require.NoError(t, <-done)
	assert.False(t, v.Loading())
}

func TestView_CancelledCallerDoesNotAbortSharedLoad(t *testing.T) {
	src := &stubSource{products: products, gate: make(chan struct{})}
	rec := &errRecorder{}
	v := NewView(src, &stubCart{}, rec, nil)

	ctx1, cancel1 := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- v.Load(ctx1) }()
	require.Eventually(t, v.Loading, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- v.Load(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancel1()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(src.gate)
	require.NoError(t, <-second)
	assert.Len(t, v.Products(), 2)
	assert.Empty(t, rec.titles)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 1, src.calls)
}

func TestView_SeeMoreDoesNotTouchCart(t *testing.T) {
	c := &stubCart{}
	v := NewView(&stubSource{products: products}, c, &errRecorder{}, nil)
	require.NoError(t, v.Load(context.Background()))

	require.NoError(t, v.SeeMore("tea"))
	m := v.Modal()
	assert.True(t, m.Open)
	assert.Equal(t, "tea", m.Product.ID)
	assert.Equal(t, 1, m.Qty)
	assert.Equal(t, []string{"tea.png", "tea2.png"}, m.Images())
	assert.Empty(t, c.adds)

	assert.ErrorIs(t, v.SeeMore("nope"), ErrUnknownProduct)
}

func TestView_SelectQtyRange(t *testing.T) {
	v := NewView(&stubSource{products: products}, &stubCart{}, &errRecorder{}, nil)
	require.NoError(t, v.Load(context.Background()))

	assert.ErrorIs(t, v.SelectQty(3), ErrModalClosed)

	require.NoError(t, v.SeeMore("tea"))
	assert.ErrorIs(t, v.SelectQty(0), ErrQtyOutOfRange)
	assert.ErrorIs(t, v.SelectQty(MaxQty+1), ErrQtyOutOfRange)
	require.NoError(t, v.SelectQty(MaxQty))
	assert.Equal(t, MaxQty, v.Modal().Qty)
}

func TestView_ConfirmAddsSelectedQtyAndCloses(t *testing.T) {
	c := &stubCart{}
	v := NewView(&stubSource{products: products}, c, &errRecorder{}, nil)
	require.NoError(t, v.Load(context.Background()))

	require.NoError(t, v.SeeMore("cake"))
	require.NoError(t, v.SelectQty(4))
	require.NoError(t, v.Confirm(context.Background()))

	assert.Equal(t, []addCall{{"cake", 4}}, c.adds)
	assert.False(t, v.Modal().Open)

	assert.ErrorIs(t, v.Confirm(context.Background()), ErrModalClosed)
}

func TestView_ConfirmFailureKeepsModalOpen(t *testing.T) {
	c := &stubCart{err: errors.New("boom")}
	v := NewView(&stubSource{products: products}, c, &errRecorder{}, nil)
	require.NoError(t, v.Load(context.Background()))

	require.NoError(t, v.SeeMore("cake"))
	require.Error(t, v.Confirm(context.Background()))
	assert.True(t, v.Modal().Open)

	v.Close()
	assert.False(t, v.Modal().Open)
}

func TestView_AddOne(t *testing.T) {
	c := &stubCart{}
	v := NewView(&stubSource{}, c, &errRecorder{}, nil)

	require.NoError(t, v.AddOne(context.Background(), "tea"))
	assert.Equal(t, []addCall{{"tea", 1}}, c.adds)
}

func TestQtyOptions(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, QtyOptions())
}
