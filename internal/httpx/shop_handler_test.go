package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/shop"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key, value []byte
	headers    []kafka.Header
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) Publish(key, value []byte, headers ...kafka.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{key: key, value: value, headers: headers})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

type testShop struct {
	srv   *httptest.Server
	store *shop.MemStore
	mr    *miniredis.Miniredis
	pub   *recordingPublisher
}

func newTestShop(t *testing.T) *testShop {
	t.Helper()
	store := shop.NewMemStore(
		shop.Product{ID: "p1", Title: "Tea", Category: "drink", Unit: "cup",
			OriginPrice: decimal.NewFromInt(150), Price: decimal.NewFromInt(100), Enabled: true},
		shop.Product{ID: "p2", Title: "Cake", Category: "food", Unit: "slice",
			OriginPrice: decimal.NewFromInt(80), Price: decimal.NewFromInt(60), Enabled: true},
		shop.Product{ID: "p3", Title: "Hidden", Category: "food", Unit: "slice",
			Price: decimal.NewFromInt(1)},
	)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	pub := &recordingPublisher{}

	r := NewRouter()
	(&ShopHandler{
		Store:         store,
		Cache:         redisx.NewCartCache(rdb),
		Orders:        pub,
		Service:       "shopapi-test",
		AdminUsername: "admin",
		AdminPassword: "secret",
		AdminToken:    "tok",
	}).Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testShop{srv: srv, store: store, mr: mr, pub: pub}
}

func (ts *testShop) call(t *testing.T, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rd)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func addBody(productID string, qty int) api.Envelope[api.CartItemInput] {
	return api.Envelope[api.CartItemInput]{Data: api.CartItemInput{ProductID: productID, Qty: qty}}
}

func TestShop_ListProductsHidesDisabled(t *testing.T) {
	ts := newTestShop(t)

	resp, b := ts.call(t, http.MethodGet, "/v2/api/demo/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.ProductsResponse
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, out.Success)
	require.Len(t, out.Products, 2)
	assert.Equal(t, "p1", out.Products[0].ID)
	assert.Equal(t, 1, out.Products[0].IsEnabled)
	assert.True(t, decimal.NewFromInt(100).Equal(out.Products[0].Price))
}

func TestShop_AddMergesAndCartIsComputedServerSide(t *testing.T) {
	ts := newTestShop(t)

	resp, _ := ts.call(t, http.MethodPost, "/v2/api/demo/cart", addBody("p1", 2))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ts.call(t, http.MethodPost, "/v2/api/demo/cart", addBody("p1", 1))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, b := ts.call(t, http.MethodGet, "/v2/api/demo/cart", nil)
	var out api.CartResponse
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out.Data.Carts, 1)
	assert.Equal(t, 3, out.Data.Carts[0].Qty)
	assert.True(t, decimal.NewFromInt(300).Equal(out.Data.Carts[0].FinalTotal))
	assert.True(t, decimal.NewFromInt(300).Equal(out.Data.FinalTotal))
	assert.Equal(t, "Tea", out.Data.Carts[0].Product.Title)
}

func TestShop_CartNamespacesAreIsolated(t *testing.T) {
	ts := newTestShop(t)

	ts.call(t, http.MethodPost, "/v2/api/a/cart", addBody("p1", 1))

	_, b := ts.call(t, http.MethodGet, "/v2/api/b/cart", nil)
	var out api.CartResponse
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Empty(t, out.Data.Carts)
}

func TestShop_CartCacheInvalidatedOnMutation(t *testing.T) {
	ts := newTestShop(t)

	ts.call(t, http.MethodGet, "/v2/api/demo/cart", nil)
	assert.True(t, ts.mr.Exists("cart:demo"))

	ts.call(t, http.MethodPost, "/v2/api/demo/cart", addBody("p2", 1))
	assert.False(t, ts.mr.Exists("cart:demo"))

	_, b := ts.call(t, http.MethodGet, "/v2/api/demo/cart", nil)
	var out api.CartResponse
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out.Data.Carts, 1)

	cached, err := ts.mr.Get("cart:demo")
	require.NoError(t, err)
	assert.JSONEq(t, string(b), cached)
}

func TestShop_AddRejectsBadInput(t *testing.T) {
	ts := newTestShop(t)

	resp, b := ts.call(t, http.MethodPost, "/v2/api/demo/cart", addBody("p1", 0))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"message":"qty must be at least 1"}`, string(b))

	resp, b = ts.call(t, http.MethodPost, "/v2/api/demo/cart", addBody("nope", 1))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"message":"add to cart: not found"}`, string(b))
}

func TestShop_UpdateDeleteAndClear(t *testing.T) {
	ts := newTestShop(t)
	ctx := context.Background()

	ts.call(t, http.MethodPost, "/v2/api/demo/cart", addBody("p1", 1))
	ts.call(t, http.MethodPost, "/v2/api/demo/cart", addBody("p2", 1))
	c, err := ts.store.GetCart(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, c.Lines, 2)

	resp, _ := ts.call(t, http.MethodPut, "/v2/api/demo/cart/"+c.Lines[0].ID, addBody("p1", 5))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c, _ = ts.store.GetCart(ctx, "demo")
	assert.Equal(t, 5, c.Lines[0].Qty)

	resp, _ = ts.call(t, http.MethodDelete, "/v2/api/demo/cart/"+c.Lines[1].ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c, _ = ts.store.GetCart(ctx, "demo")
	assert.Len(t, c.Lines, 1)

	resp, _ = ts.call(t, http.MethodDelete, "/v2/api/demo/cart/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.call(t, http.MethodDelete, "/v2/api/demo/carts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c, _ = ts.store.GetCart(ctx, "demo")
	assert.Empty(t, c.Lines)
}

func orderBody() api.Envelope[api.OrderRequest] {
	return api.Envelope[api.OrderRequest]{Data: api.OrderRequest{
		User:    api.User{Email: "a@b.co", Name: "Ann", Tel: "0912345678", Address: "Main St 1"},
		Message: "ring twice",
	}}
}

func TestShop_OrderEmptiesCartAndPublishes(t *testing.T) {
	ts := newTestShop(t)

	ts.call(t, http.MethodPost, "/v2/api/demo/cart", addBody("p1", 2))

	resp, b := ts.call(t, http.MethodPost, "/v2/api/demo/order", orderBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.OrderResult
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.OrderID)
	assert.True(t, decimal.NewFromInt(200).Equal(out.Total))

	c, err := ts.store.GetCart(context.Background(), "demo")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)

	msgs := ts.pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, out.OrderID, string(msgs[0].key))

	var ev shop.Envelope
	require.NoError(t, json.Unmarshal(msgs[0].value, &ev))
	assert.Equal(t, shop.EventOrderCreated, ev.EventType)
	assert.Equal(t, "shopapi-test", ev.Producer)
	assert.Equal(t, out.OrderID, ev.CorrelationID)

	var payload shop.OrderCreatedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "a@b.co", payload.Email)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, 2, payload.Items[0].Qty)
}

func TestShop_OrderRejections(t *testing.T) {
	ts := newTestShop(t)

	resp, b := ts.call(t, http.MethodPost, "/v2/api/demo/order", orderBody())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"message":"cart is empty"}`, string(b))

	ts.call(t, http.MethodPost, "/v2/api/demo/cart", addBody("p1", 1))
	resp, b = ts.call(t, http.MethodPost, "/v2/api/demo/order",
		api.Envelope[api.OrderRequest]{Data: api.OrderRequest{User: api.User{Email: "a@b.co"}}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var st api.StatusResponse
	require.NoError(t, json.Unmarshal(b, &st))
	assert.False(t, st.Success)
	assert.Contains(t, string(st.Message), "user.name is required")
	assert.Empty(t, ts.pub.all())
}

func TestShop_AdminRequiresToken(t *testing.T) {
	ts := newTestShop(t)

	resp, _ := ts.call(t, http.MethodGet, "/v2/api/demo/admin/products", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.call(t, http.MethodPost, "/v2/admin/signin", api.SignInRequest{Username: "admin", Password: "bad"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, b := ts.call(t, http.MethodPost, "/v2/admin/signin", api.SignInRequest{Username: "admin", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var in api.SignInResponse
	require.NoError(t, json.Unmarshal(b, &in))
	assert.Equal(t, "tok", in.Token)

	resp, b = ts.call(t, http.MethodGet, "/v2/api/demo/admin/products?page=1", nil, "Authorization", in.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out api.ProductsResponse
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Len(t, out.Products, 3)
	assert.Equal(t, 1, out.Pagination.TotalPages)
	assert.False(t, out.Pagination.HasNext)
}

func TestShop_AdminProductLifecycle(t *testing.T) {
	ts := newTestShop(t)
	auth := []string{"Authorization", "tok"}

	bad := api.Envelope[api.Product]{Data: api.Product{Title: "No unit", Category: "x"}}
	resp, b := ts.call(t, http.MethodPost, "/v2/api/demo/admin/product", bad, auth...)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(b), "unit is required")

	p := api.Product{Title: "Soup", Category: "food", Unit: "bowl",
		OriginPrice: decimal.NewFromInt(90), Price: decimal.NewFromInt(70), IsEnabled: 1}
	resp, _ = ts.call(t, http.MethodPost, "/v2/api/demo/admin/product", api.Envelope[api.Product]{Data: p}, auth...)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ps, err := ts.store.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 4)

	ts.call(t, http.MethodPost, "/v2/api/demo/cart", addBody("p2", 1))
	ts.call(t, http.MethodGet, "/v2/api/demo/cart", nil)

	resp, _ = ts.call(t, http.MethodPut, "/v2/api/demo/admin/product/p2", api.Envelope[api.Product]{Data: api.Product{
		Title: "Cake deluxe", Category: "food", Unit: "slice", Price: decimal.NewFromInt(65), IsEnabled: 1,
	}}, auth...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, ts.mr.Exists("cart:demo"))

	got, err := ts.store.GetProduct(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, "Cake deluxe", got.Title)

	resp, _ = ts.call(t, http.MethodDelete, "/v2/api/demo/admin/product/p2", nil, auth...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c, _ := ts.store.GetCart(context.Background(), "demo")
	assert.Empty(t, c.Lines)

	resp, _ = ts.call(t, http.MethodDelete, "/v2/api/demo/admin/product/p2", nil, auth...)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
