package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20 // 1MB

var errUpstream = errors.New("upstream unavailable")

type Options struct {
	BaseURL    string
	APIPath    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the storefront REST backend. One Client is safe for
// concurrent use by many sessions.
type Client struct {
	root    string
	base    string
	http    *http.Client
	timeout time.Duration
	log     *zap.Logger
	cb      *gobreaker.CircuitBreaker[struct{}]

	mu    sync.RWMutex
	token string
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	root := strings.TrimRight(opts.BaseURL, "/")
	c := &Client{
		root:    root,
		base:    root + "/v2/api/" + url.PathEscape(opts.APIPath),
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		log:     opts.Logger,
		token:   opts.Token,
	}
	c.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "storefront-api",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a caller walking away says nothing about the backend
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out ProductsResponse
	if err := c.do(ctx, "list products", http.MethodGet, c.base+"/products", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) Cart(ctx context.Context) (Cart, error) {
	var out CartResponse
	if err := c.do(ctx, "fetch cart", http.MethodGet, c.base+"/cart", nil, &out); err != nil {
		return Cart{}, err
	}
	return out.Data, nil
}

func (c *Client) AddToCart(ctx context.Context, productID string, qty int) error {
	body := Envelope[CartItemInput]{Data: CartItemInput{ProductID: productID, Qty: qty}}
	return c.do(ctx, "add to cart", http.MethodPost, c.base+"/cart", body, nil)
}

func (c *Client) UpdateCartLine(ctx context.Context, lineID, productID string, qty int) error {
	body := Envelope[CartItemInput]{Data: CartItemInput{ProductID: productID, Qty: qty}}
	return c.do(ctx, "update cart line", http.MethodPut, c.base+"/cart/"+url.PathEscape(lineID), body, nil)
}

func (c *Client) DeleteCartLine(ctx context.Context, lineID string) error {
	return c.do(ctx, "delete cart line", http.MethodDelete, c.base+"/cart/"+url.PathEscape(lineID), nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, "clear cart", http.MethodDelete, c.base+"/carts", nil, nil)
}

func (c *Client) SubmitOrder(ctx context.Context, order OrderRequest) (OrderResult, error) {
	var out OrderResult
	err := c.do(ctx, "submit order", http.MethodPost, c.base+"/order", Envelope[OrderRequest]{Data: order}, &out)
	return out, err
}

// SignIn exchanges admin credentials for a token and keeps it for the
// admin product calls.
func (c *Client) SignIn(ctx context.Context, username, password string) (string, error) {
	var out SignInResponse
	in := SignInRequest{Username: username, Password: password}
	if err := c.do(ctx, "admin sign in", http.MethodPost, c.root+"/v2/admin/signin", in, &out); err != nil {
		return "", err
	}
	c.SetToken(out.Token)
	return out.Token, nil
}

func (c *Client) AdminProducts(ctx context.Context, page int) ([]Product, Pagination, error) {
	if page < 1 {
		page = 1
	}
	var out ProductsResponse
	u := c.base + "/admin/products?page=" + strconv.Itoa(page)
	if err := c.do(ctx, "admin list products", http.MethodGet, u, nil, &out); err != nil {
		return nil, Pagination{}, err
	}
	return out.Products, out.Pagination, nil
}

func (c *Client) CreateProduct(ctx context.Context, p Product) error {
	return c.do(ctx, "admin create product", http.MethodPost, c.base+"/admin/product", Envelope[Product]{Data: p}, nil)
}

func (c *Client) UpdateProduct(ctx context.Context, id string, p Product) error {
	u := c.base + "/admin/product/" + url.PathEscape(id)
	return c.do(ctx, "admin update product", http.MethodPut, u, Envelope[Product]{Data: p}, nil)
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	u := c.base + "/admin/product/" + url.PathEscape(id)
	return c.do(ctx, "admin delete product", http.MethodDelete, u, nil, nil)
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, op, method, u string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		body = b
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var raw rawResponse
	_, err := c.cb.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", tok)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return struct{}{}, err
		}
		raw = rawResponse{status: resp.StatusCode, body: b}
		if resp.StatusCode >= http.StatusInternalServerError {
			return struct{}{}, errUpstream
		}
		return struct{}{}, nil
	})

	if err != nil && !errors.Is(err, errUpstream) {
		c.log.Debug("request failed", zap.String("op", op), zap.String("method", method), zap.Error(err))
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}

	var st StatusResponse
	_ = json.Unmarshal(raw.body, &st)

	if raw.status >= http.StatusBadRequest || (!st.Success && hasSuccessField(raw.body)) {
		c.log.Debug("request rejected",
			zap.String("op", op),
			zap.Int("status", raw.status),
			zap.String("message", string(st.Message)))
		return &Error{Op: op, Kind: KindServer, Status: raw.status, Message: string(st.Message)}
	}

	if out != nil {
		if err := json.Unmarshal(raw.body, out); err != nil {
			return &Error{Op: op, Kind: KindServer, Status: raw.status, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func hasSuccessField(b []byte) bool {
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return false
	}
	return probe.Success != nil
}
