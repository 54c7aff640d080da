package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/shop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const adminPageSize = 10

type ShopHandler struct {
	Store   shop.Store
	Cache   redisx.CartCache // optional
	Orders  kafkax.Publisher // optional
	Service string
	Log     *zap.Logger

	AdminUsername string
	AdminPassword string
	AdminToken    string
}

func (h *ShopHandler) Register(r chi.Router) {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	r.Post("/v2/admin/signin", h.signIn)
	r.Route("/v2/api/{api_path}", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/cart", h.getCart)
		r.Post("/cart", h.addToCart)
		r.Put("/cart/{id}", h.updateCartLine)
		r.Delete("/cart/{id}", h.deleteCartLine)
		r.Delete("/carts", h.clearCart)
		r.Post("/order", h.createOrder)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Get("/admin/products", h.adminListProducts)
			r.Post("/admin/product", h.adminCreateProduct)
			r.Put("/admin/product/{id}", h.adminUpdateProduct)
			r.Delete("/admin/product/{id}", h.adminDeleteProduct)
		})
	})
}

func namespace(r *http.Request) string { return chi.URLParam(r, "api_path") }

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

func (h *ShopHandler) signIn(w http.ResponseWriter, r *http.Request) {
	var req api.SignInRequest
	if err := decode(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if h.AdminToken == "" || !equal(req.Username, h.AdminUsername) || !equal(req.Password, h.AdminPassword) {
		writeFail(w, http.StatusUnauthorized, "sign in failed")
		return
	}
	writeJSON(w, http.StatusOK, api.SignInResponse{
		Success: true,
		Message: "signed in",
		Token:   h.AdminToken,
		Expired: time.Now().Add(24 * time.Hour).Unix(),
	})
}

func (h *ShopHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.AdminToken == "" || !equal(r.Header.Get("Authorization"), h.AdminToken) {
			writeFail(w, http.StatusUnauthorized, "authorization required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (h *ShopHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.ListProducts(ctx)
	if err != nil {
		h.internal(w, r, "list products", err)
		return
	}
	out := api.ProductsResponse{Success: true, Products: make([]api.Product, 0, len(ps))}
	for _, p := range ps {
		if p.Enabled {
			out.Products = append(out.Products, toAPIProduct(p))
		}
	}
	out.Pagination = api.Pagination{TotalPages: 1, CurrentPage: 1}
	writeJSON(w, http.StatusOK, out)
}

func (h *ShopHandler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	ns := namespace(r)

	if h.Cache != nil {
		if b, err := h.Cache.Get(ctx, ns); err == nil {
			writeRaw(w, http.StatusOK, b)
			return
		} else if !errors.Is(err, redisx.ErrCacheMiss) {
			h.Log.Warn("cart cache read", zap.String("ns", ns), zap.Error(err))
		}
	}

	c, err := h.Store.GetCart(ctx, ns)
	if err != nil {
		h.internal(w, r, "fetch cart", err)
		return
	}
	b := kafkax.MustMarshal(api.CartResponse{Success: true, Data: toAPICart(c)})
	if h.Cache != nil {
		if err := h.Cache.Set(ctx, ns, b); err != nil {
			h.Log.Warn("cart cache write", zap.String("ns", ns), zap.Error(err))
		}
	}
	writeRaw(w, http.StatusOK, b)
}

func (h *ShopHandler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req api.Envelope[api.CartItemInput]
	if err := decode(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Data.ProductID == "" {
		writeFail(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Data.Qty < 1 {
		writeFail(w, http.StatusBadRequest, shop.ErrInvalidQty.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	ns := namespace(r)

	if _, err := h.Store.AddToCart(ctx, ns, req.Data.ProductID, req.Data.Qty); err != nil {
		h.storeError(w, r, "add to cart", err)
		return
	}
	h.invalidate(ctx, ns)
	writeOK(w, "added to cart")
}

func (h *ShopHandler) updateCartLine(w http.ResponseWriter, r *http.Request) {
	var req api.Envelope[api.CartItemInput]
	if err := decode(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Data.Qty < 1 {
		writeFail(w, http.StatusBadRequest, shop.ErrInvalidQty.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	ns := namespace(r)

	if err := h.Store.UpdateCartLine(ctx, ns, chi.URLParam(r, "id"), req.Data.ProductID, req.Data.Qty); err != nil {
		h.storeError(w, r, "update cart line", err)
		return
	}
	h.invalidate(ctx, ns)
	writeOK(w, "cart updated")
}

func (h *ShopHandler) deleteCartLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	ns := namespace(r)

	if err := h.Store.DeleteCartLine(ctx, ns, chi.URLParam(r, "id")); err != nil {
		h.storeError(w, r, "delete cart line", err)
		return
	}
	h.invalidate(ctx, ns)
	writeOK(w, "item removed")
}

func (h *ShopHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	ns := namespace(r)

	if err := h.Store.ClearCart(ctx, ns); err != nil {
		h.storeError(w, r, "clear cart", err)
		return
	}
	h.invalidate(ctx, ns)
	writeOK(w, "cart cleared")
}

func (h *ShopHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req api.Envelope[api.OrderRequest]
	if err := decode(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if problems := validateUser(req.Data.User); len(problems) > 0 {
		writeFail(w, http.StatusBadRequest, problems)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	ns := namespace(r)

	u := req.Data.User
	o, err := h.Store.CreateOrder(ctx, ns, shop.Customer{
		Email:   u.Email,
		Name:    u.Name,
		Tel:     u.Tel,
		Address: u.Address,
	}, req.Data.Message)
	if err != nil {
		h.storeError(w, r, "create order", err)
		return
	}
	h.invalidate(ctx, ns)
	h.publishOrder(r, o)

	writeJSON(w, http.StatusOK, api.OrderResult{
		Success:  true,
		Message:  "order created",
		Total:    o.Total,
		CreateAt: o.CreatedAt.Unix(),
		OrderID:  o.ID,
	})
}

func validateUser(u api.User) []string {
	var out []string
	for _, f := range []struct{ name, v string }{
		{"email", u.Email}, {"name", u.Name}, {"tel", u.Tel}, {"address", u.Address},
	} {
		if strings.TrimSpace(f.v) == "" {
			out = append(out, "user."+f.name+" is required")
		}
	}
	return out
}

func (h *ShopHandler) publishOrder(r *http.Request, o shop.Order) {
	if h.Orders == nil {
		return
	}
	payload := kafkax.MustMarshal(shop.OrderCreated(o))
	ev := shop.NewEnvelope(shop.EventOrderCreated, h.Service, middleware.GetReqID(r.Context()), o.ID, payload)
	h.Orders.Publish(shop.PartitionKey(o.ID), kafkax.MustMarshal(ev), kafkax.EventHeaders(shop.EventOrderCreated)...)
}

func (h *ShopHandler) adminListProducts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.ListProducts(ctx)
	if err != nil {
		h.internal(w, r, "admin list products", err)
		return
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].CreatedAt.Before(ps[j].CreatedAt) })

	pages := (len(ps) + adminPageSize - 1) / adminPageSize
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * adminPageSize
	end := min(start+adminPageSize, len(ps))

	out := api.ProductsResponse{
		Success:  true,
		Products: make([]api.Product, 0, end-start),
		Pagination: api.Pagination{
			TotalPages:  pages,
			CurrentPage: page,
			HasPre:      page > 1,
			HasNext:     page < pages,
		},
	}
	for _, p := range ps[start:end] {
		out.Products = append(out.Products, toAPIProduct(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ShopHandler) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req api.Envelope[api.Product]
	if err := decode(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	p := fromAPIProduct("", req.Data)
	if problems := p.Validate(); len(problems) > 0 {
		writeFail(w, http.StatusBadRequest, problems)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Store.CreateProduct(ctx, p); err != nil {
		h.storeError(w, r, "create product", err)
		return
	}
	writeOK(w, "product created")
}

func (h *ShopHandler) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req api.Envelope[api.Product]
	if err := decode(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	p := fromAPIProduct(chi.URLParam(r, "id"), req.Data)
	if problems := p.Validate(); len(problems) > 0 {
		writeFail(w, http.StatusBadRequest, problems)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.UpdateProduct(ctx, p); err != nil {
		h.storeError(w, r, "update product", err)
		return
	}
	// cached carts embed the product
	h.invalidate(ctx, namespace(r))
	writeOK(w, "product updated")
}

func (h *ShopHandler) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		h.storeError(w, r, "delete product", err)
		return
	}
	h.invalidate(ctx, namespace(r))
	writeOK(w, "product deleted")
}

func (h *ShopHandler) invalidate(ctx context.Context, ns string) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Delete(ctx, ns); err != nil {
		h.Log.Warn("cart cache invalidate", zap.String("ns", ns), zap.Error(err))
	}
}

func (h *ShopHandler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, shop.ErrNotFound):
		writeFail(w, http.StatusNotFound, op+": not found")
	case errors.Is(err, shop.ErrEmptyCart):
		writeFail(w, http.StatusBadRequest, shop.ErrEmptyCart.Error())
	case errors.Is(err, shop.ErrInvalidQty):
		writeFail(w, http.StatusBadRequest, shop.ErrInvalidQty.Error())
	default:
		h.internal(w, r, op, err)
	}
}

func (h *ShopHandler) internal(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.Log.Error(op+" failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeFail(w, http.StatusInternalServerError, op+" failed")
}
