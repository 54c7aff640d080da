// Package web serves the storefront pages. Every browser session gets its
// own cart controller, catalog view and checkout form; handlers only drive
// those and redirect back to the page.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const CookieName = "sf_session"

type ctxKey struct{}

type Server struct {
	sessions *Sessions
	log      *zap.Logger
	page     *page
}

func NewServer(sessions *Sessions, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{sessions: sessions, log: log, page: mustPage()}
}

func (s *Server) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.withShopper)
		r.Get("/", s.index)
		r.Get("/api/state", s.state)

		r.Post("/cart", s.addToCart)
		r.Post("/cart/{id}/increment", s.increment)
		r.Post("/cart/{id}/decrement", s.decrement)
		r.Post("/cart/{id}/delete", s.removeLine)
		r.Post("/carts/clear", s.clearCart)

		r.Post("/products/{id}/detail", s.openDetail)
		r.Post("/detail/confirm", s.confirmDetail)
		r.Post("/detail/close", s.closeDetail)

		r.Post("/order", s.placeOrder)
		r.Post("/dialog/dismiss", s.dismissDialog)
	})
}

// withShopper resolves the session cookie, starting a session when needed.
func (s *Server) withShopper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(CookieName); err == nil {
			id = c.Value
		}
		sh, created := s.sessions.Get(r.Context(), id)
		defer s.sessions.Release(sh)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    sh.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sh)))
	})
}

func shopperFrom(r *http.Request) *Shopper {
	return r.Context().Value(ctxKey{}).(*Shopper)
}

func back(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// done logs what the shopper could not already see on the board and
// redirects home.
func (s *Server) done(w http.ResponseWriter, r *http.Request, action string, err error) {
	if err != nil {
		s.log.Debug(action, zap.Error(err))
	}
	back(w, r)
}

// actionCtx detaches the remote call from the browser request so a closed
// tab does not abandon a mutation mid flight.
func actionCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), 30*time.Second)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	sh := shopperFrom(r)
	vm := buildView(sh)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.render(w, vm); err != nil {
		s.log.Error("render page", zap.Error(err))
	}
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildView(shopperFrom(r)))
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	sh := shopperFrom(r)
	qty := 1
	if v := r.PostFormValue("qty"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.done(w, r, "add to cart", cart.ErrInvalidQuantity)
			return
		}
		qty = n
	}
	ctx, cancel := actionCtx(r)
	defer cancel()
	s.done(w, r, "add to cart", sh.Cart.AddItem(ctx, r.PostFormValue("product_id"), qty))
}

func (s *Server) increment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := actionCtx(r)
	defer cancel()
	s.done(w, r, "increment", shopperFrom(r).Cart.Increment(ctx, chi.URLParam(r, "id")))
}

func (s *Server) decrement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := actionCtx(r)
	defer cancel()
	s.done(w, r, "decrement", shopperFrom(r).Cart.Decrement(ctx, chi.URLParam(r, "id")))
}

func (s *Server) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := actionCtx(r)
	defer cancel()
	s.done(w, r, "remove line", shopperFrom(r).Cart.RemoveItem(ctx, chi.URLParam(r, "id")))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := actionCtx(r)
	defer cancel()
	s.done(w, r, "clear cart", shopperFrom(r).Cart.Clear(ctx))
}

func (s *Server) openDetail(w http.ResponseWriter, r *http.Request) {
	s.done(w, r, "open detail", shopperFrom(r).Catalog.SeeMore(chi.URLParam(r, "id")))
}

func (s *Server) confirmDetail(w http.ResponseWriter, r *http.Request) {
	sh := shopperFrom(r)
	if v := r.PostFormValue("qty"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = 0
		}
		if err := sh.Catalog.SelectQty(n); err != nil {
			s.done(w, r, "select qty", err)
			return
		}
	}
	ctx, cancel := actionCtx(r)
	defer cancel()
	s.done(w, r, "confirm detail", sh.Catalog.Confirm(ctx))
}

func (s *Server) closeDetail(w http.ResponseWriter, r *http.Request) {
	shopperFrom(r).Catalog.Close()
	back(w, r)
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	sh := shopperFrom(r)
	for _, f := range []checkout.Field{
		checkout.FieldEmail, checkout.FieldName, checkout.FieldTel, checkout.FieldAddress, checkout.FieldMessage,
	} {
		sh.Form.Set(f, r.PostFormValue(string(f)))
	}
	ctx, cancel := actionCtx(r)
	defer cancel()
	res, err := sh.Form.Submit(ctx)
	if err == nil {
		s.log.Info("order placed", zap.String("session", sh.ID), zap.String("order_id", res.OrderID))
	}
	s.done(w, r, "place order", err)
}

func (s *Server) dismissDialog(w http.ResponseWriter, r *http.Request) {
	shopperFrom(r).Board.Dismiss()
	back(w, r)
}
