package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templatesFS embed.FS

type page struct {
	tmpl *template.Template
}

func mustPage() *page {
	funcs := template.FuncMap{
		"money":        func(d decimal.Decimal) string { return d.StringFixed(0) },
		"canDecrement": cart.CanDecrement,
		"discounted":   func(p api.Product) bool { return p.Price.LessThan(p.OriginPrice) },
	}
	t := template.Must(template.New("index.html").Funcs(funcs).ParseFS(templatesFS, "templates/index.html"))
	return &page{tmpl: t}
}

func (p *page) render(w io.Writer, vm View) error {
	return p.tmpl.Execute(w, vm)
}

type Detail struct {
	Open    bool        `json:"open"`
	Product api.Product `json:"product"`
	Qty     int         `json:"qty"`
	Images  []string    `json:"images,omitempty"`
}

type CheckoutView struct {
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Tel       string            `json:"tel"`
	Address   string            `json:"address"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	CanSubmit bool              `json:"can_submit"`
}

// View is everything the page shows for one shopper. /api/state returns it
// as JSON.
type View struct {
	Products      []api.Product  `json:"products"`
	Cart          cart.Snapshot  `json:"cart"`
	ItemLoading   bool           `json:"item_loading"`
	ScreenLoading bool           `json:"screen_loading"`
	Detail        Detail         `json:"detail"`
	QtyOptions    []int          `json:"qty_options"`
	Checkout      CheckoutView   `json:"checkout"`
	Toasts        []notify.Toast `json:"toasts"`
	Dialog        *notify.Dialog `json:"dialog,omitempty"`
}

func buildView(sh *Shopper) View {
	m := sh.Catalog.Modal()
	f := sh.Form.Fields()
	vm := View{
		Products:      sh.Catalog.Products(),
		Cart:          sh.Cart.Snapshot(),
		ItemLoading:   sh.Cart.Loading(cart.ClassItem),
		ScreenLoading: sh.Cart.ScreenLoading() || sh.Catalog.Loading(),
		Detail:        Detail{Open: m.Open, Product: m.Product, Qty: m.Qty, Images: m.Images()},
		QtyOptions:    catalog.QtyOptions(),
		Checkout: CheckoutView{
			Email:     f.Email,
			Name:      f.Name,
			Tel:       f.Tel,
			Address:   f.Address,
			Message:   f.Message,
			Errors:    fieldErrors(sh.Form.Errors()),
			CanSubmit: sh.Form.CanSubmit(),
		},
		Toasts: sh.Board.Toasts(),
	}
	if d, ok := sh.Board.Dialog(); ok {
		vm.Dialog = &d
	}
	return vm
}

func fieldErrors(errs checkout.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for f, msg := range errs {
		out[string(f)] = msg
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
