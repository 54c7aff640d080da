// Package checkout validates the shopper's contact details and submits the
// order through the cart session.
package checkout

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/cart"
)

type Field string

const (
	FieldEmail   Field = "email"
	FieldName    Field = "name"
	FieldTel     Field = "tel"
	FieldAddress Field = "address"
	FieldMessage Field = "message"
)

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// landline 0[2-8] + 7 digits, mobile 09 + 8 digits
	telRe = regexp.MustCompile(`^(0[2-8]\d{7}|09\d{8})$`)
)

type Fields struct {
	Email   string
	Name    string
	Tel     string
	Address string
	Message string
}

// ValidationErrors maps a field to its message.
type ValidationErrors map[Field]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for f := range v {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[Field(k)])
	}
	return "checkout: " + strings.Join(parts, "; ")
}

// Validate checks the fields locally. It never talks to the network.
func (f Fields) Validate() ValidationErrors {
	errs := ValidationErrors{}
	switch email := strings.TrimSpace(f.Email); {
	case email == "":
		errs[FieldEmail] = "Email is required"
	case !emailRe.MatchString(email):
		errs[FieldEmail] = "Email is not valid"
	}
	if strings.TrimSpace(f.Name) == "" {
		errs[FieldName] = "Name is required"
	}
	switch tel := strings.TrimSpace(f.Tel); {
	case tel == "":
		errs[FieldTel] = "Phone is required"
	case !telRe.MatchString(tel):
		errs[FieldTel] = "Phone number is not valid"
	}
	if strings.TrimSpace(f.Address) == "" {
		errs[FieldAddress] = "Address is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (f Fields) order() api.OrderRequest {
	return api.OrderRequest{
		User: api.User{
			Email:   strings.TrimSpace(f.Email),
			Name:    strings.TrimSpace(f.Name),
			Tel:     strings.TrimSpace(f.Tel),
			Address: strings.TrimSpace(f.Address),
		},
		Message: f.Message,
	}
}

// Session is the part of a cart session the form submits through.
type Session interface {
	CanCheckout() bool
	Checkout(ctx context.Context, order api.OrderRequest, onAccepted func()) (api.OrderResult, error)
}

// Form holds what the shopper typed. Errors are only reported for fields
// the shopper has touched, or for every field after a submit attempt.
type Form struct {
	session Session

	mu      sync.RWMutex
	fields  Fields
	touched map[Field]bool
}

func NewForm(s Session) *Form {
	return &Form{session: s, touched: map[Field]bool{}}
}

// Set updates one field and marks it touched.
func (f *Form) Set(field Field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case FieldEmail:
		f.fields.Email = value
	case FieldName:
		f.fields.Name = value
	case FieldTel:
		f.fields.Tel = value
	case FieldAddress:
		f.fields.Address = value
	case FieldMessage:
		f.fields.Message = value
	default:
		return
	}
	f.touched[field] = true
}

func (f *Form) Fields() Fields {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fields
}

// Errors returns the validation errors of touched fields.
func (f *Form) Errors() ValidationErrors {
	f.mu.RLock()
	defer f.mu.RUnlock()
	all := f.fields.Validate()
	out := ValidationErrors{}
	for field, msg := range all {
		if f.touched[field] {
			out[field] = msg
		}
	}
	return out
}

// CanSubmit is false while the cart is empty, whatever the fields hold.
func (f *Form) CanSubmit() bool {
	return f.session.CanCheckout()
}

// Submit validates and places the order. An empty cart blocks it with
// cart.ErrEmptyCart, invalid fields with ValidationErrors; neither sends a
// request. The form is reset only when the order is accepted.
func (f *Form) Submit(ctx context.Context) (api.OrderResult, error) {
	if !f.CanSubmit() {
		return api.OrderResult{}, cart.ErrEmptyCart
	}

	f.mu.Lock()
	for _, field := range []Field{FieldEmail, FieldName, FieldTel, FieldAddress} {
		f.touched[field] = true
	}
	fields := f.fields
	f.mu.Unlock()

	if errs := fields.Validate(); errs != nil {
		return api.OrderResult{}, errs
	}
	return f.session.Checkout(ctx, fields.order(), f.Reset)
}

func (f *Form) Reset() {
	f.mu.Lock()
	f.fields = Fields{}
	f.touched = map[Field]bool{}
	f.mu.Unlock()
}
