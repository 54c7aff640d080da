package catalog

import "github.com/ariefcatur/go-storefront/internal/api"

// Modal is the product detail overlay.
type Modal struct {
	Open    bool
	Product api.Product
	Qty     int
}

// Images returns the main image followed by the extra ones.
func (m Modal) Images() []string {
	var out []string
	if m.Product.ImageURL != "" {
		out = append(out, m.Product.ImageURL)
	}
	return append(out, m.Product.ImagesURL...)
}
