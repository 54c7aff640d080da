package httpx

import (
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/shop"
)

func toAPIProduct(p shop.Product) api.Product {
	enabled := 0
	if p.Enabled {
		enabled = 1
	}
	return api.Product{
		ID:          p.ID,
		Title:       p.Title,
		Category:    p.Category,
		OriginPrice: p.OriginPrice,
		Price:       p.Price,
		Unit:        p.Unit,
		Description: p.Description,
		Content:     p.Content,
		IsEnabled:   enabled,
		ImageURL:    p.ImageURL,
		ImagesURL:   p.ImagesURL,
	}
}

func fromAPIProduct(id string, p api.Product) shop.Product {
	return shop.Product{
		ID:          id,
		Title:       p.Title,
		Category:    p.Category,
		OriginPrice: p.OriginPrice,
		Price:       p.Price,
		Unit:        p.Unit,
		Description: p.Description,
		Content:     p.Content,
		Enabled:     p.IsEnabled == 1,
		ImageURL:    p.ImageURL,
		ImagesURL:   p.ImagesURL,
	}
}

func toAPICart(c shop.Cart) api.Cart {
	out := api.Cart{Carts: make([]api.CartLine, 0, len(c.Lines))}
	for _, l := range c.Lines {
		total := l.Total()
		out.Carts = append(out.Carts, api.CartLine{
			ID:         l.ID,
			ProductID:  l.ProductID,
			Qty:        l.Qty,
			Total:      total,
			FinalTotal: total,
			Product:    toAPIProduct(l.Product),
		})
	}
	out.Total = c.Total()
	out.FinalTotal = out.Total
	return out
}
