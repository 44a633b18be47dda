package billing

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.Post("/quote", h.Quote)
		r.Post("/items/resolve", h.ResolveItem)
		r.Get("/taxes/{ref}", h.ShowTax)
		r.Get("/currencies/{ref}", h.ShowCurrency)
		r.Get("/products/{ref}", h.ShowProduct)
	})
}
