package quotations

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/quotations", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Show)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/status", h.ChangeStatus)
			r.Post("/versions", h.CreateVersion)
			r.Get("/versions", h.ListVersions)
			r.Get("/versions/compare/{otherID}", h.CompareVersions)
			r.Get("/copy", h.PrepareForCopy)
		})
	})
}
