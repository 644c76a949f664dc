package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers all projection routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/projections", func(r chi.Router) {
		// The websocket upgrade must not go through the compressor
		r.Get("/stream", h.HandleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			r.Post("/", h.HandleCreate)
			r.Get("/", h.HandleList)
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGet(w, r, chi.URLParam(r, "id"))
			})
			r.Get("/{id}/records", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetRecords(w, r, chi.URLParam(r, "id"))
			})
			r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleDelete(w, r, chi.URLParam(r, "id"))
			})
			r.Post("/{id}/archive", func(w http.ResponseWriter, r *http.Request) {
				h.HandleArchive(w, r, chi.URLParam(r, "id"))
			})
		})
	})
}
