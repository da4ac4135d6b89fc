package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/pharmacy-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины аптеки.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Get("/session", h.GetSession)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)
				r.Post("/logout", h.Logout)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/", h.CreateOrder)
			r.Get("/", h.GetOrders)
			r.Get("/current", h.GetCurrentOrder)
			r.Delete("/current", h.ClearCurrentOrder)
			r.Get("/number/{number}", h.TrackOrder)
			r.Patch("/{orderID}/status", h.UpdateOrderStatus)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/", h.GetCart)
			r.Post("/", h.AddCartItem)
			r.Delete("/", h.ClearCart)
			r.Patch("/{productID}", h.UpdateCartQuantity)
			r.Delete("/{productID}", h.RemoveCartItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/", h.GetWishlist)
			r.Post("/", h.AddWishlistItem)
			r.Delete("/{productID}", h.RemoveWishlistItem)
			r.Post("/{productID}/toggle", h.ToggleWishlistItem)
		})

		r.Route("/announcements", func(r chi.Router) {
			r.Get("/", h.GetAnnouncements)
			r.Get("/stream", h.StreamAnnouncements)
		})

		r.Route("/admin/announcements", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/", h.CreateAnnouncement)
			r.Delete("/{id}", h.DeleteAnnouncement)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func routeParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
