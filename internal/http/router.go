package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Handlers struct {
	Users    *UsersHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
}

func NewRouter(cfg RouterConfig, h Handlers, auth Authenticator, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", h.Users.Register)
		r.Post("/login", h.Users.Login)
		r.Post("/forgotPassword", h.Users.ForgotPassword)
		r.Post("/resetPassword", h.Users.ResetPassword)

		// the payment processor redirects the browser here without a bearer token
		r.Get("/checkout/success", h.Checkout.CheckoutSuccess)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(auth))
			r.Post("/logout", h.Users.Logout)
			r.Get("/isauth", h.Users.IsAuth)
			r.Post("/checkout", h.Checkout.Checkout)
			r.Get("/orders", h.Orders.ListOrders)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
