package api

import (
	"log/slog"
	"net/http"

	"github.com/ecocart/storefront/internal/auth"
	"github.com/ecocart/storefront/internal/cart"
	"github.com/ecocart/storefront/internal/catalog"
	"github.com/ecocart/storefront/internal/orders"
	"github.com/ecocart/storefront/internal/payments"
	"github.com/ecocart/storefront/internal/telemetry"
	"github.com/ecocart/storefront/internal/users"
	"github.com/ecocart/storefront/internal/web"
)

type Handlers struct {
	Auth     *auth.Middleware
	Users    *users.Handler
	Catalog  *catalog.Handler
	Cart     *cart.Handler
	Orders   *orders.Handler
	Payments *payments.Handler
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter registers the storefront REST surface. Paths carry no /api
// prefix; the gateway strips it before forwarding.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	route := func(pattern string, handler http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(handler))
	}
	protected := func(pattern string, handler http.HandlerFunc) {
		route(pattern, h.Auth.Require(handler))
	}

	route("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		web.WriteJSON(w, h.Logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	route("POST /users/register", h.Users.HandleRegister)
	route("POST /users/login", h.Users.HandleLogin)
	protected("GET /users/verify", h.Users.HandleVerify)
	protected("GET /users/profile", h.Users.HandleGetProfile)
	protected("PUT /users/profile", h.Users.HandleUpdateProfile)
	protected("PUT /users/address", h.Users.HandleUpdateAddress)

	route("GET /products", h.Catalog.HandleList)
	route("GET /products/featured", h.Catalog.HandleFeatured)
	route("GET /products/eco-alternatives", h.Catalog.HandleEcoAlternatives)
	route("GET /products/{id}", h.Catalog.HandleGet)
	route("GET /products/alternatives/{id}", h.Catalog.HandleAlternatives)

	protected("GET /cart", h.Cart.HandleGet)
	protected("PUT /cart", h.Cart.HandleReplace)
	protected("POST /cart/add", h.Cart.HandleAdd)
	protected("PATCH /cart/update/{productId}", h.Cart.HandleUpdate)
	protected("DELETE /cart/remove/{productId}", h.Cart.HandleRemove)
	protected("DELETE /cart/clear", h.Cart.HandleClear)

	protected("POST /orders", h.Orders.HandleCreate)
	protected("GET /orders", h.Orders.HandleList)
	protected("GET /orders/{id}", h.Orders.HandleGet)

	protected("POST /payments/create-checkout-session", h.Payments.HandleCreateCheckoutSession)
	protected("POST /payments/confirm-payment", h.Payments.HandleConfirmPayment)

	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	return mux
}
