// Package client talks to the storefront API and falls back to a local demo
// simulation when the API cannot be reached.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/ecocart/storefront/internal/domain"
)

type Mode string

const (
	ModeLive Mode = "live"
	ModeDemo Mode = "demo"
)

type Backend interface {
	Mode() Mode
	Register(ctx context.Context, name, email, password string) error
	Login(ctx context.Context, email, password string) (*domain.PublicUser, error)
	Products(ctx context.Context, query url.Values) ([]domain.Product, error)
	Cart(ctx context.Context) (*domain.CartView, error)
	AddToCart(ctx context.Context, productID string, quantity int) (*domain.CartView, error)
	UpdateCartItem(ctx context.Context, productID string, quantity int) (*domain.CartView, error)
	RemoveFromCart(ctx context.Context, productID string) (*domain.CartView, error)
	ClearCart(ctx context.Context) error
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*PlacedOrder, error)
	BeginCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutResult, error)
	ConfirmPayment(ctx context.Context, req domain.ConfirmRequest) (*domain.ConfirmResult, error)
}

// PlacedOrder is the part of a created order the client acts on. The id is a
// string so demo orders can use a non-database identifier.
type PlacedOrder struct {
	ID     string             `json:"_id"`
	Total  decimal.Decimal    `json:"total"`
	Status domain.OrderStatus `json:"status"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

var errMalformedResponse = errors.New("malformed api response")

// Unavailable reports whether err means the API could not be reached, as
// opposed to the API rejecting the request.
func Unavailable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if errors.Is(err, errMalformedResponse) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
