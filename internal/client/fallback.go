package client

import (
	"context"
	"net/url"
	"sync"

	"github.com/ecocart/storefront/internal/domain"
)

// FallbackBackend sends calls to the live backend until the API is found
// unreachable, then serves the rest of the session from the demo backend.
// onDemo is called once, on the switch.
type FallbackBackend struct {
	live   Backend
	demo   Backend
	onDemo func(reason error)

	mu     sync.Mutex
	inDemo bool
}

func NewFallbackBackend(live, demo Backend, onDemo func(reason error)) *FallbackBackend {
	return &FallbackBackend{live: live, demo: demo, onDemo: onDemo}
}

func (f *FallbackBackend) Mode() Mode {
	return f.current().Mode()
}

func (f *FallbackBackend) current() Backend {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inDemo {
		return f.demo
	}
	return f.live
}

// switchToDemo reports whether err should move the session to demo mode.
// Errors after the caller's own context ended never do.
func (f *FallbackBackend) switchToDemo(ctx context.Context, err error) bool {
	if ctx.Err() != nil || !Unavailable(err) {
		return false
	}

	f.mu.Lock()
	first := !f.inDemo
	f.inDemo = true
	f.mu.Unlock()

	if first && f.onDemo != nil {
		f.onDemo(err)
	}
	return true
}

func call[T any](ctx context.Context, f *FallbackBackend, fn func(Backend) (T, error)) (T, error) {
	backend := f.current()
	out, err := fn(backend)
	if err != nil && backend == f.live && f.switchToDemo(ctx, err) {
		return fn(f.demo)
	}
	return out, err
}

func (f *FallbackBackend) Register(ctx context.Context, name, email, password string) error {
	_, err := call(ctx, f, func(b Backend) (struct{}, error) {
		return struct{}{}, b.Register(ctx, name, email, password)
	})
	return err
}

func (f *FallbackBackend) Login(ctx context.Context, email, password string) (*domain.PublicUser, error) {
	return call(ctx, f, func(b Backend) (*domain.PublicUser, error) {
		return b.Login(ctx, email, password)
	})
}

func (f *FallbackBackend) Products(ctx context.Context, query url.Values) ([]domain.Product, error) {
	return call(ctx, f, func(b Backend) ([]domain.Product, error) {
		return b.Products(ctx, query)
	})
}

func (f *FallbackBackend) Cart(ctx context.Context) (*domain.CartView, error) {
	return call(ctx, f, func(b Backend) (*domain.CartView, error) {
		return b.Cart(ctx)
	})
}

func (f *FallbackBackend) AddToCart(ctx context.Context, productID string, quantity int) (*domain.CartView, error) {
	return call(ctx, f, func(b Backend) (*domain.CartView, error) {
		return b.AddToCart(ctx, productID, quantity)
	})
}

func (f *FallbackBackend) UpdateCartItem(ctx context.Context, productID string, quantity int) (*domain.CartView, error) {
	return call(ctx, f, func(b Backend) (*domain.CartView, error) {
		return b.UpdateCartItem(ctx, productID, quantity)
	})
}

func (f *FallbackBackend) RemoveFromCart(ctx context.Context, productID string) (*domain.CartView, error) {
	return call(ctx, f, func(b Backend) (*domain.CartView, error) {
		return b.RemoveFromCart(ctx, productID)
	})
}

func (f *FallbackBackend) ClearCart(ctx context.Context) error {
	_, err := call(ctx, f, func(b Backend) (struct{}, error) {
		return struct{}{}, b.ClearCart(ctx)
	})
	return err
}

func (f *FallbackBackend) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*PlacedOrder, error) {
	return call(ctx, f, func(b Backend) (*PlacedOrder, error) {
		return b.CreateOrder(ctx, req)
	})
}

func (f *FallbackBackend) BeginCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	return call(ctx, f, func(b Backend) (*domain.CheckoutResult, error) {
		return b.BeginCheckout(ctx, req)
	})
}

func (f *FallbackBackend) ConfirmPayment(ctx context.Context, req domain.ConfirmRequest) (*domain.ConfirmResult, error) {
	return call(ctx, f, func(b Backend) (*domain.ConfirmResult, error) {
		return b.ConfirmPayment(ctx, req)
	})
}
