package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ecocart/storefront/internal/domain"
)

const requestTimeout = 5 * time.Second

// HTTPBackend calls the storefront API. The bearer token from Login is kept
// for later calls.
type HTTPBackend struct {
	baseURL string
	client  *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPBackend(baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (b *HTTPBackend) Mode() Mode { return ModeLive }

func (b *HTTPBackend) SetToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

func (b *HTTPBackend) Token() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

func (b *HTTPBackend) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return b.do(ctx, http.MethodPost, "/users/register", body, nil)
}

func (b *HTTPBackend) Login(ctx context.Context, email, password string) (*domain.PublicUser, error) {
	var resp struct {
		Token string            `json:"token"`
		User  domain.PublicUser `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := b.do(ctx, http.MethodPost, "/users/login", body, &resp); err != nil {
		return nil, err
	}
	b.SetToken(resp.Token)
	return &resp.User, nil
}

func (b *HTTPBackend) Products(ctx context.Context, query url.Values) ([]domain.Product, error) {
	path := "/products"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var products []domain.Product
	if err := b.do(ctx, http.MethodGet, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (b *HTTPBackend) Cart(ctx context.Context) (*domain.CartView, error) {
	return b.cartCall(ctx, http.MethodGet, "/cart", nil)
}

func (b *HTTPBackend) AddToCart(ctx context.Context, productID string, quantity int) (*domain.CartView, error) {
	body := map[string]any{"productId": productID, "quantity": quantity}
	return b.cartCall(ctx, http.MethodPost, "/cart/add", body)
}

func (b *HTTPBackend) UpdateCartItem(ctx context.Context, productID string, quantity int) (*domain.CartView, error) {
	body := map[string]int{"quantity": quantity}
	return b.cartCall(ctx, http.MethodPatch, "/cart/update/"+url.PathEscape(productID), body)
}

func (b *HTTPBackend) RemoveFromCart(ctx context.Context, productID string) (*domain.CartView, error) {
	return b.cartCall(ctx, http.MethodDelete, "/cart/remove/"+url.PathEscape(productID), nil)
}

func (b *HTTPBackend) ClearCart(ctx context.Context) error {
	return b.do(ctx, http.MethodDelete, "/cart/clear", nil, nil)
}

func (b *HTTPBackend) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*PlacedOrder, error) {
	var order PlacedOrder
	if err := b.do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (b *HTTPBackend) BeginCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	var result domain.CheckoutResult
	if err := b.do(ctx, http.MethodPost, "/payments/create-checkout-session", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (b *HTTPBackend) ConfirmPayment(ctx context.Context, req domain.ConfirmRequest) (*domain.ConfirmResult, error) {
	var result domain.ConfirmResult
	if err := b.do(ctx, http.MethodPost, "/payments/confirm-payment", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (b *HTTPBackend) cartCall(ctx context.Context, method, path string, body any) (*domain.CartView, error) {
	var view domain.CartView
	if err := b.do(ctx, method, path, body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := b.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}

	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "application/json" {
		return fmt.Errorf("%w: content type %q", errMalformedResponse, resp.Header.Get("Content-Type"))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
