package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/orders"
)

// DemoOrderID identifies every order placed in demo mode.
const DemoOrderID = "DEMO123"

// DemoBackend simulates the storefront locally. Nothing is persisted and no
// payment is ever settled; results are marked Demo.
type DemoBackend struct {
	mu       sync.Mutex
	user     domain.PublicUser
	token    string
	products []domain.Product
	byID     map[primitive.ObjectID]*domain.Product
	cart     domain.Cart
}

func NewDemoBackend() *DemoBackend {
	d := &DemoBackend{
		user: domain.PublicUser{
			ID:    primitive.NewObjectID(),
			Name:  "Demo User",
			Email: "demo@example.com",
		},
		token:    "demo-token-" + uuid.NewString(),
		products: demoCatalog(),
		byID:     make(map[primitive.ObjectID]*domain.Product),
		cart:     domain.Cart{Items: []domain.CartItem{}},
	}
	for i := range d.products {
		d.byID[d.products[i].ID] = &d.products[i]
	}
	return d
}

func (d *DemoBackend) Mode() Mode { return ModeDemo }

// Token is a placeholder bearer value; the API never accepts it.
func (d *DemoBackend) Token() string { return d.token }

func (d *DemoBackend) Register(context.Context, string, string, string) error {
	return nil
}

func (d *DemoBackend) Login(context.Context, string, string) (*domain.PublicUser, error) {
	user := d.user
	return &user, nil
}

func (d *DemoBackend) Products(_ context.Context, query url.Values) ([]domain.Product, error) {
	category := query.Get("category")
	search := strings.ToLower(query.Get("search"))

	out := []domain.Product{}
	for _, p := range d.products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *DemoBackend) Cart(context.Context) (*domain.CartView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view(), nil
}

func (d *DemoBackend) AddToCart(_ context.Context, productID string, quantity int) (*domain.CartView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	product, err := d.lookup(productID)
	if err != nil {
		return nil, err
	}
	if err := d.cart.Add(product.ID, quantity); err != nil {
		return nil, err
	}
	return d.view(), nil
}

func (d *DemoBackend) UpdateCartItem(_ context.Context, productID string, quantity int) (*domain.CartView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, domain.ErrCartItemNotFound
	}
	if err := d.cart.SetQuantity(id, quantity); err != nil {
		return nil, err
	}
	return d.view(), nil
}

func (d *DemoBackend) RemoveFromCart(_ context.Context, productID string) (*domain.CartView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, err := primitive.ObjectIDFromHex(productID); err == nil {
		d.cart.Remove(id)
	}
	return d.view(), nil
}

func (d *DemoBackend) ClearCart(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cart.Clear()
	return nil
}

func (d *DemoBackend) CreateOrder(_ context.Context, req domain.CreateOrderRequest) (*PlacedOrder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, total, err := orders.PriceItems(req.Items, d.byID)
	if err != nil {
		return nil, err
	}
	if req.Total != nil && !req.Total.Equal(total) {
		return nil, domain.ErrTotalMismatch
	}
	return &PlacedOrder{ID: DemoOrderID, Total: total, Status: domain.OrderStatusPending}, nil
}

// BeginCheckout accepts any valid method and redirects straight to the
// success page. The cart is emptied as after a real settled checkout.
func (d *DemoBackend) BeginCheckout(_ context.Context, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.cart.Clear()
	d.mu.Unlock()

	return &domain.CheckoutResult{
		Success:     true,
		RedirectURL: fmt.Sprintf("/payment-success?order_id=%s&method=%s", DemoOrderID, method),
		Demo:        true,
	}, nil
}

func (d *DemoBackend) ConfirmPayment(context.Context, domain.ConfirmRequest) (*domain.ConfirmResult, error) {
	return &domain.ConfirmResult{Success: true, Demo: true}, nil
}

func (d *DemoBackend) lookup(productID string) (*domain.Product, error) {
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, domain.ErrProductNotFound
	}
	product, ok := d.byID[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (d *DemoBackend) view() *domain.CartView {
	view := &domain.CartView{Items: []domain.CartLine{}, Total: decimal.Zero}
	for _, item := range d.cart.Items {
		product := d.byID[item.ProductID]
		view.Items = append(view.Items, domain.CartLine{Product: product, Quantity: item.Quantity})
		view.Total = view.Total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return view
}

func demoCatalog() []domain.Product {
	product := func(name, brand, category, price string, rating domain.EcoRating, featured bool) domain.Product {
		return domain.Product{
			ID:        primitive.NewObjectID(),
			Name:      name,
			Brand:     brand,
			Category:  category,
			Price:     decimal.RequireFromString(price),
			EcoRating: rating,
			Featured:  featured,
			InStock:   true,
		}
	}
	return []domain.Product{
		product("Organic Cotton T-Shirt", "EcoWear", "Clothing", "35.00", domain.EcoRatingA, true),
		product("Bamboo Toothbrush Set", "GreenHome", "Home", "14.99", domain.EcoRatingA, true),
		product("Recycled Glass Water Bottle", "TerraCycle", "Home", "24.99", domain.EcoRatingA, false),
		product("Organic Lip Balm", "NaturalBeauty", "Beauty", "8.99", domain.EcoRatingB, false),
	}
}
