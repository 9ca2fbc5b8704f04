//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ecocart/storefront/internal/api"
	"github.com/ecocart/storefront/internal/auth"
	"github.com/ecocart/storefront/internal/cart"
	"github.com/ecocart/storefront/internal/catalog"
	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/messaging"
	"github.com/ecocart/storefront/internal/orders"
	"github.com/ecocart/storefront/internal/payments"
	"github.com/ecocart/storefront/internal/store"
	"github.com/ecocart/storefront/internal/users"
	"github.com/ecocart/storefront/internal/worker"
)

type stack struct {
	server   *httptest.Server
	payments *payments.PaymentRepository
	orders   *orders.OrderRepository
}

func newStack(t *testing.T, db *mongo.Database, publisher messaging.Publisher) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	userRepo := users.NewUserRepository(db)
	productRepo := catalog.NewProductRepository(db)
	cartRepo := cart.NewCartRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	paymentRepo := payments.NewPaymentRepository(db)

	svc, err := payments.NewService(payments.Config{Currency: "usd", PublicOrigin: "http://localhost:8080"}, payments.Deps{
		Provider:  payments.NewProvider(""),
		Orders:    orderRepo,
		Payments:  paymentRepo,
		Carts:     cartRepo,
		Users:     userRepo,
		Publisher: publisher,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create payment service: %v", err)
	}

	tokens := auth.NewTokens("integration-secret")
	mux := api.NewRouter(api.Handlers{
		Auth:     auth.NewMiddleware(tokens, userRepo, logger),
		Users:    users.NewHandler(userRepo, tokens, logger),
		Catalog:  catalog.NewHandler(productRepo, logger),
		Cart:     cart.NewHandler(cartRepo, productRepo, logger),
		Orders:   orders.NewHandler(orderRepo, productRepo, publisher, logger),
		Payments: payments.NewHandler(svc, logger),
		Logger:   logger,
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &stack{server: server, payments: paymentRepo, orders: orderRepo}
}

func (s *stack) call(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type session struct {
	token  string
	userID primitive.ObjectID
}

func (s *stack) signUp(t *testing.T, email string) session {
	t.Helper()

	status := s.call(t, http.MethodPost, "/users/register", "",
		map[string]string{"name": "Test User", "email": email, "password": "secret123"}, nil)
	if status != http.StatusCreated {
		t.Fatalf("expected register status %d, got %d", http.StatusCreated, status)
	}

	var login struct {
		Token string            `json:"token"`
		User  domain.PublicUser `json:"user"`
	}
	status = s.call(t, http.MethodPost, "/users/login", "",
		map[string]string{"email": email, "password": "secret123"}, &login)
	if status != http.StatusOK {
		t.Fatalf("expected login status %d, got %d", http.StatusOK, status)
	}
	return session{token: login.Token, userID: login.User.ID}
}

func insertProduct(ctx context.Context, t *testing.T, db *mongo.Database, name, price string) primitive.ObjectID {
	t.Helper()

	product := domain.Product{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Category:  "Test",
		Price:     decimal.RequireFromString(price),
		EcoRating: domain.EcoRatingA,
		InStock:   true,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := db.Collection(store.ProductsCollection).InsertOne(ctx, product); err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}
	return product.ID
}

// placeOrder fills the cart with p1 x2 and p2 x1 and orders it for 25.00.
func (s *stack) placeOrder(ctx context.Context, t *testing.T, db *mongo.Database, sess session) domain.Order {
	t.Helper()

	p1 := insertProduct(ctx, t, db, "Bamboo Toothbrush", "10.00")
	p2 := insertProduct(ctx, t, db, "Beeswax Wrap", "5.00")

	for _, add := range []struct {
		id  primitive.ObjectID
		qty int
	}{{p1, 1}, {p1, 1}, {p2, 1}} {
		status := s.call(t, http.MethodPost, "/cart/add", sess.token,
			map[string]any{"productId": add.id.Hex(), "quantity": add.qty}, nil)
		if status != http.StatusOK {
			t.Fatalf("expected add status %d, got %d", http.StatusOK, status)
		}
	}

	var view domain.CartView
	s.call(t, http.MethodGet, "/cart", sess.token, nil, &view)
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 cart lines after merge, got %d", len(view.Items))
	}

	var order domain.Order
	status := s.call(t, http.MethodPost, "/orders", sess.token, map[string]any{
		"items": []map[string]any{
			{"product": p1.Hex(), "quantity": 2},
			{"product": p2.Hex(), "quantity": 1},
		},
		"total": "25.00",
	}, &order)
	if status != http.StatusCreated {
		t.Fatalf("expected order status %d, got %d", http.StatusCreated, status)
	}
	if !order.Total.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected total 25.00, got %s", order.Total)
	}
	return order
}

func TestCashOnDeliveryCheckout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	mg := SetupMongo(ctx, t)
	defer mg.Cleanup()

	s := newStack(t, mg.DB, nil)
	sess := s.signUp(t, "cod@example.com")
	order := s.placeOrder(ctx, t, mg.DB, sess)

	var result domain.CheckoutResult
	status := s.call(t, http.MethodPost, "/payments/create-checkout-session", sess.token,
		domain.CheckoutRequest{OrderID: order.ID.Hex(), PaymentMethod: "cod"}, &result)
	if status != http.StatusOK {
		t.Fatalf("expected checkout status %d, got %d", http.StatusOK, status)
	}
	if !strings.Contains(result.RedirectURL, order.ID.Hex()) || !strings.Contains(result.RedirectURL, "method=cod") {
		t.Fatalf("unexpected redirect %q", result.RedirectURL)
	}

	stored, err := s.orders.GetByID(ctx, order.ID.Hex())
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if stored.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected order status %s, got %s", domain.OrderStatusProcessing, stored.Status)
	}

	payment, err := s.payments.FindForOrder(ctx, order.ID, sess.userID, domain.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("failed to fetch payment: %v", err)
	}
	if payment == nil {
		t.Fatal("payment not found in database")
	}
	if payment.Status != domain.PaymentStatusPending {
		t.Fatalf("expected payment status %s, got %s", domain.PaymentStatusPending, payment.Status)
	}
	if !payment.Amount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected amount 25.00, got %s", payment.Amount)
	}

	var view domain.CartView
	s.call(t, http.MethodGet, "/cart", sess.token, nil, &view)
	if len(view.Items) != 0 {
		t.Fatalf("expected empty cart after checkout, got %d lines", len(view.Items))
	}

	var confirm domain.ConfirmResult
	status = s.call(t, http.MethodPost, "/payments/confirm-payment", sess.token,
		domain.ConfirmRequest{OrderID: order.ID.Hex(), PaymentMethod: "cod"}, &confirm)
	if status != http.StatusOK || !confirm.Success {
		t.Fatalf("expected successful confirmation, got status %d", status)
	}

	payment, err = s.payments.FindForOrder(ctx, order.ID, sess.userID, domain.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("failed to fetch payment: %v", err)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		t.Fatalf("expected payment status %s, got %s", domain.PaymentStatusCompleted, payment.Status)
	}
}

func TestMockCardCheckout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	mg := SetupMongo(ctx, t)
	defer mg.Cleanup()

	s := newStack(t, mg.DB, nil)
	sess := s.signUp(t, "card@example.com")
	order := s.placeOrder(ctx, t, mg.DB, sess)

	var result domain.CheckoutResult
	status := s.call(t, http.MethodPost, "/payments/create-checkout-session", sess.token,
		domain.CheckoutRequest{OrderID: order.ID.Hex(), PaymentMethod: "card"}, &result)
	if status != http.StatusOK {
		t.Fatalf("expected checkout status %d, got %d", http.StatusOK, status)
	}
	if !result.Mock || result.URL == "" || result.SessionID == "" {
		t.Fatalf("expected mock session, got %+v", result)
	}

	payment, err := s.payments.FindForOrder(ctx, order.ID, sess.userID, domain.PaymentMethodCard)
	if err != nil {
		t.Fatalf("failed to fetch payment: %v", err)
	}
	if payment == nil || payment.Status != domain.PaymentStatusCompleted {
		t.Fatalf("expected completed card payment, got %+v", payment)
	}

	status = s.call(t, http.MethodPost, "/payments/confirm-payment", sess.token,
		domain.ConfirmRequest{SessionID: result.SessionID}, nil)
	if status != http.StatusOK {
		t.Fatalf("expected confirm status %d, got %d", http.StatusOK, status)
	}
}

func TestCheckoutUnknownOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	mg := SetupMongo(ctx, t)
	defer mg.Cleanup()

	s := newStack(t, mg.DB, nil)
	sess := s.signUp(t, "missing@example.com")

	status := s.call(t, http.MethodPost, "/payments/create-checkout-session", sess.token,
		domain.CheckoutRequest{OrderID: primitive.NewObjectID().Hex(), PaymentMethod: "cod"}, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}

	count, err := mg.DB.Collection(store.PaymentsCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("failed to count payments: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no payments, got %d", count)
	}
}

func TestActivePaymentIndex(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	mg := SetupMongo(ctx, t)
	defer mg.Cleanup()

	repo := payments.NewPaymentRepository(mg.DB)
	orderID := primitive.NewObjectID()

	newPayment := func(status domain.PaymentStatus) *domain.Payment {
		return &domain.Payment{
			UserID:  primitive.NewObjectID(),
			OrderID: orderID,
			Amount:  decimal.RequireFromString("25.00"),
			Method:  domain.PaymentMethodUPI,
			Status:  status,
		}
	}

	if err := repo.Create(ctx, newPayment(domain.PaymentStatusPending)); err != nil {
		t.Fatalf("failed to create first payment: %v", err)
	}
	if err := repo.Create(ctx, newPayment(domain.PaymentStatusPending)); !errors.Is(err, domain.ErrPaymentExists) {
		t.Fatalf("expected ErrPaymentExists for second pending payment, got %v", err)
	}
	if err := repo.Create(ctx, newPayment(domain.PaymentStatusCompleted)); !errors.Is(err, domain.ErrPaymentExists) {
		t.Fatalf("expected ErrPaymentExists for completed payment next to a pending one, got %v", err)
	}
	failed := newPayment(domain.PaymentStatusFailed)
	if err := repo.Create(ctx, failed); err != nil {
		t.Fatalf("failed payments are not limited: %v", err)
	}
	if _, err := repo.Reinstate(ctx, failed.ID); !errors.Is(err, domain.ErrPaymentExists) {
		t.Fatalf("expected ErrPaymentExists reinstating next to a pending payment, got %v", err)
	}

	// Two settled checkouts racing past the active payment lookup.
	settledOrder := primitive.NewObjectID()
	settled := func() *domain.Payment {
		p := newPayment(domain.PaymentStatusCompleted)
		p.OrderID = settledOrder
		return p
	}
	if err := repo.Create(ctx, settled()); err != nil {
		t.Fatalf("failed to create completed payment: %v", err)
	}
	if err := repo.Create(ctx, settled()); !errors.Is(err, domain.ErrPaymentExists) {
		t.Fatalf("expected ErrPaymentExists for second completed payment, got %v", err)
	}
}

func TestSeededCatalog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	mg := SetupMongo(ctx, t)
	defer mg.Cleanup()

	s := newStack(t, mg.DB, nil)

	var products []domain.Product
	if status := s.call(t, http.MethodGet, "/products?category=home&rating=A", "", nil, &products); status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if len(products) == 0 {
		t.Fatal("expected seeded home products")
	}
	for _, p := range products {
		if p.Category != "Home" || p.EcoRating != domain.EcoRatingA {
			t.Fatalf("filter returned %s (%s, %s)", p.Name, p.Category, p.EcoRating)
		}
		if p.Price.IsZero() {
			t.Fatalf("expected decimal price for %s", p.Name)
		}
	}
}

type emailCapture struct {
	mu     sync.Mutex
	emails []map[string]string
}

func (e *emailCapture) handler(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	e.mu.Lock()
	e.emails = append(e.emails, req)
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"sent"}`)
}

func (e *emailCapture) getEmails() []map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]map[string]string, len(e.emails))
	copy(result, e.emails)
	return result
}

func TestPaymentCompletedSendsReceipt(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	mg := SetupMongo(ctx, t)
	defer mg.Cleanup()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	producer := messaging.NewProducer(brokers)
	defer func() { _ = producer.Close() }()

	s := newStack(t, mg.DB, producer)
	sess := s.signUp(t, "receipt@example.com")
	order := s.placeOrder(ctx, t, mg.DB, sess)

	status := s.call(t, http.MethodPost, "/payments/create-checkout-session", sess.token,
		domain.CheckoutRequest{OrderID: order.ID.Hex(), PaymentMethod: "upi"}, nil)
	if status != http.StatusOK {
		t.Fatalf("expected checkout status %d, got %d", http.StatusOK, status)
	}
	status = s.call(t, http.MethodPost, "/payments/confirm-payment", sess.token,
		domain.ConfirmRequest{OrderID: order.ID.Hex(), PaymentMethod: "upi"}, nil)
	if status != http.StatusOK {
		t.Fatalf("expected confirm status %d, got %d", http.StatusOK, status)
	}

	emailCap := &emailCapture{}
	emailMux := http.NewServeMux()
	emailMux.HandleFunc("POST /send", emailCap.handler)
	emailServer := httptest.NewServer(emailMux)
	defer emailServer.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	receipts := worker.NewReceiptHandler(emailServer.URL, &http.Client{Timeout: 10 * time.Second}, logger)
	consumer := messaging.NewConsumer(brokers, domain.TopicPaymentCompleted, "receipt-worker-test", logger,
		messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	consumeCtx, stopConsuming := context.WithCancel(ctx)
	defer stopConsuming()
	go func() { _ = consumer.Consume(consumeCtx, receipts.Handle) }()

	deadline := time.After(time.Minute)
	for len(emailCap.getEmails()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for receipt email")
		case <-time.After(200 * time.Millisecond):
		}
	}

	email := emailCap.getEmails()[0]
	if email["to"] != "receipt@example.com" {
		t.Fatalf("expected receipt to receipt@example.com, got %q", email["to"])
	}
	if !strings.Contains(email["subject"], order.ID.Hex()) {
		t.Fatalf("expected subject to contain order ID %s, got %q", order.ID.Hex(), email["subject"])
	}
}
