package payments

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ecocart/storefront/internal/domain"
)

type memOrders struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*domain.Order
}

func (m *memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	o, ok := m.orders[oid]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) AdvanceStatus(_ context.Context, id primitive.ObjectID, status domain.OrderStatus, method domain.PaymentMethod) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || !o.Status.CanAdvanceTo(status) {
		return false, nil
	}
	o.Status = status
	if method != "" {
		o.PaymentMethod = method
	}
	return true, nil
}

func (m *memOrders) status(id primitive.ObjectID) domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

// memPayments mirrors the partial unique index on active payments per order.
type memPayments struct {
	mu       sync.Mutex
	payments []*domain.Payment
}

func (m *memPayments) Create(_ context.Context, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if isActive(p.Status) && m.hasActive(p.OrderID, primitive.NilObjectID) {
		return domain.ErrPaymentExists
	}
	p.ID = primitive.NewObjectID()
	cp := *p
	m.payments = append(m.payments, &cp)
	return nil
}

func (m *memPayments) Active(_ context.Context, orderID primitive.ObjectID) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range m.payments {
		if p.OrderID == orderID && p.Status != domain.PaymentStatusFailed {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPayments) FindForOrder(_ context.Context, orderID, userID primitive.ObjectID, method domain.PaymentMethod) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.payments) - 1; i >= 0; i-- {
		p := m.payments[i]
		if p.OrderID == orderID && p.UserID == userID && p.Method == method {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memPayments) FindBySession(_ context.Context, sessionID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.SessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memPayments) Complete(_ context.Context, id primitive.ObjectID) (bool, error) {
	return m.transition(id, domain.PaymentStatusPending, domain.PaymentStatusCompleted)
}

func (m *memPayments) Fail(_ context.Context, id primitive.ObjectID) (bool, error) {
	return m.transition(id, domain.PaymentStatusPending, domain.PaymentStatusFailed)
}

func (m *memPayments) Reinstate(_ context.Context, id primitive.ObjectID) (bool, error) {
	return m.transition(id, domain.PaymentStatusFailed, domain.PaymentStatusCompleted)
}

func (m *memPayments) transition(id primitive.ObjectID, from, to domain.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID != id || p.Status != from {
			continue
		}
		if isActive(to) && m.hasActive(p.OrderID, p.ID) {
			return false, domain.ErrPaymentExists
		}
		p.Status = to
		return true, nil
	}
	return false, nil
}

// hasActive reports whether the order has a pending or completed payment
// other than except. Callers hold m.mu.
func (m *memPayments) hasActive(orderID, except primitive.ObjectID) bool {
	for _, p := range m.payments {
		if p.OrderID == orderID && p.ID != except && isActive(p.Status) {
			return true
		}
	}
	return false
}

func isActive(s domain.PaymentStatus) bool {
	return s == domain.PaymentStatusPending || s == domain.PaymentStatusCompleted
}

func (m *memPayments) forOrder(orderID primitive.ObjectID) []domain.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out
}

type memCarts struct {
	mu      sync.Mutex
	cleared []primitive.ObjectID
}

func (m *memCarts) Clear(_ context.Context, userID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, userID)
	return true, nil
}

func (m *memCarts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cleared)
}

// stubProvider behaves like a live card provider: sessions need an external
// step and are paid only when marked so.
type stubProvider struct {
	mu      sync.Mutex
	created []SessionRequest
	paid    map[string]bool
	err     error
}

func (p *stubProvider) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.created = append(p.created, req)
	id := "cs_test_" + primitive.NewObjectID().Hex()
	return &Session{ID: id, URL: "https://checkout.example/" + id}, nil
}

func (p *stubProvider) SessionPaid(_ context.Context, sessionID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return false, p.err
	}
	return p.paid[sessionID], nil
}

func (p *stubProvider) failWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *stubProvider) markPaid(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paid == nil {
		p.paid = make(map[string]bool)
	}
	p.paid[sessionID] = true
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.PaymentCompletedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(domain.PaymentCompletedEvent); ok && topic == domain.TopicPaymentCompleted {
		p.events = append(p.events, e)
	}
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type memUsers map[string]*domain.User

func (m memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	return m[id], nil
}

type harness struct {
	svc       *Service
	orders    *memOrders
	payments  *memPayments
	carts     *memCarts
	publisher *recordingPublisher
	user      *domain.User
}

func newHarness(t *testing.T, provider Provider) *harness {
	t.Helper()
	user := &domain.User{ID: primitive.NewObjectID(), Email: "ada@example.com"}
	h := &harness{
		orders:    &memOrders{orders: make(map[primitive.ObjectID]*domain.Order)},
		payments:  &memPayments{},
		carts:     &memCarts{},
		publisher: &recordingPublisher{},
		user:      user,
	}

	svc, err := NewService(Config{Currency: "usd", PublicOrigin: "http://localhost:8080", AllowedOrigins: []string{"https://shop.example"}}, Deps{
		Provider:  provider,
		Orders:    h.orders,
		Payments:  h.payments,
		Carts:     h.carts,
		Users:     memUsers{user.ID.Hex(): user},
		Publisher: h.publisher,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	h.svc = svc
	return h
}

// addOrder stores a pending order owned by the harness user with total 25.00.
func (h *harness) addOrder() *domain.Order {
	h.orders.mu.Lock()
	defer h.orders.mu.Unlock()
	items := []domain.LineItem{
		{ProductID: primitive.NewObjectID(), Name: "p1", Price: decimal.RequireFromString("10.00"), Quantity: 2},
		{ProductID: primitive.NewObjectID(), Name: "p2", Price: decimal.RequireFromString("5.00"), Quantity: 1},
	}
	o := &domain.Order{
		ID:     primitive.NewObjectID(),
		UserID: h.user.ID,
		Items:  items,
		Total:  domain.SumLineItems(items),
		Status: domain.OrderStatusPending,
	}
	h.orders.orders[o.ID] = o
	return o
}
