package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/messaging"
)

var (
	ErrNoConfirmation        = errors.New("no session id or order information provided")
	ErrAmbiguousConfirmation = errors.New("provide either sessionId or orderId and paymentMethod")
)

type OrderStore interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	AdvanceStatus(ctx context.Context, id primitive.ObjectID, status domain.OrderStatus, method domain.PaymentMethod) (bool, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *domain.Payment) error
	Active(ctx context.Context, orderID primitive.ObjectID) ([]domain.Payment, error)
	FindForOrder(ctx context.Context, orderID, userID primitive.ObjectID, method domain.PaymentMethod) (*domain.Payment, error)
	FindBySession(ctx context.Context, sessionID string) (*domain.Payment, error)
	Complete(ctx context.Context, id primitive.ObjectID) (bool, error)
	Fail(ctx context.Context, id primitive.ObjectID) (bool, error)
	Reinstate(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type CartClearer interface {
	Clear(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type Config struct {
	// Currency is the ISO code sent to the provider, lower case.
	Currency string
	// PublicOrigin is used for provider return URLs unless the request comes
	// from one of AllowedOrigins.
	PublicOrigin   string
	AllowedOrigins []string
}

// Deps are the collaborators of a Service. Users and Publisher are optional.
type Deps struct {
	Provider  Provider
	Orders    OrderStore
	Payments  PaymentStore
	Carts     CartClearer
	Users     UserLookup
	Publisher messaging.Publisher
}

// Service runs checkout and payment confirmation.
type Service struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time

	sessions  metric.Int64Counter
	confirmed metric.Int64Counter
}

func NewService(cfg Config, deps Deps, logger *slog.Logger) (*Service, error) {
	if deps.Provider == nil || deps.Orders == nil || deps.Payments == nil || deps.Carts == nil {
		return nil, errors.New("payments: provider, orders, payments and carts are required")
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}

	meter := otel.Meter("payments")
	sessions, err := meter.Int64Counter("checkout.sessions",
		metric.WithDescription("Checkout attempts by payment method"))
	if err != nil {
		return nil, fmt.Errorf("create checkout counter: %w", err)
	}
	confirmed, err := meter.Int64Counter("payments.confirmed",
		metric.WithDescription("Payments moved to completed"))
	if err != nil {
		return nil, fmt.Errorf("create confirmation counter: %w", err)
	}

	return &Service{
		cfg:       cfg,
		deps:      deps,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		sessions:  sessions,
		confirmed: confirmed,
	}, nil
}

// ownedOrder loads an order the user owns. Orders of other users are
// reported as missing.
func (s *Service) ownedOrder(ctx context.Context, userID primitive.ObjectID, orderID string) (*domain.Order, error) {
	order, err := s.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil || order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) markProcessing(ctx context.Context, orderID primitive.ObjectID, method domain.PaymentMethod) error {
	if _, err := s.deps.Orders.AdvanceStatus(ctx, orderID, domain.OrderStatusProcessing, method); err != nil {
		return fmt.Errorf("advance order %s: %w", orderID.Hex(), err)
	}
	return nil
}

// clearCart empties the buyer's cart. Failures are logged only; the payment
// has already been recorded.
func (s *Service) clearCart(ctx context.Context, userID primitive.ObjectID) {
	if _, err := s.deps.Carts.Clear(ctx, userID); err != nil {
		s.logger.Error("failed to clear cart after payment", "error", err, "user_id", userID.Hex())
	}
}

func (s *Service) publishCompleted(ctx context.Context, p *domain.Payment) {
	s.confirmed.Add(ctx, 1, metric.WithAttributes(methodAttr(p.Method)))

	if s.deps.Publisher == nil {
		return
	}

	event := domain.PaymentCompletedEvent{
		EventID:   uuid.NewString(),
		PaymentID: p.ID.Hex(),
		OrderID:   p.OrderID.Hex(),
		UserID:    p.UserID.Hex(),
		Amount:    p.Amount,
		Currency:  p.Currency,
		Method:    p.Method,
		Timestamp: s.now(),
	}
	if s.deps.Users != nil {
		user, err := s.deps.Users.GetByID(ctx, event.UserID)
		if err != nil {
			s.logger.Error("failed to load payment user", "error", err, "user_id", event.UserID)
		} else if user != nil {
			event.Email = user.Email
		}
	}

	if err := s.deps.Publisher.Publish(ctx, domain.TopicPaymentCompleted, event.OrderID, event); err != nil {
		s.logger.Error("failed to publish payment completed event", "error", err, "order_id", event.OrderID)
	}
}
