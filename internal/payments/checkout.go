package payments

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ecocart/storefront/internal/domain"
)

func methodAttr(m domain.PaymentMethod) attribute.KeyValue {
	return attribute.String("method", string(m))
}

func successRedirect(orderID primitive.ObjectID, method domain.PaymentMethod) string {
	return fmt.Sprintf("/payment-success?order_id=%s&method=%s", orderID.Hex(), method)
}

// BeginCheckout starts payment for one of the user's orders. cod and upi
// settle locally; card opens a provider session. returnOrigin is the
// client origin used for provider return URLs when it is allowed; otherwise
// the configured public origin is used.
func (s *Service) BeginCheckout(ctx context.Context, userID primitive.ObjectID, req domain.CheckoutRequest, returnOrigin string) (*domain.CheckoutResult, error) {
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	order, err := s.ownedOrder(ctx, userID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanAdvanceTo(domain.OrderStatusProcessing) {
		return nil, domain.ErrOrderNotPayable
	}
	stale, err := s.staleAttempts(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	// Every payment is inserted pending so the unique index on active
	// payments sees it, then settled ones move to completed.
	payment := &domain.Payment{
		UserID:   userID,
		OrderID:  order.ID,
		Amount:   order.Total,
		Currency: s.cfg.Currency,
		Method:   method,
		Status:   domain.PaymentStatusPending,
	}
	result := &domain.CheckoutResult{Success: true}
	settled := false

	switch method {
	case domain.PaymentMethodCOD:
		// Settled at delivery; the payment stays pending.
	case domain.PaymentMethodUPI:
		s.logger.Info("simulating upi settlement", "order_id", order.ID.Hex())
		settled = true
	case domain.PaymentMethodCard:
		session, err := s.openSession(ctx, order, returnOrigin)
		if err != nil {
			return nil, err
		}
		payment.SessionID = session.ID
		result.URL = session.URL
		result.SessionID = session.ID
		if session.Settled {
			s.logger.Warn("no card provider configured, using mock checkout", "order_id", order.ID.Hex(), "session_id", session.ID)
			settled = true
			result.Mock = true
		}
	}

	// Earlier card attempts stay payable until the replacement session exists.
	if err := s.supersede(ctx, order.ID, stale); err != nil {
		return nil, err
	}
	if err := s.deps.Payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	s.sessions.Add(ctx, 1, metric.WithAttributes(methodAttr(method), attribute.Bool("mock", result.Mock)))

	// Card payments awaiting the provider leave the order untouched until
	// confirmation.
	if method == domain.PaymentMethodCard && !settled {
		s.logger.Info("checkout session created", "order_id", order.ID.Hex(), "session_id", payment.SessionID)
		return result, nil
	}

	transitioned := false
	if settled {
		transitioned, err = s.deps.Payments.Complete(ctx, payment.ID)
		if err != nil {
			return nil, fmt.Errorf("complete payment %s: %w", payment.ID.Hex(), err)
		}
	}
	if err := s.markProcessing(ctx, order.ID, method); err != nil {
		return nil, err
	}
	if transitioned {
		payment.Status = domain.PaymentStatusCompleted
		s.publishCompleted(ctx, payment)
	}
	s.clearCart(ctx, userID)

	result.RedirectURL = successRedirect(order.ID, method)
	s.logger.Info("checkout completed", "order_id", order.ID.Hex(), "method", method, "payment_status", payment.Status)
	return result, nil
}

// staleAttempts enforces one active payment per order. Pending card attempts
// are returned for superseding; any other active payment blocks checkout.
func (s *Service) staleAttempts(ctx context.Context, orderID primitive.ObjectID) ([]domain.Payment, error) {
	active, err := s.deps.Payments.Active(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments for order %s: %w", orderID.Hex(), err)
	}
	for _, p := range active {
		if p.Status != domain.PaymentStatusPending || p.Method != domain.PaymentMethodCard {
			return nil, domain.ErrPaymentExists
		}
	}
	return active, nil
}

func (s *Service) supersede(ctx context.Context, orderID primitive.ObjectID, stale []domain.Payment) error {
	for _, p := range stale {
		if _, err := s.deps.Payments.Fail(ctx, p.ID); err != nil {
			return fmt.Errorf("supersede payment %s: %w", p.ID.Hex(), err)
		}
		s.logger.Info("superseded pending card payment", "order_id", orderID.Hex(), "session_id", p.SessionID)
	}
	return nil
}

// returnTarget picks the origin for provider redirects. Callers outside the
// allow-list are sent back to the public origin.
func (s *Service) returnTarget(returnOrigin string) string {
	if returnOrigin == "" || returnOrigin == s.cfg.PublicOrigin || slices.Contains(s.cfg.AllowedOrigins, returnOrigin) {
		return cmp.Or(returnOrigin, s.cfg.PublicOrigin)
	}
	s.logger.Warn("ignoring untrusted return origin", "origin", returnOrigin)
	return s.cfg.PublicOrigin
}

func (s *Service) openSession(ctx context.Context, order *domain.Order, returnOrigin string) (*Session, error) {
	origin := s.returnTarget(returnOrigin)

	session, err := s.deps.Provider.CreateSession(ctx, SessionRequest{
		OrderID:     order.ID.Hex(),
		AmountMinor: domain.MinorUnits(order.Total),
		Currency:    s.cfg.Currency,
		SuccessURL:  origin + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   origin + "/cart",
	})
	if err != nil {
		return nil, fmt.Errorf("open card session for order %s: %w", order.ID.Hex(), err)
	}
	return session, nil
}
