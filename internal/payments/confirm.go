package payments

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ecocart/storefront/internal/domain"
)

// ConfirmPayment reconciles a payment after the client returns from
// checkout. It accepts either a provider session id or an order id with a
// non-card method, never both. Repeated calls are safe.
func (s *Service) ConfirmPayment(ctx context.Context, userID primitive.ObjectID, req domain.ConfirmRequest) (*domain.ConfirmResult, error) {
	hasSession := req.SessionID != ""
	hasOrder := req.OrderID != "" || req.PaymentMethod != ""

	switch {
	case hasSession && hasOrder:
		return nil, ErrAmbiguousConfirmation
	case hasSession:
		return s.confirmSession(ctx, userID, req.SessionID)
	case req.OrderID != "" && req.PaymentMethod != "":
		return s.confirmOrder(ctx, userID, req.OrderID, req.PaymentMethod)
	default:
		return nil, ErrNoConfirmation
	}
}

func (s *Service) confirmOrder(ctx context.Context, userID primitive.ObjectID, orderID, rawMethod string) (*domain.ConfirmResult, error) {
	method, err := domain.ParsePaymentMethod(rawMethod)
	if err != nil {
		return nil, err
	}
	if method == domain.PaymentMethodCard {
		return nil, fmt.Errorf("%w: card payments are confirmed by session id", domain.ErrInvalidPaymentMethod)
	}

	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, domain.ErrPaymentNotFound
	}

	payment, err := s.deps.Payments.FindForOrder(ctx, oid, userID, method)
	if err != nil {
		return nil, fmt.Errorf("find payment for order %s: %w", orderID, err)
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}

	return s.settle(ctx, payment, false)
}

func (s *Service) confirmSession(ctx context.Context, userID primitive.ObjectID, sessionID string) (*domain.ConfirmResult, error) {
	paid, err := s.deps.Provider.SessionPaid(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("check session %s: %w", sessionID, err)
	}
	if !paid {
		s.logger.Info("session not paid", "session_id", sessionID, "user_id", userID.Hex())
		return nil, domain.ErrPaymentNotCompleted
	}

	payment, err := s.deps.Payments.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find payment for session %s: %w", sessionID, err)
	}
	if payment == nil || payment.UserID != userID {
		return nil, domain.ErrPaymentNotFound
	}

	return s.settle(ctx, payment, true)
}

// settle completes the payment, advances its order and clears the cart.
// The completed event is emitted only by the call that performs the
// transition to completed. A failed payment is only revived when the
// provider has confirmed the money was taken.
func (s *Service) settle(ctx context.Context, payment *domain.Payment, providerPaid bool) (*domain.ConfirmResult, error) {
	transitioned := false
	switch payment.Status {
	case domain.PaymentStatusPending:
		var err error
		transitioned, err = s.deps.Payments.Complete(ctx, payment.ID)
		if err != nil {
			return nil, fmt.Errorf("complete payment %s: %w", payment.ID.Hex(), err)
		}
	case domain.PaymentStatusFailed:
		if !providerPaid {
			return nil, domain.ErrPaymentNotCompleted
		}
		var err error
		transitioned, err = s.reinstate(ctx, payment)
		if err != nil {
			return nil, err
		}
	}

	if err := s.markProcessing(ctx, payment.OrderID, payment.Method); err != nil {
		return nil, err
	}
	if transitioned {
		payment.Status = domain.PaymentStatusCompleted
		s.publishCompleted(ctx, payment)
	}
	s.clearCart(ctx, payment.UserID)

	s.logger.Info("payment confirmed", "order_id", payment.OrderID.Hex(), "method", payment.Method, "transitioned", transitioned)
	return &domain.ConfirmResult{Success: true}, nil
}

// reinstate completes a superseded card session the buyer paid anyway.
// Newer pending attempts for the order are failed first so it keeps a single
// active payment.
func (s *Service) reinstate(ctx context.Context, payment *domain.Payment) (bool, error) {
	active, err := s.deps.Payments.Active(ctx, payment.OrderID)
	if err != nil {
		return false, fmt.Errorf("list payments for order %s: %w", payment.OrderID.Hex(), err)
	}
	for _, p := range active {
		if p.Status == domain.PaymentStatusCompleted {
			s.logger.Error("paid session conflicts with a completed payment",
				"order_id", payment.OrderID.Hex(), "session_id", payment.SessionID, "completed_payment_id", p.ID.Hex())
			return false, domain.ErrPaymentExists
		}
	}
	for _, p := range active {
		if _, err := s.deps.Payments.Fail(ctx, p.ID); err != nil {
			return false, fmt.Errorf("supersede payment %s: %w", p.ID.Hex(), err)
		}
	}

	ok, err := s.deps.Payments.Reinstate(ctx, payment.ID)
	if err != nil {
		return false, fmt.Errorf("reinstate payment %s: %w", payment.ID.Hex(), err)
	}
	s.logger.Warn("reinstated superseded card payment", "order_id", payment.OrderID.Hex(), "session_id", payment.SessionID)
	return ok, nil
}
