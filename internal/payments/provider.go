package payments

import "context"

// SessionRequest describes a hosted checkout for one order.
type SessionRequest struct {
	OrderID     string
	AmountMinor int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Session is a provider checkout session. Settled is true when the provider
// considers the payment complete at creation time, which only the mock does.
type Session struct {
	ID      string
	URL     string
	Settled bool
}

// Provider is the external card payment service.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
}
