package domain

import "github.com/shopspring/decimal"

// CheckoutRequest starts payment for an existing order.
type CheckoutRequest struct {
	OrderID       string `json:"orderId"`
	PaymentMethod string `json:"paymentMethod"`
}

// CheckoutResult carries either a same-site redirect (cod, upi, settled mock
// card sessions) or a provider-hosted checkout URL.
type CheckoutResult struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	URL         string `json:"url,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
	Mock        bool   `json:"mock,omitempty"`
	// Demo is only ever set by the client-side demo backend.
	Demo bool `json:"demo,omitempty"`
}

// ConfirmRequest has two shapes: SessionID alone for card payments, or
// OrderID with PaymentMethod for the others.
type ConfirmRequest struct {
	SessionID     string `json:"sessionId,omitempty"`
	OrderID       string `json:"orderId,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

type ConfirmResult struct {
	Success bool `json:"success"`
	Demo    bool `json:"demo,omitempty"`
}

// CreateOrderItem is one requested line. Any client-side price is ignored;
// the catalog price is authoritative.
type CreateOrderItem struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items"`
	Total           *decimal.Decimal  `json:"total,omitempty"`
	ShippingAddress *Address          `json:"shippingAddress,omitempty"`
}
