package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicOrderCreated     = "order.created"
	TopicPaymentCompleted = "payment.completed"
)

type OrderCreatedEvent struct {
	EventID   string          `json:"event_id"`
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	Items     []LineItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}

type PaymentCompletedEvent struct {
	EventID   string          `json:"event_id"`
	PaymentID string          `json:"payment_id"`
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	Email     string          `json:"email"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Method    PaymentMethod   `json:"method"`
	Timestamp time.Time       `json:"timestamp"`
}
