package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCOD  PaymentMethod = "cod"
)

// ParsePaymentMethod maps a request tag to a method. An empty tag selects card.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return PaymentMethodCard, nil
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodCOD:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is one payment attempt against one order.
type Payment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    primitive.ObjectID `bson:"user" json:"user"`
	OrderID   primitive.ObjectID `bson:"order" json:"order"`
	Amount    decimal.Decimal    `bson:"amount" json:"amount"`
	Currency  string             `bson:"currency" json:"currency"`
	Method    PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	SessionID string             `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	Status    PaymentStatus      `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MinorUnits converts an amount to the provider's integer minor-unit
// convention (cents), rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
