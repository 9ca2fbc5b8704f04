package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok || s == OrderStatusCancelled
}

// CanAdvanceTo reports whether an order in status s may move to next.
// Statuses only move forward; Cancelled is reachable from anything that has
// not been delivered and is terminal.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if s == OrderStatusCancelled || s == OrderStatusDelivered {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	return ok && to > from
}

// Predecessors lists every status from which next is reachable.
func (next OrderStatus) Predecessors() []OrderStatus {
	var out []OrderStatus
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered} {
		if s.CanAdvanceTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// LineItem is a purchase-time snapshot of a product; it is never re-read from
// the catalog after the order is created.
type LineItem struct {
	ProductID primitive.ObjectID `bson:"product" json:"product"`
	Name      string             `bson:"name" json:"name"`
	Price     decimal.Decimal    `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID          primitive.ObjectID `bson:"user" json:"user"`
	Items           []LineItem         `bson:"items" json:"items"`
	Total           decimal.Decimal    `bson:"total" json:"total"`
	Status          OrderStatus        `bson:"status" json:"status"`
	PaymentMethod   PaymentMethod      `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	ShippingAddress *Address           `bson:"shippingAddress,omitempty" json:"shippingAddress,omitempty"`
	Date            time.Time          `bson:"date" json:"date"`
}

// SumLineItems returns the sum of price*quantity over items.
func SumLineItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
