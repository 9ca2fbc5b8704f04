package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxQuantity bounds a single cart or order line.
const MaxQuantity = 10000

// ValidQuantity reports whether q is an acceptable line quantity.
func ValidQuantity(q int) bool {
	return q >= 1 && q <= MaxQuantity
}

type CartItem struct {
	ProductID primitive.ObjectID `bson:"product" json:"product"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Cart holds at most one line per product.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user" json:"user"`
	Items     []CartItem         `bson:"items" json:"items"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c *Cart) find(productID primitive.ObjectID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add merges quantity into the existing line for productID, or appends a new line.
func (c *Cart) Add(productID primitive.ObjectID, quantity int) error {
	if !ValidQuantity(quantity) {
		return ErrInvalidQuantity
	}
	if i := c.find(productID); i >= 0 {
		if !ValidQuantity(c.Items[i].Quantity + quantity) {
			return ErrInvalidQuantity
		}
		c.Items[i].Quantity += quantity
		return nil
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
	return nil
}

func (c *Cart) SetQuantity(productID primitive.ObjectID, quantity int) error {
	if !ValidQuantity(quantity) {
		return ErrInvalidQuantity
	}
	i := c.find(productID)
	if i < 0 {
		return ErrCartItemNotFound
	}
	c.Items[i].Quantity = quantity
	return nil
}

func (c *Cart) Remove(productID primitive.ObjectID) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// Replace swaps in items wholesale, merging repeated products.
func (c *Cart) Replace(items []CartItem) error {
	next := Cart{Items: make([]CartItem, 0, len(items))}
	for _, item := range items {
		if err := next.Add(item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	c.Items = next.Items
	return nil
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

// CartLine is a cart item joined with its catalog entry for display.
type CartLine struct {
	Product  *Product `json:"product"`
	Quantity int      `json:"quantity"`
}

type CartView struct {
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}
