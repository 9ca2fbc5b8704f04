package domain

import "errors"

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotPayable      = errors.New("order is not awaiting payment")
	ErrProductNotFound      = errors.New("product not found")
	ErrCartNotFound         = errors.New("cart not found")
	ErrCartItemNotFound     = errors.New("item not found in cart")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotCompleted  = errors.New("payment not completed")
	ErrPaymentExists        = errors.New("order already has an active payment")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidQuantity      = errors.New("quantity must be between 1 and 10000")
	ErrTotalMismatch        = errors.New("order total does not match items")
	ErrEmptyOrder           = errors.New("order has no items")
	ErrEmailTaken           = errors.New("user already exists with this email")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)
