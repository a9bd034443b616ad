package gateway

import (
	"context"
	"errors"
)

var (
	// ErrDeclined means the gateway rejected or never settled the payment.
	ErrDeclined = errors.New("payment was not approved by the gateway")
	// ErrAmountMismatch means the gateway settled a different amount than
	// the order total.
	ErrAmountMismatch = errors.New("gateway amount does not match order total")
)

// Confirmation is what the gateway reports for a settled payment.
type Confirmation struct {
	PaymentKey    string
	Amount        int64
	TransactionID string
	ReceiptURL    string
}

// Gateway confirms a customer payment with the external payment provider.
// Implementations make exactly one attempt; retrying is the caller's call.
type Gateway interface {
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*Confirmation, error)
}
