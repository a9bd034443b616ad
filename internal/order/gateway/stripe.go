package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"santamoment/internal/logger"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// StripeGateway confirms payments against Stripe. The paymentKey the funnel
// client sends is the payment intent id created during checkout.
type StripeGateway struct {
	client *client.API
	log    *logger.Logger
}

func NewStripeGateway(secretKey string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY is not set")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(secretKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrStripeClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeGateway{client: sc, log: log}, nil
}

func (g *StripeGateway) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*Confirmation, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := g.client.PaymentIntents.Get(paymentKey, params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to retrieve payment intent %s: %v", paymentKey, err))
		return nil, fmt.Errorf("%w: %v", ErrDeclined, err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		g.log.Warn("STRIPE", fmt.Sprintf("Payment intent %s for order %s has status %s", paymentKey, orderID, intent.Status))
		return nil, ErrDeclined
	}

	// KRW is a zero-decimal currency in Stripe, so amounts compare directly.
	if intent.Amount != amount {
		g.log.Error("STRIPE", fmt.Sprintf("Payment intent %s settled %d but order %s expects %d", paymentKey, intent.Amount, orderID, amount))
		return nil, ErrAmountMismatch
	}

	conf := &Confirmation{
		PaymentKey: paymentKey,
		Amount:     intent.Amount,
	}
	if intent.LatestCharge != nil {
		conf.TransactionID = intent.LatestCharge.ID
		conf.ReceiptURL = intent.LatestCharge.ReceiptURL
	}

	g.log.Info("STRIPE", fmt.Sprintf("Payment confirmed for order %s (%d)", orderID, intent.Amount))
	return conf, nil
}
