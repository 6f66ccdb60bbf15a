package domain

import (
	"context"

	"github.com/stripe/stripe-go/v82"
)

type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, booking *Booking, show *Show, movie *Movie) (*stripe.CheckoutSession, error)
	CheckoutSessionsByPaymentIntent(ctx context.Context, paymentIntentID string) ([]*stripe.CheckoutSession, error)
}
