package payment

import (
	"context"
	"fmt"

	"github.com/quickshow/quickshow/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

type StripePaymentProvider struct {
	successUrl string
	failureUrl string
}

func NewStripePaymentProvider(successUrl, failureUrl string) *StripePaymentProvider {
	return &StripePaymentProvider{
		successUrl: successUrl,
		failureUrl: failureUrl,
	}
}

// CreateCheckoutSession opens a Stripe checkout for the booking. The booking
// id travels in the session metadata; it is the correlation token the
// webhook reconciler uses to find its way back to the booking.
func (s *StripePaymentProvider) CreateCheckoutSession(
	ctx context.Context,
	booking *domain.Booking,
	show *domain.Show,
	movie *domain.Movie) (*stripe.CheckoutSession, error) {

	priceCents := show.Price.Mul(decimal.NewFromInt(100)).IntPart()

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(booking.Seats))

	for _, seat := range booking.Seats {
		lineItem := &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(priceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("🎬 %s - Seat %s", movie.Title, seat)),
					Description: stripe.String(fmt.Sprintf(
						"Showtime: %s",
						show.StartTime.Format("Jan 2, 2006 15:04"),
					)),
				},
			},
			Quantity: stripe.Int64(1),
		}

		lineItems = append(lineItems, lineItem)
	}

	params := &stripe.CheckoutSessionParams{
		LineItems:  lineItems,
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.failureUrl),
		Metadata: map[string]string{
			"booking_id": booking.ID.String(),
		},
		ClientReferenceID: stripe.String(booking.ID.String()),
	}
	params.Context = ctx

	return session.New(params)
}

// CheckoutSessionsByPaymentIntent lists the checkout sessions tied to a
// payment intent. Stripe may return zero, one or several.
func (s *StripePaymentProvider) CheckoutSessionsByPaymentIntent(
	ctx context.Context,
	paymentIntentID string) ([]*stripe.CheckoutSession, error) {

	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx

	sessions := make([]*stripe.CheckoutSession, 0)

	iter := session.List(params)
	for iter.Next() {
		sessions = append(sessions, iter.CheckoutSession())
	}

	return sessions, iter.Err()
}
