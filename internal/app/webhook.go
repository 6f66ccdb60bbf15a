package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quickshow/quickshow/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const webhookMaxBodyBytes = 65536
const webhookDedupTTL = 24 * time.Hour

func webhookDedupKey(eventID string) string {
	return "stripe_event:" + eventID
}

// StripeWebhookHandler reconciles payment outcomes into booking state. Any
// transient failure answers non-2xx so the provider retries the delivery;
// the dedup key is released first so the retry is not mistaken for a replay.
func (app *application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, webhookMaxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("failed to read webhook payload"))
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), app.config.stripe.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("webhook signature verification failed"))
		return
	}

	fresh, err := app.redis.SetNX(r.Context(), webhookDedupKey(event.ID), 1, webhookDedupTTL).Result()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if !fresh {
		app.logger.Info("skipping already processed webhook event", "event_id", event.ID, "event_type", event.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	err = app.handleStripeEvent(r.Context(), event)
	if err != nil {
		app.redis.Del(r.Context(), webhookDedupKey(event.ID))
		app.serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (app *application) handleStripeEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("failed to parse checkout session from event %s: %w", event.ID, err)
		}

		bookingID, ok := bookingIDFromSession(&session)
		if !ok {
			app.logger.Warn("checkout session carries no booking reference", "event_id", event.ID, "session_id", session.ID)
			return nil
		}

		return app.settleBooking(ctx, bookingID, customerEmail(&session))

	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return fmt.Errorf("failed to parse payment intent from event %s: %w", event.ID, err)
		}

		sessions, err := app.paymentProvider.CheckoutSessionsByPaymentIntent(ctx, intent.ID)
		if err != nil {
			return fmt.Errorf("failed to look up checkout sessions for payment intent %s: %w", intent.ID, err)
		}

		for _, session := range sessions {
			bookingID, ok := bookingIDFromSession(session)
			if !ok {
				continue
			}

			return app.settleBooking(ctx, bookingID, customerEmail(session))
		}

		app.logger.Warn("no booking found for payment intent", "event_id", event.ID, "payment_intent_id", intent.ID)
		return nil

	default:
		app.logger.Info("ignoring webhook event", "event_id", event.ID, "event_type", event.Type)
		return nil
	}
}

func (app *application) settleBooking(ctx context.Context, bookingID uuid.UUID, email string) error {
	err := app.bookingRepo.MarkPaid(ctx, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.logger.Warn("payment received for unknown booking", "booking_id", bookingID)
			return nil
		case errors.Is(err, domain.ErrInvalidTransition):
			// The hold lapsed before the payment landed. The money has been
			// taken, so this needs a manual refund.
			app.logger.Error("payment received for a booking that is no longer payable", "booking_id", bookingID)
			return nil
		default:
			return fmt.Errorf("failed to mark booking %s as paid: %w", bookingID, err)
		}
	}

	app.logger.Info("booking paid", "booking_id", bookingID)

	if email != "" {
		app.background(func() {
			app.sendBookingConfirmation(bookingID, email)
		})
	}

	return nil
}

func (app *application) sendBookingConfirmation(bookingID uuid.UUID, email string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	booking, err := app.bookingRepo.GetById(ctx, bookingID)
	if err != nil {
		app.logger.Error("failed to load booking for confirmation email", "booking_id", bookingID, "error", err)
		return
	}

	show, err := app.showRepo.GetById(ctx, booking.ShowID)
	if err != nil {
		app.logger.Error("failed to load show for confirmation email", "booking_id", bookingID, "error", err)
		return
	}

	movie, err := app.movieRepo.GetById(ctx, show.MovieID)
	if err != nil {
		app.logger.Error("failed to load movie for confirmation email", "booking_id", bookingID, "error", err)
		return
	}

	data := map[string]any{
		"BookingID":  booking.ID.String(),
		"MovieTitle": movie.Title,
		"Showtime":   show.StartTime.In(app.showLocation).Format("Monday, 2 January 2006 at 15:04"),
		"Seats":      strings.Join(booking.Seats, ", "),
		"Amount":     booking.Amount.StringFixed(2),
	}

	err = app.mailer.Send(email, "booking_confirmation.tmpl", data)
	if err != nil {
		app.logger.Error("failed to send confirmation email", "booking_id", bookingID, "error", err)
	}
}

func (app *application) background(fn func()) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				app.logger.Error(fmt.Sprintf("%v", err))
			}
		}()

		fn()
	}()
}

func bookingIDFromSession(session *stripe.CheckoutSession) (uuid.UUID, bool) {
	raw, ok := session.Metadata["booking_id"]
	if !ok {
		return uuid.Nil, false
	}

	bookingID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}

	return bookingID, true
}

func customerEmail(session *stripe.CheckoutSession) string {
	if session.CustomerDetails == nil {
		return ""
	}

	return session.CustomerDetails.Email
}
