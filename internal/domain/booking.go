package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusCreated         BookingStatus = "created"
	BookingStatusAwaitingPayment BookingStatus = "awaiting_payment"
	BookingStatusPaid            BookingStatus = "paid"
	BookingStatusExpired         BookingStatus = "expired"
	BookingStatusCancelled       BookingStatus = "cancelled"
)

// bookingTransitions is the closed set of legal status changes. Payment may
// race ahead of checkout-session attachment, so "created" transitions
// directly to "paid" as well. Terminal statuses have no outgoing edges.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusCreated: {
		BookingStatusAwaitingPayment,
		BookingStatusPaid,
		BookingStatusExpired,
		BookingStatusCancelled,
	},
	BookingStatusAwaitingPayment: {
		BookingStatusPaid,
		BookingStatusExpired,
		BookingStatusCancelled,
	},
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}

	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Booking is one customer's claim on a seat set for a show. Bookings are
// never deleted; a terminal status is the audit record of how they ended.
type Booking struct {
	ID                uuid.UUID
	ShowID            int64
	Seats             []string
	Amount            decimal.Decimal
	Status            BookingStatus
	CheckoutSessionID *string
	CustomerRef       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExpiresAt         time.Time
}

// NewBooking builds a booking for the given seats. The amount is always
// derived from the show's price, never taken from the client.
func NewBooking(show *Show, seats []string, customerRef string, ttl time.Duration) *Booking {
	now := time.Now()

	return &Booking{
		ID:          uuid.New(),
		ShowID:      show.ID,
		Seats:       seats,
		Amount:      show.Price.Mul(decimal.NewFromInt(int64(len(seats)))),
		Status:      BookingStatusCreated,
		CustomerRef: customerRef,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

type BookingRepository interface {
	// Create inserts the booking and atomically reserves all of its seats.
	// Returns SeatConflictError naming the taken seats when any are held or
	// sold; in that case no seat is touched and no booking row is kept.
	Create(ctx context.Context, booking *Booking) error

	GetById(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByCustomer(ctx context.Context, customerRef string) ([]*Booking, error)

	// AttachCheckoutSession moves the booking to awaiting_payment and stores
	// the payment correlation token. Calling again with the same token is a
	// no-op; any other call fails with ErrInvalidTransition or
	// ErrSessionMismatch.
	AttachCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error

	// MarkPaid commits the booking's held seats to sold and moves it to paid.
	// Idempotent: marking an already paid booking succeeds without effect.
	MarkPaid(ctx context.Context, id uuid.UUID) error

	// Expire releases the seats of a booking whose deadline has passed. A
	// booking that is already paid, or not yet due, is left untouched.
	Expire(ctx context.Context, id uuid.UUID, now time.Time) error

	// Cancel releases the seats of a not-yet-paid booking.
	Cancel(ctx context.Context, id uuid.UUID) error

	GetExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}
