package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{"created can await payment", BookingStatusCreated, BookingStatusAwaitingPayment, true},
		{"created can be paid directly", BookingStatusCreated, BookingStatusPaid, true},
		{"created can expire", BookingStatusCreated, BookingStatusExpired, true},
		{"created can be cancelled", BookingStatusCreated, BookingStatusCancelled, true},
		{"awaiting payment can be paid", BookingStatusAwaitingPayment, BookingStatusPaid, true},
		{"awaiting payment can expire", BookingStatusAwaitingPayment, BookingStatusExpired, true},
		{"paid never expires", BookingStatusPaid, BookingStatusExpired, false},
		{"paid never cancels", BookingStatusPaid, BookingStatusCancelled, false},
		{"expired cannot be paid", BookingStatusExpired, BookingStatusPaid, false},
		{"cancelled cannot be paid", BookingStatusCancelled, BookingStatusPaid, false},
		{"no self transition", BookingStatusPaid, BookingStatusPaid, false},
		{"created cannot skip back", BookingStatusAwaitingPayment, BookingStatusCreated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBookingStatusTerminalStatesHaveNoExits(t *testing.T) {
	all := []BookingStatus{
		BookingStatusCreated,
		BookingStatusAwaitingPayment,
		BookingStatusPaid,
		BookingStatusExpired,
		BookingStatusCancelled,
	}

	for _, from := range all {
		if !from.IsTerminal() {
			continue
		}

		for _, to := range all {
			assert.False(t, from.CanTransitionTo(to), "terminal status %s must not transition to %s", from, to)
		}
	}
}

func TestNewBooking(t *testing.T) {
	show := &Show{
		ID:          42,
		Price:       decimal.NewFromFloat(12.50),
		SeatRows:    10,
		SeatsPerRow: 9,
	}

	booking := NewBooking(show, []string{"A1", "A2", "B5"}, "session-token", 10*time.Minute)

	assert.Equal(t, int64(42), booking.ShowID)
	assert.Equal(t, BookingStatusCreated, booking.Status)
	assert.True(t, decimal.NewFromFloat(37.50).Equal(booking.Amount), "amount must be seats x price, got %s", booking.Amount)
	assert.Equal(t, "session-token", booking.CustomerRef)
	assert.NotEqual(t, booking.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.WithinDuration(t, booking.CreatedAt.Add(10*time.Minute), booking.ExpiresAt, time.Second)
}
