package integration_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/quickshow/quickshow/internal/domain"
	"github.com/shopspring/decimal"
)

var showCounter atomic.Int64

// createShow seeds a show at a start time no other test uses, so seat state
// never leaks between tests sharing a container.
func (s *BaseSuite) createShow(movieID int64, seatRows, seatsPerRow int) *domain.Show {
	movie := &domain.Movie{
		ID:       movieID,
		Title:    "Fight Club",
		Genres:   []string{"Drama"},
		Language: "en",
		Rating:   8.4,
		Runtime:  139,
	}

	show := &domain.Show{
		MovieID:     movieID,
		StartTime:   time.Now().Add(time.Duration(showCounter.Add(1)) * time.Hour).Truncate(time.Second),
		Price:       decimal.RequireFromString("12.50"),
		SeatRows:    seatRows,
		SeatsPerRow: seatsPerRow,
	}

	err := s.showRepo.CreateMovieWithShows(context.Background(), movie, []*domain.Show{show})
	s.Require().NoError(err)
	s.Require().NotZero(show.ID)

	return show
}

func (s *BaseSuite) reserve(show *domain.Show, seats []string, customerRef string, ttl time.Duration) *domain.Booking {
	booking := domain.NewBooking(show, seats, customerRef, ttl)

	err := s.bookingRepo.Create(context.Background(), booking)
	s.Require().NoError(err)

	return booking
}

func (s *BaseSuite) getBooking(id uuid.UUID) *domain.Booking {
	booking, err := s.bookingRepo.GetById(context.Background(), id)
	s.Require().NoError(err)
	return booking
}

func (s *BaseSuite) assertOccupied(showID int64, want []domain.OccupiedSeat) {
	got, err := s.showRepo.GetOccupiedSeats(context.Background(), showID)
	s.Require().NoError(err)

	opts := []cmp.Option{
		cmpopts.SortSlices(func(a, b domain.OccupiedSeat) bool { return a.Label < b.Label }),
		cmpopts.IgnoreFields(domain.OccupiedSeat{}, "BookingID"),
		cmpopts.EquateEmpty(),
	}

	if diff := cmp.Diff(want, got, opts...); diff != "" {
		s.T().Errorf("occupied seats mismatch (-want +got):\n%s", diff)
	}
}
