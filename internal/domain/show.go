package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type SeatState string

const (
	SeatStateHeld SeatState = "held"
	SeatStateSold SeatState = "sold"
)

// Show is one scheduled screening of a movie at a fixed time and price.
// Start time, price and hall layout are immutable after creation; the only
// thing that ever changes about a show is its seat occupancy, and that is
// mutated exclusively through the booking repository's ledger operations.
type Show struct {
	ID          int64
	MovieID     int64
	StartTime   time.Time
	Price       decimal.Decimal
	SeatRows    int
	SeatsPerRow int
	CreatedAt   time.Time
}

// OccupiedSeat is one entry of a show's occupancy map.
type OccupiedSeat struct {
	Label     string
	BookingID string
	State     SeatState
}

// ParseSeatLabel splits a label like "C7" into its zero-based row index and
// one-based seat number. The second return value is false for anything that
// is not a single uppercase row letter followed by a number.
func ParseSeatLabel(label string) (row int, num int, ok bool) {
	if len(label) < 2 || len(label) > 3 {
		return 0, 0, false
	}

	r := label[0]
	if r < 'A' || r > 'Z' {
		return 0, 0, false
	}

	for i := 1; i < len(label); i++ {
		if label[i] < '0' || label[i] > '9' {
			return 0, 0, false
		}
		num = num*10 + int(label[i]-'0')
	}

	return int(r - 'A'), num, true
}

// HasSeat reports whether the label falls inside the show's hall layout.
func (s Show) HasSeat(label string) bool {
	row, num, ok := ParseSeatLabel(label)
	if !ok {
		return false
	}

	return row < s.SeatRows && num >= 1 && num <= s.SeatsPerRow
}

// ScheduleEntry is one date of an operator's show-creation request, carrying
// one or more local times on that date.
type ScheduleEntry struct {
	Date  string
	Times []string
}

// StartTimes resolves the entry into absolute start times. Any unparsable
// date or time fails the whole entry so the importer creates nothing.
func (e ScheduleEntry) StartTimes(loc *time.Location) ([]time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", e.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid show date %q: %w", e.Date, err)
	}

	startTimes := make([]time.Time, 0, len(e.Times))

	for _, t := range e.Times {
		clock, err := time.ParseInLocation("15:04", t, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid show time %q: %w", t, err)
		}

		startTimes = append(startTimes, day.Add(
			time.Duration(clock.Hour())*time.Hour+time.Duration(clock.Minute())*time.Minute,
		))
	}

	return startTimes, nil
}

type ShowRepository interface {
	// CreateMovieWithShows persists the movie (no-op if already cached) and
	// all shows in a single transaction; on any failure nothing is kept.
	CreateMovieWithShows(ctx context.Context, movie *Movie, shows []*Show) error
	GetById(ctx context.Context, id int64) (*Show, error)
	GetUpcomingByMovie(ctx context.Context, movieID int64) ([]*Show, error)
	GetOccupiedSeats(ctx context.Context, showID int64) ([]OccupiedSeat, error)
}
