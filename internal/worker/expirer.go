package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/quickshow/quickshow/internal/domain"
)

// Expirer periodically releases the seats of bookings whose payment deadline
// has passed. Each booking is expired through the repository's conditional
// update, so a payment that lands between the sweep's read and its write
// wins and the sweep quietly moves on.
type Expirer struct {
	bookings domain.BookingRepository
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func NewExpirer(bookings domain.BookingRepository, logger *slog.Logger, interval time.Duration, batch int) *Expirer {
	return &Expirer{
		bookings: bookings,
		logger:   logger,
		interval: interval,
		batch:    batch,
	}
}

// Run sweeps until the context is cancelled.
func (e *Expirer) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("starting booking expirer", "interval", e.interval)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("stopping booking expirer")
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *Expirer) sweep(ctx context.Context) {
	now := time.Now()

	ids, err := e.bookings.GetExpiredIDs(ctx, now, e.batch)
	if err != nil {
		e.logger.Error("failed to list expired bookings", "error", err)
		return
	}

	expired := 0

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}

		err := e.bookings.Expire(ctx, id, now)
		if err != nil {
			e.logger.Error("failed to expire booking", "booking_id", id, "error", err)
			continue
		}

		expired++
	}

	if expired > 0 {
		e.logger.Info("expired bookings", "count", expired)
	}
}
