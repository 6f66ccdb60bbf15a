package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quickshow/quickshow/internal/domain"
	"github.com/shopspring/decimal"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

// Create inserts the booking row and its seat rows in one transaction. The
// ON CONFLICT DO NOTHING insert is the atomic check-then-set: a concurrent
// reservation holding any of the seats makes the affected-row count come up
// short, and the whole transaction rolls back without touching a single seat.
func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO bookings (id, show_id, seats, amount, status, customer_ref, created_at, updated_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8)
		`

		_, err := tx.Exec(
			ctx,
			query,
			booking.ID,
			booking.ShowID,
			booking.Seats,
			booking.Amount,
			booking.Status,
			booking.CustomerRef,
			booking.CreatedAt,
			booking.ExpiresAt,
		)

		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return domain.ErrRecordNotFound
			}

			return err
		}

		return reserveSeats(ctx, tx, booking.ShowID, booking.Seats, booking.ID)
	})
}

// reserveSeats marks every label as held by the booking, but only if all of
// them are free. Partial allocation is never left behind: a shortfall aborts
// the surrounding transaction after collecting the conflicting labels.
func reserveSeats(ctx context.Context, tx pgx.Tx, showID int64, seats []string, bookingID uuid.UUID) error {
	query := `
		INSERT INTO show_seats (show_id, seat_label, booking_id)
		SELECT $1, unnest($2::text[]), $3
		ON CONFLICT (show_id, seat_label) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query, showID, seats, bookingID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == int64(len(seats)) {
		return nil
	}

	taken, err := conflictingSeats(ctx, tx, showID, seats, bookingID)
	if err != nil {
		return err
	}

	return domain.SeatConflictError{Seats: taken}
}

func conflictingSeats(ctx context.Context, tx pgx.Tx, showID int64, seats []string, bookingID uuid.UUID) ([]string, error) {
	query := `
		SELECT seat_label
		FROM show_seats
		WHERE show_id = $1 AND seat_label = ANY($2::text[]) AND booking_id <> $3
		ORDER BY seat_label
	`

	rows, err := tx.Query(ctx, query, showID, seats, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	taken := make([]string, 0, len(seats))

	for rows.Next() {
		var label string

		if err := rows.Scan(&label); err != nil {
			return nil, err
		}

		taken = append(taken, label)
	}

	return taken, rows.Err()
}

// releaseSeats clears held seats of the booking. Sold seats are never
// released here; a refund is a business decision outside this ledger.
func releaseSeats(ctx context.Context, tx pgx.Tx, showID int64, bookingID uuid.UUID) error {
	query := `DELETE FROM show_seats WHERE show_id = $1 AND booking_id = $2 AND state = 'held'`

	_, err := tx.Exec(ctx, query, showID, bookingID)
	return err
}

func (p *PostgresBookingRepository) GetById(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `
		SELECT id, show_id, seats, amount::text, status, checkout_session_id, customer_ref, created_at, updated_at, expires_at
		FROM bookings
		WHERE id = $1
	`

	booking, err := scanBooking(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return booking, nil
}

func (p *PostgresBookingRepository) GetByCustomer(ctx context.Context, customerRef string) ([]*domain.Booking, error) {
	query := `
		SELECT id, show_id, seats, amount::text, status, checkout_session_id, customer_ref, created_at, updated_at, expires_at
		FROM bookings
		WHERE customer_ref = $1
		ORDER BY created_at DESC
	`

	rows, err := p.db.Query(ctx, query, customerRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var booking domain.Booking
	var amount string

	err := row.Scan(
		&booking.ID,
		&booking.ShowID,
		&booking.Seats,
		&amount,
		&booking.Status,
		&booking.CheckoutSessionID,
		&booking.CustomerRef,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	booking.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

// AttachCheckoutSession stores the payment correlation token and moves the
// booking to awaiting_payment. The single conditional UPDATE makes the call
// idempotent for the same token and a guarded failure for everything else.
func (p *PostgresBookingRepository) AttachCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	query := `
		UPDATE bookings
		SET status = $3, checkout_session_id = $2, updated_at = now()
		WHERE id = $1
			AND (status = $4 OR (status = $3 AND checkout_session_id = $2))
	`

	tag, err := p.db.Exec(ctx, query, id, sessionID, domain.BookingStatusAwaitingPayment, domain.BookingStatusCreated)
	if err != nil {
		return err
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	var status domain.BookingStatus
	var existing *string

	err = p.db.QueryRow(ctx, `SELECT status, checkout_session_id FROM bookings WHERE id = $1`, id).Scan(&status, &existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRecordNotFound
		}

		return err
	}

	if status == domain.BookingStatusAwaitingPayment && existing != nil && *existing != sessionID {
		return domain.ErrSessionMismatch
	}

	return domain.ErrInvalidTransition
}

// MarkPaid commits the booking and its held seats to sold. The conditional
// UPDATE on the booking row is the serialization point against Expire and
// Cancel: once this transaction wins the row, the seats can no longer be
// released. Marking an already paid booking is a no-op success.
func (p *PostgresBookingRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE bookings
			SET status = $2, updated_at = now()
			WHERE id = $1 AND status IN ($3, $4)
			RETURNING show_id
		`

		var showID int64

		err := tx.QueryRow(
			ctx,
			query,
			id,
			domain.BookingStatusPaid,
			domain.BookingStatusCreated,
			domain.BookingStatusAwaitingPayment,
		).Scan(&showID)

		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}

			var status domain.BookingStatus

			err = tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&status)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.ErrRecordNotFound
				}

				return err
			}

			if status == domain.BookingStatusPaid {
				return nil
			}

			return domain.ErrInvalidTransition
		}

		_, err = tx.Exec(
			ctx,
			`UPDATE show_seats SET state = 'sold' WHERE show_id = $1 AND booking_id = $2 AND state = 'held'`,
			showID,
			id,
		)

		return err
	})
}

// Expire releases the seats of an overdue, unpaid booking. The deadline and
// status re-check share one atomic UPDATE, so a payment that races in first
// always wins; in that case (and for bookings not yet due) this is a no-op.
func (p *PostgresBookingRepository) Expire(ctx context.Context, id uuid.UUID, now time.Time) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE bookings
			SET status = $2, updated_at = now()
			WHERE id = $1 AND status IN ($3, $4) AND expires_at <= $5
			RETURNING show_id
		`

		var showID int64

		err := tx.QueryRow(
			ctx,
			query,
			id,
			domain.BookingStatusExpired,
			domain.BookingStatusCreated,
			domain.BookingStatusAwaitingPayment,
			now,
		).Scan(&showID)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}

			return err
		}

		return releaseSeats(ctx, tx, showID, id)
	})
}

func (p *PostgresBookingRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE bookings
			SET status = $2, updated_at = now()
			WHERE id = $1 AND status IN ($3, $4)
			RETURNING show_id
		`

		var showID int64

		err := tx.QueryRow(
			ctx,
			query,
			id,
			domain.BookingStatusCancelled,
			domain.BookingStatusCreated,
			domain.BookingStatusAwaitingPayment,
		).Scan(&showID)

		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}

			var exists bool

			err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists)
			if err != nil {
				return err
			}

			if !exists {
				return domain.ErrRecordNotFound
			}

			return domain.ErrInvalidTransition
		}

		return releaseSeats(ctx, tx, showID, id)
	})
}

func (p *PostgresBookingRepository) GetExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM bookings
		WHERE status IN ($1, $2) AND expires_at <= $3
		ORDER BY expires_at
		LIMIT $4
	`

	rows, err := p.db.Query(ctx, query, domain.BookingStatusCreated, domain.BookingStatusAwaitingPayment, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)

	for rows.Next() {
		var id uuid.UUID

		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}
