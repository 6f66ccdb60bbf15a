package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quickshow/quickshow/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrDuplicateShowtime = errors.New("a show already exists for this movie and start time")

type PostgresShowRepository struct {
	db *pgxpool.Pool
}

func NewPostgresShowRepository(db *pgxpool.Pool) *PostgresShowRepository {
	return &PostgresShowRepository{
		db: db,
	}
}

// CreateMovieWithShows imports the movie (skipped when already cached) and
// creates every show in one transaction, so a failure on any show leaves no
// movie and no show behind.
func (p *PostgresShowRepository) CreateMovieWithShows(ctx context.Context, movie *domain.Movie, shows []*domain.Show) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO movies (id, title, overview, poster_url, backdrop_url, genres, cast_members,
				release_date, language, tagline, rating, runtime)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING
		`

		_, err := tx.Exec(
			ctx,
			query,
			movie.ID,
			movie.Title,
			movie.Overview,
			movie.PosterUrl,
			movie.BackdropUrl,
			movie.Genres,
			movie.CastMembers,
			movie.ReleaseDate,
			movie.Language,
			movie.Tagline,
			movie.Rating,
			movie.Runtime,
		)
		if err != nil {
			return err
		}

		query = `
			INSERT INTO shows (movie_id, start_time, price, seat_rows, seats_per_row)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`

		for _, show := range shows {
			err := tx.QueryRow(
				ctx,
				query,
				show.MovieID,
				show.StartTime,
				show.Price,
				show.SeatRows,
				show.SeatsPerRow,
			).Scan(&show.ID, &show.CreatedAt)

			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
					return ErrDuplicateShowtime
				}

				return err
			}
		}

		return nil
	})
}

func (p *PostgresShowRepository) GetById(ctx context.Context, id int64) (*domain.Show, error) {
	query := `
		SELECT id, movie_id, start_time, price::text, seat_rows, seats_per_row, created_at
		FROM shows
		WHERE id = $1
	`

	show, err := scanShow(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return show, nil
}

func (p *PostgresShowRepository) GetUpcomingByMovie(ctx context.Context, movieID int64) ([]*domain.Show, error) {
	query := `
		SELECT id, movie_id, start_time, price::text, seat_rows, seats_per_row, created_at
		FROM shows
		WHERE movie_id = $1 AND start_time >= now()
		ORDER BY start_time
	`

	rows, err := p.db.Query(ctx, query, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shows := make([]*domain.Show, 0)

	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, err
		}

		shows = append(shows, show)
	}

	return shows, rows.Err()
}

func scanShow(row pgx.Row) (*domain.Show, error) {
	var show domain.Show
	var price string

	err := row.Scan(
		&show.ID,
		&show.MovieID,
		&show.StartTime,
		&price,
		&show.SeatRows,
		&show.SeatsPerRow,
		&show.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	show.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}

	return &show, nil
}

func (p *PostgresShowRepository) GetOccupiedSeats(ctx context.Context, showID int64) ([]domain.OccupiedSeat, error) {
	query := `
		SELECT seat_label, booking_id::text, state
		FROM show_seats
		WHERE show_id = $1
		ORDER BY seat_label
	`

	rows, err := p.db.Query(ctx, query, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.OccupiedSeat, 0)

	for rows.Next() {
		var seat domain.OccupiedSeat

		err := rows.Scan(&seat.Label, &seat.BookingID, &seat.State)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	return seats, rows.Err()
}
