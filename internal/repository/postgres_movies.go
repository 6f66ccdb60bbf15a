package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quickshow/quickshow/internal/domain"
)

type PostgresMovieRepository struct {
	db *pgxpool.Pool
}

func NewPostgresMovieRepository(db *pgxpool.Pool) *PostgresMovieRepository {
	return &PostgresMovieRepository{
		db: db,
	}
}

func (p *PostgresMovieRepository) GetById(ctx context.Context, id int64) (*domain.Movie, error) {
	query := `
		SELECT id, title, overview, poster_url, backdrop_url, genres, cast_members,
			COALESCE(release_date, '0001-01-01'::date), language, tagline, rating::float8, runtime, created_at
		FROM movies
		WHERE id = $1
	`

	movie, err := scanMovie(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return movie, nil
}

func (p *PostgresMovieRepository) GetAllWithUpcomingShows(ctx context.Context) ([]*domain.Movie, error) {
	query := `
		SELECT id, title, overview, poster_url, backdrop_url, genres, cast_members,
			COALESCE(release_date, '0001-01-01'::date), language, tagline, rating::float8, runtime, created_at
		FROM movies m
		WHERE EXISTS (
			SELECT 1 FROM shows s WHERE s.movie_id = m.id AND s.start_time >= now()
		)
		ORDER BY title
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := make([]*domain.Movie, 0)

	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}

		movies = append(movies, movie)
	}

	return movies, rows.Err()
}

func scanMovie(row pgx.Row) (*domain.Movie, error) {
	var movie domain.Movie

	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Overview,
		&movie.PosterUrl,
		&movie.BackdropUrl,
		&movie.Genres,
		&movie.CastMembers,
		&movie.ReleaseDate,
		&movie.Language,
		&movie.Tagline,
		&movie.Rating,
		&movie.Runtime,
		&movie.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &movie, nil
}
