package domain

import (
	"context"
	"time"
)

// Movie is a local cache of a catalog entry. The ID is the external catalog
// identifier, so a movie is imported at most once and re-imports are no-ops.
type Movie struct {
	ID          int64
	Title       string
	Overview    string
	PosterUrl   string
	BackdropUrl string
	Genres      []string
	CastMembers []string
	ReleaseDate time.Time
	Language    string
	Tagline     string
	Rating      float64
	Runtime     int
	CreatedAt   time.Time
}

type MovieRepository interface {
	GetById(ctx context.Context, id int64) (*Movie, error)
	GetAllWithUpcomingShows(ctx context.Context) ([]*Movie, error)
}

// MovieCatalog is the external movie lookup collaborator.
type MovieCatalog interface {
	GetMovie(ctx context.Context, id int64) (*Movie, error)
}
