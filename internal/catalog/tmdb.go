package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quickshow/quickshow/internal/domain"
)

const imageBaseURL = "https://image.tmdb.org/t/p/original"

// TMDBCatalog looks movies up in The Movie Database. It is the only place
// the service talks to the catalog; everything downstream works off the
// locally cached Movie record.
type TMDBCatalog struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewTMDBCatalog(baseURL, apiKey string) *TMDBCatalog {
	return &TMDBCatalog{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type movieDetailsResponse struct {
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Genres       []genre `json:"genres"`
	ReleaseDate  string  `json:"release_date"`
	Language     string  `json:"original_language"`
	Tagline      string  `json:"tagline"`
	VoteAverage  float64 `json:"vote_average"`
	Runtime      int     `json:"runtime"`
}

type genre struct {
	Name string `json:"name"`
}

type movieCreditsResponse struct {
	Cast []castMember `json:"cast"`
}

type castMember struct {
	Name string `json:"name"`
}

func (c *TMDBCatalog) GetMovie(ctx context.Context, id int64) (*domain.Movie, error) {
	var details movieDetailsResponse

	err := c.get(ctx, fmt.Sprintf("%s/movie/%d", c.baseURL, id), &details)
	if err != nil {
		return nil, err
	}

	var credits movieCreditsResponse

	err = c.get(ctx, fmt.Sprintf("%s/movie/%d/credits", c.baseURL, id), &credits)
	if err != nil {
		return nil, err
	}

	movie := &domain.Movie{
		ID:          id,
		Title:       details.Title,
		Overview:    details.Overview,
		Genres:      make([]string, 0, len(details.Genres)),
		CastMembers: make([]string, 0, len(credits.Cast)),
		Language:    details.Language,
		Tagline:     details.Tagline,
		Rating:      details.VoteAverage,
		Runtime:     details.Runtime,
	}

	if details.PosterPath != "" {
		movie.PosterUrl = imageBaseURL + details.PosterPath
	}
	if details.BackdropPath != "" {
		movie.BackdropUrl = imageBaseURL + details.BackdropPath
	}

	for _, g := range details.Genres {
		movie.Genres = append(movie.Genres, g.Name)
	}

	for _, member := range credits.Cast {
		movie.CastMembers = append(movie.CastMembers, member.Name)
	}

	if details.ReleaseDate != "" {
		releaseDate, err := time.Parse("2006-01-02", details.ReleaseDate)
		if err == nil {
			movie.ReleaseDate = releaseDate
		}
	}

	return movie, nil
}

func (c *TMDBCatalog) get(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrMovieNotInCatalog
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("catalog returned unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}
