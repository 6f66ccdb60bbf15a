package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/quickshow/quickshow/internal/domain"
	"github.com/quickshow/quickshow/internal/repository"
	"github.com/shopspring/decimal"
)

const defaultSeatRows = 10
const defaultSeatsPerRow = 9

type ScheduleEntryRequest struct {
	Date  string   `json:"date" validate:"required,showdate"`
	Times []string `json:"times" validate:"required,min=1,unique,dive,showtime"`
}

type CreateShowsRequest struct {
	MovieID     int64                  `json:"movieId" validate:"required,gt=0"`
	Price       decimal.Decimal        `json:"price" validate:"required"`
	Schedule    []ScheduleEntryRequest `json:"schedule" validate:"required,min=1,dive"`
	SeatRows    int                    `json:"seatRows" validate:"omitempty,gt=0,max=26"`
	SeatsPerRow int                    `json:"seatsPerRow" validate:"omitempty,gt=0,max=99"`
}

type MovieResponse struct {
	Id          int64    `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview,omitempty"`
	PosterUrl   string   `json:"posterUrl,omitempty"`
	BackdropUrl string   `json:"backdropUrl,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	CastMembers []string `json:"castMembers,omitempty"`
	ReleaseDate string   `json:"releaseDate,omitempty"`
	Language    string   `json:"language,omitempty"`
	Tagline     string   `json:"tagline,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Runtime     int      `json:"runtime,omitempty"`
}

type ShowResponse struct {
	Id          int64           `json:"id"`
	MovieId     int64           `json:"movieId"`
	StartTime   time.Time       `json:"startTime"`
	Price       decimal.Decimal `json:"price"`
	SeatRows    int             `json:"seatRows"`
	SeatsPerRow int             `json:"seatsPerRow"`
}

type CreateShowsResponse struct {
	Movie MovieResponse  `json:"movie"`
	Shows []ShowResponse `json:"shows"`
}

func (app *application) CreateShowsHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateShowsRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			app.failedValidationResponse(w, r, validationErrors)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	if !req.Price.IsPositive() {
		app.badRequestResponse(w, r, fmt.Errorf("price must be greater than zero"))
		return
	}

	if req.SeatRows == 0 {
		req.SeatRows = defaultSeatRows
	}
	if req.SeatsPerRow == 0 {
		req.SeatsPerRow = defaultSeatsPerRow
	}

	movie, err := app.movieRepo.GetById(r.Context(), req.MovieID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			app.serverErrorResponse(w, r, err)
			return
		}

		movie, err = app.movieCatalog.GetMovie(r.Context(), req.MovieID)
		if err != nil {
			if errors.Is(err, domain.ErrMovieNotInCatalog) {
				app.errorResponse(w, r, http.StatusNotFound, "No movie with this ID exists in the catalog")
				return
			}
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	shows, err := app.buildShows(req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.showRepo.CreateMovieWithShows(r.Context(), movie, shows)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateShowtime) {
			app.editConflictResponse(w, r, "A show already exists for this movie and start time")
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	app.logger.Info("created shows", "movie_id", movie.ID, "count", len(shows))

	resp := CreateShowsResponse{
		Movie: toMovieResponse(movie),
		Shows: make([]ShowResponse, 0, len(shows)),
	}
	for _, show := range shows {
		resp.Shows = append(resp.Shows, toShowResponse(show))
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) buildShows(req CreateShowsRequest) ([]*domain.Show, error) {
	now := time.Now()

	var shows []*domain.Show

	for _, entry := range req.Schedule {
		startTimes, err := domain.ScheduleEntry{Date: entry.Date, Times: entry.Times}.StartTimes(app.showLocation)
		if err != nil {
			return nil, err
		}

		for _, startTime := range startTimes {
			if startTime.Before(now) {
				return nil, fmt.Errorf("show at %s is in the past", startTime.Format(time.RFC3339))
			}

			shows = append(shows, &domain.Show{
				MovieID:     req.MovieID,
				StartTime:   startTime,
				Price:       req.Price,
				SeatRows:    req.SeatRows,
				SeatsPerRow: req.SeatsPerRow,
			})
		}
	}

	return shows, nil
}

func (app *application) GetMoviesWithShowsHandler(w http.ResponseWriter, r *http.Request) {
	movies, err := app.movieRepo.GetAllWithUpcomingShows(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := make([]MovieResponse, 0, len(movies))
	for _, movie := range movies {
		resp = append(resp, toMovieResponse(movie))
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type ShowtimeResponse struct {
	Id    int64           `json:"id"`
	Time  string          `json:"time"`
	Price decimal.Decimal `json:"price"`
}

type ShowtimesByDate struct {
	Date  string             `json:"date"`
	Times []ShowtimeResponse `json:"times"`
}

type MovieShowtimesResponse struct {
	Movie     MovieResponse     `json:"movie"`
	Showtimes []ShowtimesByDate `json:"showtimes"`
}

func (app *application) GetShowtimesByMovieHandler(w http.ResponseWriter, r *http.Request) {
	movieID, err := app.readIDParam(r, "movieID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	movie, err := app.movieRepo.GetById(r.Context(), movieID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	shows, err := app.showRepo.GetUpcomingByMovie(r.Context(), movieID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := MovieShowtimesResponse{
		Movie:     toMovieResponse(movie),
		Showtimes: toShowtimesByDate(shows, app.showLocation),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type SeatResponse struct {
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

type SeatRowResponse struct {
	Row   string         `json:"row"`
	Seats []SeatResponse `json:"seats"`
}

type SeatMapResponse struct {
	ShowId   int64             `json:"showId"`
	Price    decimal.Decimal   `json:"price"`
	SeatRows []SeatRowResponse `json:"seatRows"`
}

func (app *application) GetShowSeatsHandler(w http.ResponseWriter, r *http.Request) {
	showID, err := app.readIDParam(r, "showID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	show, err := app.showRepo.GetById(r.Context(), showID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	occupied, err := app.showRepo.GetOccupiedSeats(r.Context(), showID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := toSeatMapResponse(show, occupied)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toMovieResponse(movie *domain.Movie) MovieResponse {
	resp := MovieResponse{
		Id:          movie.ID,
		Title:       movie.Title,
		Overview:    movie.Overview,
		PosterUrl:   movie.PosterUrl,
		BackdropUrl: movie.BackdropUrl,
		Genres:      movie.Genres,
		CastMembers: movie.CastMembers,
		Language:    movie.Language,
		Tagline:     movie.Tagline,
		Rating:      movie.Rating,
		Runtime:     movie.Runtime,
	}

	if !movie.ReleaseDate.IsZero() {
		resp.ReleaseDate = movie.ReleaseDate.Format("2006-01-02")
	}

	return resp
}

func toShowResponse(show *domain.Show) ShowResponse {
	return ShowResponse{
		Id:          show.ID,
		MovieId:     show.MovieID,
		StartTime:   show.StartTime,
		Price:       show.Price,
		SeatRows:    show.SeatRows,
		SeatsPerRow: show.SeatsPerRow,
	}
}

// toShowtimesByDate groups upcoming shows by their local calendar date.
// Shows arrive pre-sorted by start time, so a single pass suffices.
func toShowtimesByDate(shows []*domain.Show, loc *time.Location) []ShowtimesByDate {
	showtimes := make([]ShowtimesByDate, 0)

	for _, show := range shows {
		local := show.StartTime.In(loc)
		date := local.Format("2006-01-02")

		entry := ShowtimeResponse{
			Id:    show.ID,
			Time:  local.Format("15:04"),
			Price: show.Price,
		}

		if n := len(showtimes); n > 0 && showtimes[n-1].Date == date {
			showtimes[n-1].Times = append(showtimes[n-1].Times, entry)
			continue
		}

		showtimes = append(showtimes, ShowtimesByDate{
			Date:  date,
			Times: []ShowtimeResponse{entry},
		})
	}

	return showtimes
}

func toSeatMapResponse(show *domain.Show, occupied []domain.OccupiedSeat) SeatMapResponse {
	taken := make(map[string]bool, len(occupied))
	for _, seat := range occupied {
		taken[seat.Label] = true
	}

	resp := SeatMapResponse{
		ShowId:   show.ID,
		Price:    show.Price,
		SeatRows: make([]SeatRowResponse, 0, show.SeatRows),
	}

	for row := 0; row < show.SeatRows; row++ {
		rowLetter := string(rune('A' + row))
		seatRow := SeatRowResponse{
			Row:   rowLetter,
			Seats: make([]SeatResponse, 0, show.SeatsPerRow),
		}

		for num := 1; num <= show.SeatsPerRow; num++ {
			label := fmt.Sprintf("%s%d", rowLetter, num)
			seatRow.Seats = append(seatRow.Seats, SeatResponse{
				Label:     label,
				Available: !taken[label],
			})
		}

		resp.SeatRows = append(resp.SeatRows, seatRow)
	}

	return resp
}
