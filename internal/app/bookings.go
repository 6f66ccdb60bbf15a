package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/quickshow/quickshow/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	Seats []string `json:"seats" validate:"required,min=1,max=10,unique,dive,seatlabel"`
}

type BookingResponse struct {
	Id        string          `json:"id"`
	ShowId    int64           `json:"showId"`
	Seats     []string        `json:"seats"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type CheckoutSessionResponse struct {
	RedirectUrl string `json:"redirectUrl"`
}

func (app *application) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	showID, err := app.readIDParam(r, "showID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var req CreateBookingRequest

	err = app.readJSON(w, r, &req)
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

	show, err := app.showRepo.GetById(r.Context(), showID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	for _, seat := range req.Seats {
		if !show.HasSeat(seat) {
			app.badRequestResponse(w, r, fmt.Errorf("seat %s does not exist in this hall", seat))
			return
		}
	}

	booking := domain.NewBooking(show, req.Seats, app.customerRef(r), app.config.booking.ttl)

	err = app.bookingRepo.Create(r.Context(), booking)
	if err != nil {
		var seatConflict domain.SeatConflictError
		if errors.As(err, &seatConflict) {
			app.seatConflictResponse(w, r, seatConflict.Seats)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	app.logger.Info("created booking", "booking_id", booking.ID, "show_id", showID, "seats", len(booking.Seats))

	err = app.writeJSON(w, http.StatusCreated, toBookingResponse(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	booking, ok := app.bookingOfCustomer(w, r)
	if !ok {
		return
	}

	if booking.Status.IsTerminal() {
		app.editConflictResponse(w, r, "This booking can no longer be paid for")
		return
	}

	show, err := app.showRepo.GetById(r.Context(), booking.ShowID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	movie, err := app.movieRepo.GetById(r.Context(), show.MovieID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	checkoutSession, err := app.paymentProvider.CreateCheckoutSession(r.Context(), booking, show, movie)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.bookingRepo.AttachCheckoutSession(r.Context(), booking.ID, checkoutSession.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionMismatch):
			app.editConflictResponse(w, r, "A checkout session already exists for this booking")
		case errors.Is(err, domain.ErrInvalidTransition):
			app.editConflictResponse(w, r, "This booking can no longer be paid for")
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := CheckoutSessionResponse{
		RedirectUrl: checkoutSession.URL,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	booking, ok := app.bookingOfCustomer(w, r)
	if !ok {
		return
	}

	err := app.writeJSON(w, http.StatusOK, toBookingResponse(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetBookingsOfCustomerHandler(w http.ResponseWriter, r *http.Request) {
	bookings, err := app.bookingRepo.GetByCustomer(r.Context(), app.customerRef(r))
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := make([]BookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		resp = append(resp, toBookingResponse(booking))
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	booking, ok := app.bookingOfCustomer(w, r)
	if !ok {
		return
	}

	err := app.bookingRepo.Cancel(r.Context(), booking.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTransition):
			app.editConflictResponse(w, r, "This booking can no longer be cancelled")
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.logger.Info("cancelled booking", "booking_id", booking.ID)

	w.WriteHeader(http.StatusNoContent)
}

// bookingOfCustomer loads the booking from the URL and enforces that it
// belongs to the calling session. A foreign booking reads as not found so
// booking IDs cannot be probed.
func (app *application) bookingOfCustomer(w http.ResponseWriter, r *http.Request) (*domain.Booking, bool) {
	bookingID, err := app.readUUIDParam(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return nil, false
	}

	booking, err := app.bookingRepo.GetById(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return nil, false
		}
		app.serverErrorResponse(w, r, err)
		return nil, false
	}

	if booking.CustomerRef != app.customerRef(r) {
		app.notFoundResponse(w, r)
		return nil, false
	}

	return booking, true
}

func toBookingResponse(booking *domain.Booking) BookingResponse {
	return BookingResponse{
		Id:        booking.ID.String(),
		ShowId:    booking.ShowID,
		Seats:     booking.Seats,
		Amount:    booking.Amount,
		Status:    string(booking.Status),
		CreatedAt: booking.CreatedAt,
		ExpiresAt: booking.ExpiresAt,
	}
}
