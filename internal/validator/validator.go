package validator

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/quickshow/quickshow/internal/domain"
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("showdate", validateShowDate)
	validator.RegisterValidation("showtime", validateShowTime)
	validator.RegisterValidation("seatlabel", validateSeatLabel)

	return validator
}

func validateShowDate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func validateShowTime(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

func validateSeatLabel(fl validator.FieldLevel) bool {
	_, _, ok := domain.ParseSeatLabel(fl.Field().String())
	return ok
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s items", err.Param())
	case "max":
		return fmt.Sprintf("must contain at most %s items", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "unique":
		return "must not contain duplicates"
	case "showdate":
		return "must be a date in YYYY-MM-DD format"
	case "showtime":
		return "must be a time in HH:MM format"
	case "seatlabel":
		return "must be a seat label such as A1 or C12"
	default:
		return "is invalid"
	}
}
