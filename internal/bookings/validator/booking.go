package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "lendly/pkg/errors"
	"lendly/pkg/model"
)

// BookingValidator checks the structural shape of incoming bookings. The
// temporal and referential rules live in the service, where the clock and
// the repositories are.
type BookingValidator struct {
	validate *validator.Validate
}

func NewBookingValidator() *BookingValidator {
	return &BookingValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (v *BookingValidator) ValidateCreate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		return apperrors.Validation("invalid booking", translateValidationErrors(err))
	}
	return nil
}

func translateValidationErrors(err error) map[string]any {
	details := make(map[string]any)
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fieldErr := range validationErrs {
			details[fieldErr.Field()] = fmt.Sprintf("failed on %s", fieldErr.Tag())
		}
	}
	return details
}
