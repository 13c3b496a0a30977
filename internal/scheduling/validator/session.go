package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"lessonbook/pkg/logger"
	"lessonbook/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type SessionValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSessionValidator(log *logger.Logger) *SessionValidator {
	v := validator.New()

	log.Info("Session validator initialized successfully")

	return &SessionValidator{
		validate: v,
		logger:   log,
	}
}

// Validate checks a fully built session before it is persisted. The caller
// passes its own clock so tests can pin it.
func (v *SessionValidator) Validate(session *model.Session, now time.Time) error {
	if err := v.validate.Struct(session); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if !session.ScheduledAt.After(now) {
		return ValidationErrors{
			ValidationError{
				Field:   "ScheduledAt",
				Message: "scheduled_at must be in the future",
			},
		}
	}

	return nil
}

// ValidateSeriesBooking checks the shared fields and start list of a series
// request. Individual starts are validated when each one is booked, so a
// single past instant fails its own position instead of the whole request.
func (v *SessionValidator) ValidateSeriesBooking(req *model.SeriesBookingRequest, maxSessions int) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if len(req.StartTimes) > maxSessions {
		return ValidationErrors{
			ValidationError{
				Field:   "StartTimes",
				Message: fmt.Sprintf("at most %d sessions can be booked per request, got %d", maxSessions, len(req.StartTimes)),
			},
		}
	}

	return nil
}

func (v *SessionValidator) ValidateReschedule(req *model.RescheduleRequest, now time.Time) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if !req.NewScheduledAt.After(now) {
		return ValidationErrors{
			ValidationError{
				Field:   "NewScheduledAt",
				Message: "new_scheduled_at must be in the future",
			},
		}
	}

	return nil
}

func (v *SessionValidator) ValidateSeriesReschedule(req *model.SeriesRescheduleRequest, now time.Time) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if !req.NewStartTime.After(now) {
		return ValidationErrors{
			ValidationError{
				Field:   "NewStartTime",
				Message: "new_start_time must be in the future",
			},
		}
	}

	return nil
}

func (v *SessionValidator) ValidateCancel(req *model.CancelRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *SessionValidator) ValidateStatusUpdate(req *model.StatusUpdateRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "clock_time":
			message = fmt.Sprintf("%s must be a zero-padded HH:MM time", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
