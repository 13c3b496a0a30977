package validator

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"lessonbook/pkg/interval"
	"lessonbook/pkg/logger"
	"lessonbook/pkg/model"
)

type AvailabilityValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAvailabilityValidator(log *logger.Logger) *AvailabilityValidator {
	v := validator.New()

	if err := v.RegisterValidation("clock_time", validateClockTime); err != nil {
		log.Fatal("Failed to register 'clock_time' validator",
			"error", err,
		)
	}

	log.Info("Availability validator initialized successfully")

	return &AvailabilityValidator{
		validate: v,
		logger:   log,
	}
}

func validateClockTime(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := interval.ParseClock(value)
	return err == nil
}

func (v *AvailabilityValidator) Validate(window *model.AvailabilityWindow) error {
	if err := v.validate.Struct(window); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	// Tag validation already proved both clocks parse.
	start, _ := interval.ParseClock(window.StartTime)
	end, _ := interval.ParseClock(window.EndTime)
	if start >= end {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "end_time must be after start_time",
			},
		}
	}

	return nil
}

func (v *AvailabilityValidator) ValidateUpdate(update *model.AvailabilityWindowUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if update.StartTime != "" && update.EndTime != "" {
		start, _ := interval.ParseClock(update.StartTime)
		end, _ := interval.ParseClock(update.EndTime)
		if start >= end {
			return ValidationErrors{
				ValidationError{
					Field:   "EndTime",
					Message: "end_time must be after start_time",
				},
			}
		}
	}

	return nil
}

func (v *AvailabilityValidator) ValidateBlock(block *model.TimeBlock) error {
	if err := v.validate.Struct(block); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}
