package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

var (
	// ErrForbidden is returned when the caller's role or ownership does not
	// permit the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned when the operation is not valid for the
	// current lifecycle state of the event or registration.
	ErrInvalidState = errors.New("operation not valid in current state")

	// The storage sentinels are re-exported so that callers of this package
	// need not import the repository package to classify errors.
	ErrNotFound           = repository.ErrNotFound
	ErrCapacityExceeded   = repository.ErrEventFull
	ErrAlreadyRegistered  = repository.ErrAlreadyRegistered
	ErrHasRegistrations   = repository.ErrHasRegistrations
	ErrCapacityBelowCount = repository.ErrCapacityBelowCount
)

// ValidationError lists the input fields that were missing or malformed.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

func invalid(reason string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Reason: reason}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and folds validator errors into a ValidationError.
func check(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	reason := "invalid fields"
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			reason = "missing required fields"
		}
		fields = append(fields, fe.Field())
	}
	return invalid(reason, fields...)
}
