package main

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("isodate", validateISODate)
	_ = v.RegisterValidation("clock", validateClock)
	_ = v.RegisterValidation("role", validateRole)
	return v
}

// validateISODate accepts YYYY-MM-DD.
func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}

func validateClock(fl validator.FieldLevel) bool {
	return validClock(fl.Field().String())
}

// validClock accepts HH:MM or HH:MM:SS.
func validClock(s string) bool {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func validateRole(fl validator.FieldLevel) bool {
	_, ok := roleRank[fl.Field().String()]
	return ok
}

// validationError flattens validator output into one client-facing message.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "isodate":
			msgs = append(msgs, fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field))
		case "clock":
			msgs = append(msgs, fmt.Sprintf("%s must be a time (HH:MM)", field))
		case "role":
			msgs = append(msgs, fmt.Sprintf("%s must be one of user, admin, superadmin", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
