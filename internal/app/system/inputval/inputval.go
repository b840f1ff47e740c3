// Package inputval validates decoded request payloads with struct tags and
// turns failures into short client-facing messages.
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/barbearia/calendario/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Layouts accepted by the date and clock rules.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())

	// Use the label tag (or the json name) in messages instead of the Go field name.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
		return f.Name
	})

	_ = val.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return IsValidObjectID(fl.Field().String())
	})
	_ = val.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return IsValidRole(fl.Field().String())
	})
	_ = val.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		return IsValidDate(fl.Field().String())
	})
	_ = val.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return IsValidClock(fl.Field().String())
	})
	return val
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects the failures of one Validate call in field order.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Validate checks s (a struct or pointer to struct) against its validate tags.
func Validate(s any) *Result {
	res := &Result{}
	err := v.Struct(s)
	if err == nil {
		return res
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, FieldError{Message: "Invalid input."})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return label + " must be a valid id."
	case "role":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.Join(models.Roles(), ", "))
	case "date":
		return label + " must be a date in YYYY-MM-DD format."
	case "clock":
		return label + " must be a time in HH:MM format."
	default:
		return label + " is invalid."
	}
}

// IsValidEmail reports whether s (after trimming) is a plain address with
// no display name.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && v.Var(s, "email") == nil
}

// IsValidObjectID reports whether s (after trimming) is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// IsValidRole reports whether s (case-insensitive) is a known user role.
func IsValidRole(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range models.Roles() {
		if s == r {
			return true
		}
	}
	return false
}

// IsValidDate reports whether s is a calendar date in YYYY-MM-DD form.
func IsValidDate(s string) bool {
	_, err := time.Parse(DateLayout, strings.TrimSpace(s))
	return err == nil
}

// IsValidClock reports whether s is a wall-clock time in HH:MM form.
func IsValidClock(s string) bool {
	_, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	return err == nil
}
