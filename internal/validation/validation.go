// Package validation runs field rules and collects every violation instead of
// stopping at the first one.
package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nopassword", func(fl validator.FieldLevel) bool {
		return !strings.Contains(strings.ToLower(fl.Field().String()), "password")
	})
	// maxbytes bounds the encoded length; max counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return v
}

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result accumulates field errors. The zero value is a passing result.
type Result struct {
	Errors []FieldError
}

// Check validates value against a comma separated validator tag and records
// one error per failed rule.
func (r *Result) Check(field string, value any, tag string) {
	err := validate.Var(value, tag)
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		r.Add(field, "invalid", err.Error())
		return
	}
	for _, fe := range verrs {
		r.Add(field, fe.Tag(), message(field, fe))
	}
}

func (r *Result) Add(field, rule, msg string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Rule: rule, Message: msg})
}

func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
}

func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns nil for a passing result and *Error otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &Error{Fields: r.Errors}
}

type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Email is invalid"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be a positive number", field)
	case "nopassword":
		return `Password cannot contain "password"`
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
