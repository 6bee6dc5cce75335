// Package validation checks request payloads before they reach the store.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"scribe/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so messages match the request body.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

var messages = map[string]string{
	"required": "%s is required",
}

// Struct validates s and returns a map of JSON field names to messages.
// An empty map means s is valid.
func Struct(s any) map[string]string {
	fields := make(map[string]string)

	err := validate.Struct(s)
	if err == nil {
		return fields
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		fields["_"] = err.Error()
		return fields
	}

	for _, e := range validationErrs {
		fields[e.Field()] = message(e)
	}
	return fields
}

func message(e validator.FieldError) string {
	tmpl, ok := messages[e.Tag()]
	if !ok {
		return fmt.Sprintf("%s is invalid", e.Field())
	}
	return fmt.Sprintf(tmpl, e.Field())
}

// Post normalizes and validates a post payload.
// It returns the normalized input, or a VALIDATION_ERROR AppError.
func Post(in models.PostInput) (models.PostInput, error) {
	in = in.Normalize()
	if fields := Struct(&in); len(fields) > 0 {
		return in, models.NewValidationError("Invalid post", fields)
	}
	return in, nil
}
