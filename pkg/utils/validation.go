package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "nodal/pkg/errors"
)

var validate = newValidator()

// newValidator reports fields by their JSON names so messages match what
// the client sent
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidateStruct checks the validate tags of s. Failures come back as a
// VALIDATION AppError whose details map each offending field to its message.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.NewValidationError(err.Error()).WithCause(err)
	}

	messages := make([]string, 0, len(fieldErrs))
	fields := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := describe(fe)
		messages = append(messages, msg)
		fields[fe.Field()] = msg
	}
	return pkgerrors.NewValidationError(strings.Join(messages, "; ")).
		WithDetails(map[string]interface{}{"fields": fields})
}

var tagMessages = map[string]string{
	"required":         "%s is required",
	"required_without": "%s is required when %s is absent",
	"min":              "%s must be at least %s",
	"gte":              "%s must be at least %s",
	"max":              "%s must be at most %s",
	"gt":               "%s must be greater than %s",
	"oneof":            "%s must be one of: %s",
	"nefield":          "%s must differ from %s",
}

func describe(fe validator.FieldError) string {
	format, ok := tagMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
	if strings.Count(format, "%s") == 1 {
		return fmt.Sprintf(format, fe.Field())
	}
	return fmt.Sprintf(format, fe.Field(), fe.Param())
}
