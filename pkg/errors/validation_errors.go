package errors

import (
	"fmt"
	"strings"
)

// ValidationErrors collects every problem found in one pass over a document
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates an empty collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add records a problem with field
func (v *ValidationErrors) Add(field string, message string) {
	v.Errors = append(v.Errors,
		NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).WithDetail("field", field))
}

// AddError records a rule violation, usually a decorated sentinel copy
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors reports whether anything was recorded
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("invalid document: %s", strings.Join(messages, "; "))
}

// ToMap groups the messages by field; errors without one land under
// "general"
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)
	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		result[field] = append(result[field], err.Message)
	}
	return result
}
