package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainErrorType is the category of a canvas rule violation
type DomainErrorType string

const (
	DomainValidationError   DomainErrorType = "VALIDATION_ERROR"
	DomainBusinessRuleError DomainErrorType = "BUSINESS_RULE_ERROR"
	DomainNotFoundError     DomainErrorType = "NOT_FOUND"
	DomainConflictError     DomainErrorType = "CONFLICT"
)

// DomainError is a canvas rule violation
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		StatusCode: statusForDomainType(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Copy returns an independent copy, so sentinels can be decorated safely
func (e *DomainError) Copy() *DomainError {
	c := *e
	c.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		c.Details[k] = v
	}
	return &c
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// Is matches on type and code, so a decorated copy still matches its
// sentinel
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func statusForDomainType(t DomainErrorType) int {
	switch t {
	case DomainValidationError:
		return http.StatusBadRequest
	case DomainBusinessRuleError:
		return http.StatusUnprocessableEntity
	case DomainNotFoundError:
		return http.StatusNotFound
	case DomainConflictError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AsDomainError extracts a DomainError from an error chain
func AsDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// Canvas rule violations. Wrap them with fmt.Errorf("%w: ...") to name the
// offending id.
var (
	ErrNoteNotFound           = NewDomainError(DomainNotFoundError, "NOTE_NOT_FOUND", "note not found")
	ErrZoneNotFound           = NewDomainError(DomainNotFoundError, "ZONE_NOT_FOUND", "zone not found")
	ErrConnectionNotFound     = NewDomainError(DomainNotFoundError, "CONNECTION_NOT_FOUND", "connection not found")
	ErrParentZoneNotFound     = NewDomainError(DomainValidationError, "PARENT_ZONE_NOT_FOUND", "parent zone not found")
	ErrInvalidGeometry        = NewDomainError(DomainValidationError, "INVALID_GEOMETRY", "coordinates must be finite and sizes positive")
	ErrMessageIndexOutOfRange = NewDomainError(DomainValidationError, "MESSAGE_INDEX_OUT_OF_RANGE", "message index out of range")
	ErrWorkspaceRequired      = NewDomainError(DomainValidationError, "WORKSPACE_REQUIRED", "workspace id is required")
	ErrUnsupportedSchema      = NewDomainError(DomainValidationError, "UNSUPPORTED_SCHEMA", "document schema is newer than this build")
	ErrDuplicateNote          = NewDomainError(DomainConflictError, "DUPLICATE_NOTE", "note id already in use")
	ErrDuplicateZone          = NewDomainError(DomainConflictError, "DUPLICATE_ZONE", "zone id already in use")
	ErrSelfConnection         = NewDomainError(DomainBusinessRuleError, "SELF_CONNECTION", "a note cannot connect to itself")
	ErrZoneCycle              = NewDomainError(DomainBusinessRuleError, "ZONE_CYCLE", "a zone cannot nest inside its own subtree")
	ErrNotEnoughNotes         = NewDomainError(DomainBusinessRuleError, "NOT_ENOUGH_NOTES", "not enough notes to analyze")
)
