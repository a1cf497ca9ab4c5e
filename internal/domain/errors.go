package domain

import (
	"errors"
	"fmt"
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages provides human-readable validation error messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"gte":      "Must be greater than or equal to minimum value",
	"gt":       "Must be greater than minimum value",
	"lte":      "Must be less than or equal to maximum value",
	"oneof":    "Must be one of the allowed values",
	"url":      "Must be a valid URL",
	"len":      "Must be exactly the specified length",
	"alpha":    "Must contain only alphabetic characters",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Error types used in APIError.Type
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeUnavailable  = "unavailable"
	ErrorTypeInternal     = "internal_error"
)

// ErrorKind classifies every failure an operation can surface
type ErrorKind string

const (
	KindAuthRequired ErrorKind = "AuthRequired"
	KindAccessDenied ErrorKind = "AccessDenied"
	KindNotFound     ErrorKind = "NotFound"
	KindConflict     ErrorKind = "Conflict"
	KindTransient    ErrorKind = "Transient"
	KindInvalid      ErrorKind = "Invalid"
)

// Sentinel errors, one per kind. errors.Is(err, ErrConflict) matches any *Error of that kind.
var (
	ErrAuthRequired = &Error{Kind: KindAuthRequired}
	ErrAccessDenied = &Error{Kind: KindAccessDenied}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrTransient    = &Error{Kind: KindTransient}
	ErrInvalid      = &Error{Kind: KindInvalid}
)

// Error is a classified failure of a named action ("update customer")
type Error struct {
	Kind   ErrorKind
	Action string
	Err    error
}

// NewError wraps err with a kind and the action that failed
func NewError(kind ErrorKind, action string, err error) *Error {
	return &Error{Kind: kind, Action: action, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Action != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Action, e.Kind, e.Err)
	case e.Action != "":
		return fmt.Sprintf("%s: %s", e.Action, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so the sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ActionOf returns the action recorded on err, or "" if there is none
func ActionOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Action
	}
	return ""
}
