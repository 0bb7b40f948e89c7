package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to callers.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeStaleAssignment    = "STALE_ASSIGNMENT"
	CodeNoCapacity         = "NO_CAPACITY"
	CodeNoActiveAssignment = "NO_ACTIVE_ASSIGNMENT"
	CodeInternalError      = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewInvalidTransition reports an illegal status move. The current status is
// returned in details so the caller can resync its view.
func NewInvalidTransition(current, requested string) error {
	return NewDomainError(CodeInvalidTransition, "invalid status transition", http.StatusConflict, map[string]any{
		"current_status":   current,
		"requested_status": requested,
	})
}

// NewStaleAssignment reports a lost concurrency race. The caller should
// refresh and retry once, not loop.
func NewStaleAssignment(message string, details map[string]any) error {
	return NewDomainError(CodeStaleAssignment, message, http.StatusConflict, details)
}

// NewNoCapacity reports that no eligible official exists for a department.
// The grievance stays Pending; callers retry later or escalate.
func NewNoCapacity(department string) error {
	return NewDomainError(CodeNoCapacity, "no eligible staff available", http.StatusConflict, map[string]any{
		"department": department,
	})
}

// NewNoActiveAssignment reports a chat operation on a grievance that has no
// accepted officer.
func NewNoActiveAssignment(grievanceID string) error {
	return NewDomainError(CodeNoActiveAssignment, "grievance has no active assignment", http.StatusConflict, map[string]any{
		"grievance_id": grievanceID,
	})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
