package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the lifecycle taxonomy.
const (
	CodeInvalidTransition        = "INVALID_TRANSITION"
	CodeUnauthorizedAction       = "UNAUTHORIZED_ACTION"
	CodeValidationFailed         = "VALIDATION_FAILED"
	CodeConcurrentModification   = "CONCURRENT_MODIFICATION"
	CodeNoEligibleAssignee       = "NO_ELIGIBLE_ASSIGNEE"
	CodeSelfAssignmentNotAllowed = "SELF_ASSIGNMENT_NOT_ALLOWED"
	CodeNotFound                 = "NOT_FOUND"
	CodeUnauthorized             = "UNAUTHORIZED"
	CodeConflict                 = "CONFLICT"
	CodeInternal                 = "INTERNAL_ERROR"
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

// FieldViolation names one failed payload check. All violations for a request
// are collected and returned together.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// NewInvalidTransition reports an action not defined for the current state.
func NewInvalidTransition(action string, status string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("action %q is not allowed from status %q", action, status),
		http.StatusConflict,
		map[string]any{"action": action, "status": status})
}

// NewUnauthorizedAction reports insufficient standing for an action.
func NewUnauthorizedAction(reason string) error {
	return NewDomainError(CodeUnauthorizedAction, reason, http.StatusForbidden, nil)
}

// NewValidationFailed reports the full set of violated field checks.
func NewValidationFailed(violations []FieldViolation) error {
	return NewDomainError(CodeValidationFailed, "payload validation failed",
		http.StatusBadRequest,
		map[string]any{"violations": violations})
}

// NewValidationError reports a single malformed-request problem.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewConcurrentModification reports a lock/version conflict. The caller may
// retry after re-reading state.
func NewConcurrentModification(ticketID string) error {
	return NewDomainError(CodeConcurrentModification,
		"ticket was modified concurrently; re-read and retry",
		http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

// NewNoEligibleAssignee reports an empty candidate pool.
func NewNoEligibleAssignee(minLevel int) error {
	return NewDomainError(CodeNoEligibleAssignee,
		"no eligible assignee for the requested level",
		http.StatusConflict,
		map[string]any{"min_level": minLevel})
}

// NewSelfAssignmentNotAllowed reports a level-2 actor assigning a third party.
func NewSelfAssignmentNotAllowed() error {
	return NewDomainError(CodeSelfAssignmentNotAllowed,
		"level 2 may only assign tickets to themselves",
		http.StatusForbidden, nil)
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

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
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
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// CodeOf extracts the taxonomy code from an error, or INTERNAL_ERROR.
func CodeOf(err error) string {
	return ToDomainError(err).Code
}

func MapError(err error) error {
	return ToDomainError(err)
}
