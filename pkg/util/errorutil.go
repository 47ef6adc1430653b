package util

import (
	"errors"
	"fmt"
	"net/http"
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
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewInvalidTransition signals a state-machine guard rejection. Recoverable:
// the caller should refresh ticket state and pick a different action.
func NewInvalidTransition(message string, details map[string]any) error {
	return NewDomainError("INVALID_TRANSITION", message, http.StatusConflict, details)
}

// NewAlreadyAssigned signals the losing side of a concurrent claim.
func NewAlreadyAssigned(ticketID string) error {
	return NewDomainError("ALREADY_ASSIGNED", "ticket already assigned", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

// NewNotOwner signals a transfer attempted by a non-owning staff member.
func NewNotOwner(ticketID string) error {
	return NewDomainError("NOT_OWNER", "ticket owned by another staff member", http.StatusForbidden,
		map[string]any{"ticket_id": ticketID})
}

// NewTicketFinalized signals a mutation against a COMPLETED or CLOSED ticket.
func NewTicketFinalized(ticketID string) error {
	return NewDomainError("TICKET_FINALIZED", "ticket is finalized", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

// NewPriorityOrderingViolation signals a loyalty-rule mutation that would
// break the strict spend ordering among active rules. The store is unchanged.
func NewPriorityOrderingViolation(reason string) error {
	return NewDomainError("PRIORITY_ORDERING_VIOLATION", reason, http.StatusUnprocessableEntity, nil)
}

// ErrNoRuleConfigured marks a gap in the SLA matrix. Callers fall back to the
// configured default pair; this is a configuration defect, never a user error.
var ErrNoRuleConfigured = errors.New("no sla rule configured")

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
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
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// CodeOf extracts the taxonomy code of err, or INTERNAL_ERROR.
func CodeOf(err error) string {
	return ToDomainError(err).Code
}
