package services

import (
	"errors"
	"fmt"

	"github.com/glassline/admin-dashboard/repositories"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnavailable  ErrorType = "unavailable"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError represents a structured error with additional context.
// Code is set on named sentinels so callers can tell two errors of the
// same type apart.
type DomainError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. A target without a code matches every error of
// its type; a coded target matches only errors carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Type != t.Type {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// WithDetail returns a copy of e carrying an extra detail
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	c := e.clone()
	c.Details[key] = value
	return c
}

// Wrap returns a copy of e with err as its cause. Sentinels are never mutated.
func (e *DomainError) Wrap(err error) *DomainError {
	c := e.clone()
	c.Err = err
	return c
}

// WithMessage returns a copy of e with a more specific message
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	c := e.clone()
	c.Message = fmt.Sprintf(format, args...)
	return c
}

func (e *DomainError) clone() *DomainError {
	c := *e
	c.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		c.Details[k] = v
	}
	return &c
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

func newSentinel(errType ErrorType, code, message string) *DomainError {
	e := NewDomainError(errType, message, nil)
	e.Code = code
	return e
}

// Domain error variables

var (
	// Not Found Errors
	ErrNotFound         = NewDomainError(ErrorTypeNotFound, "not found", nil)
	ErrPositionNotFound = newSentinel(ErrorTypeNotFound, "position_not_found", "position not found")
	ErrAdminNotFound    = newSentinel(ErrorTypeNotFound, "admin_not_found", "admin account not found")
	ErrPageNotFound     = newSentinel(ErrorTypeNotFound, "page_not_found", "page not found")

	// Validation Errors
	ErrInvalidInput    = newSentinel(ErrorTypeValidation, "invalid_input", "invalid input")
	ErrUnknownPageKeys = newSentinel(ErrorTypeValidation, "unknown_page_keys", "unknown page keys")
	ErrWeakPassword    = newSentinel(ErrorTypeValidation, "weak_password", "password must be at least 8 characters")
	ErrPasswordTooLong = newSentinel(ErrorTypeValidation, "password_too_long", "password must be at most 72 bytes")

	// Authentication Errors
	ErrUnauthorized        = newSentinel(ErrorTypeUnauthorized, "unauthorized", "unauthorized")
	ErrInvalidCredentials  = newSentinel(ErrorTypeUnauthorized, "invalid_credentials", "invalid username or password")
	ErrAccountInactive     = newSentinel(ErrorTypeUnauthorized, "account_inactive", "account is deactivated")
	ErrInvalidSessionToken = newSentinel(ErrorTypeUnauthorized, "invalid_session", "invalid or expired session")

	// Permission Errors
	ErrForbidden               = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrInsufficientPermissions = newSentinel(ErrorTypeForbidden, "insufficient_permissions", "insufficient permissions")
	ErrSuperadminRequired      = newSentinel(ErrorTypeForbidden, "superadmin_required", "superadmin access required")
	ErrProtectedPosition       = newSentinel(ErrorTypeForbidden, "protected_position", "the superadmin position cannot be renamed or deleted").
					WithDetail("rule", "protected_position")
	ErrSelfDeactivation = newSentinel(ErrorTypeForbidden, "self_deactivation", "you cannot deactivate your own account")

	// Conflict Errors
	ErrDuplicateName     = newSentinel(ErrorTypeConflict, "duplicate_name", "a position with this name already exists")
	ErrDuplicateUsername = newSentinel(ErrorTypeConflict, "duplicate_username", "username already exists")

	// Availability Errors
	ErrStoreUnavailable = newSentinel(ErrorTypeUnavailable, "store_unavailable", "data store unavailable")

	// Internal Errors
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsUnavailableError checks if an error is a store availability error
func IsUnavailableError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnavailable
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapStore converts a repository error into a domain error. Not-found
// becomes notFound, duplicates become conflict and anything else means the
// store is unavailable.
func WrapStore(err error, notFound, conflict *DomainError) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case notFound != nil && errors.Is(err, repositories.ErrNotFound):
		return notFound.Wrap(err)
	case conflict != nil && errors.Is(err, repositories.ErrDuplicate):
		return conflict.Wrap(err)
	default:
		return ErrStoreUnavailable.Wrap(err)
	}
}
