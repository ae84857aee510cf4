package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error independently of its message
type Kind string

const (
	KindUnknown              Kind = ""
	KindNotFound             Kind = "not_found"
	KindUnauthorized         Kind = "unauthorized"
	KindBadRequest           Kind = "bad_request"
	KindConflict             Kind = "conflict"
	KindInvalidTransition    Kind = "invalid_transition"
	KindAlreadyInTargetState Kind = "already_in_target_state"
	KindPermissionDenied     Kind = "permission_denied"
	KindStaleCurrencyState   Kind = "stale_currency_state"
	KindValidation           Kind = "validation"
	KindCartLocked           Kind = "cart_locked"
	KindNetwork              Kind = "network"
	KindTimeout              Kind = "timeout"
	KindInternal             Kind = "internal"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code      int          `json:"code"`
	Kind      Kind         `json:"kind,omitempty"`
	Message   string       `json:"message"`
	Errors    []FieldError `json:"errors,omitempty"`
	Retryable bool         `json:"retryable,omitempty"`
	// Data carries context the caller needs to recover, e.g. the pending
	// currency change behind a stale currency error.
	Data  interface{} `json:"data,omitempty"`
	cause error
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying infrastructure error, if any
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError of the same kind, so wrapped or re-messaged errors
// still satisfy errors.Is against the sentinels below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Kind == KindUnknown {
		return e == t
	}
	return e.Kind == t.Kind
}

// Common errors
var (
	ErrNotFound             = &AppError{Code: http.StatusNotFound, Kind: KindNotFound, Message: "Resource not found"}
	ErrUnauthorized         = &AppError{Code: http.StatusUnauthorized, Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrForbidden            = &AppError{Code: http.StatusForbidden, Kind: KindPermissionDenied, Message: "Forbidden"}
	ErrBadRequest           = &AppError{Code: http.StatusBadRequest, Kind: KindBadRequest, Message: "Bad request"}
	ErrInternalServer       = &AppError{Code: http.StatusInternalServerError, Kind: KindInternal, Message: "Internal server error"}
	ErrConflict             = &AppError{Code: http.StatusConflict, Kind: KindConflict, Message: "Resource already exists"}
	ErrInvalidToken         = &AppError{Code: http.StatusUnauthorized, Kind: KindUnauthorized, Message: "Invalid token"}
	ErrInvalidTransition    = &AppError{Code: http.StatusConflict, Kind: KindInvalidTransition, Message: "Invalid status transition"}
	ErrAlreadyInTargetState = &AppError{Code: http.StatusConflict, Kind: KindAlreadyInTargetState, Message: "Quotation is already in the requested status"}
	ErrPermissionDenied     = &AppError{Code: http.StatusForbidden, Kind: KindPermissionDenied, Message: "Permission denied"}
	ErrStaleCurrencyState   = &AppError{Code: http.StatusConflict, Kind: KindStaleCurrencyState, Message: "A currency change is awaiting confirmation"}
	ErrValidation           = &AppError{Code: http.StatusUnprocessableEntity, Kind: KindValidation, Message: "Validation failed"}
	ErrCartLocked           = &AppError{Code: http.StatusConflict, Kind: KindCartLocked, Message: "Cart can no longer be modified"}
	ErrNetwork              = &AppError{Code: http.StatusBadGateway, Kind: KindNetwork, Message: "Upstream call failed", Retryable: true}
	ErrTimeout              = &AppError{Code: http.StatusGatewayTimeout, Kind: KindTimeout, Message: "Upstream call timed out", Retryable: true}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Kind:    KindValidation,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewFieldValidationError creates a validation error for a single field
func NewFieldValidationError(field, message string) *AppError {
	return NewValidationError([]FieldError{{Field: field, Message: message}})
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Kind:    KindNotFound,
		Message: resource + " not found",
	}
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindConflict,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Kind:    KindBadRequest,
		Message: message,
	}
}

// NewInvalidTransitionError names the current status and the requested target
func NewInvalidTransitionError(from, to string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("Cannot move quotation from %s to %s", from, to),
		Data:    map[string]string{"current": from, "requested": to},
	}
}

// NewAlreadyInTargetStateError reports a transition that is already satisfied
func NewAlreadyInTargetStateError(status string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindAlreadyInTargetState,
		Message: fmt.Sprintf("Quotation is already %s", status),
		Data:    map[string]string{"current": status},
	}
}

// NewPermissionDeniedError creates a permission error for an action
func NewPermissionDeniedError(action string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Kind:    KindPermissionDenied,
		Message: "You do not have permission to " + action,
	}
}

// NewCartLockedError reports a cart edit attempted outside the editable statuses
func NewCartLockedError(status string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindCartLocked,
		Message: fmt.Sprintf("Cart cannot be modified while quotation is %s", status),
	}
}

// NewStaleCurrencyError blocks a mutation while a currency change is pending.
// pending is surfaced back to the caller so the prompt can be shown again.
func NewStaleCurrencyError(pending interface{}) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindStaleCurrencyState,
		Message: ErrStaleCurrencyState.Message,
		Data:    pending,
	}
}

// NewNetworkError wraps a failed collaborator call
func NewNetworkError(operation string, cause error) *AppError {
	return &AppError{
		Code:      http.StatusBadGateway,
		Kind:      KindNetwork,
		Message:   operation + " failed, please retry",
		Retryable: true,
		cause:     cause,
	}
}

// NewTimeoutError wraps a collaborator call that did not complete in time
func NewTimeoutError(operation string, cause error) *AppError {
	return &AppError{
		Code:      http.StatusGatewayTimeout,
		Kind:      KindTimeout,
		Message:   operation + " timed out, please retry",
		Retryable: true,
		cause:     cause,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Kind:    KindInternal,
		Message: err.Error(),
	}
}
