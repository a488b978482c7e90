package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeLocked       ErrorType = "LOCKED"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidDuration  ErrorCode = "INVALID_DURATION"
	ErrCodeReasonTooShort   ErrorCode = "REASON_TOO_SHORT"
	ErrCodeInvalidUsername  ErrorCode = "INVALID_USERNAME"
	ErrCodeInvalidPassword  ErrorCode = "INVALID_PASSWORD"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeAuthFailed         ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeAccountSuspended   ErrorCode = "ACCOUNT_SUSPENDED"
	ErrCodeAccountInactive    ErrorCode = "ACCOUNT_INACTIVE"

	ErrCodePermissionPending ErrorCode = "PERMISSION_PENDING"
	ErrCodePermissionExpired ErrorCode = "PERMISSION_EXPIRED"
	ErrCodeAdminRequired     ErrorCode = "ADMIN_REQUIRED"
	ErrCodeAdminImmutable    ErrorCode = "ADMIN_IMMUTABLE"

	ErrCodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	ErrCodeRequestNotFound ErrorCode = "REQUEST_NOT_FOUND"
	ErrCodeTokenNotFound   ErrorCode = "RESET_TOKEN_INVALID"

	ErrCodeDuplicatePendingRequest ErrorCode = "DUPLICATE_PENDING_REQUEST"
	ErrCodeRequestAlreadyReviewed  ErrorCode = "REQUEST_ALREADY_REVIEWED"
	ErrCodeUsernameTaken           ErrorCode = "USERNAME_TAKEN"
	ErrCodeEmailTaken              ErrorCode = "EMAIL_TAKEN"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewLockedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeLocked,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusLocked,
	}
}

// NewConflictError maps workflow invariant violations to 400 rather than
// 409: duplicate pending requests and double reviews are part of the
// client-facing wire contract as bad requests.
func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	// Authentication failures are deliberately uniform: callers never learn
	// whether the username, the password, the token, or the session was the
	// problem.
	ErrInvalidCredentials = NewUnauthorizedError("invalid username or password", ErrCodeInvalidCredentials)
	ErrAuthFailed         = NewUnauthorizedError("authentication failed", ErrCodeAuthFailed)

	ErrAccountSuspended = NewForbiddenError("account suspended, please contact an administrator", ErrCodeAccountSuspended)
	ErrAccountInactive  = NewLockedError("account disabled, please reapply for access", ErrCodeAccountInactive)

	ErrPermissionPending = NewForbiddenError("your access request has not been approved yet", ErrCodePermissionPending)
	ErrPermissionExpired = NewForbiddenError("your access has expired, please reapply", ErrCodePermissionExpired)
	ErrAdminRequired     = NewForbiddenError("administrator privileges required", ErrCodeAdminRequired)
	ErrAdminImmutable    = NewValidationError("administrator accounts cannot be modified", ErrCodeAdminImmutable)

	ErrUserNotFound       = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrRequestNotFound    = NewNotFoundError("permission request not found", ErrCodeRequestNotFound)
	ErrResetTokenInvalid  = NewValidationError("reset link is invalid or has expired", ErrCodeTokenNotFound)
	ErrDuplicateRequest   = NewConflictError("a pending request already exists, please wait for review", ErrCodeDuplicatePendingRequest)
	ErrAlreadyReviewed    = NewConflictError("this request has already been reviewed", ErrCodeRequestAlreadyReviewed)
	ErrUsernameTaken      = NewValidationError("username is already taken", ErrCodeUsernameTaken)
	ErrEmailTaken         = NewValidationError("email is already registered", ErrCodeEmailTaken)
	ErrInvalidDuration    = NewValidationError("duration must be a preset or a day count like 30days", ErrCodeInvalidDuration)
	ErrApprovalNeedsGrant = NewValidationError("an approved duration is required when approving a request", ErrCodeInvalidDuration)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
