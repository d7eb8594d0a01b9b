package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType is the tagged outcome callers switch on. Values are ordered by
// precedence: unauthorized > forbidden > not_found > validation_error > server_error.
type ErrorType string

const (
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeInternal     ErrorType = "server_error"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidBody      ErrorCode = "INVALID_BODY"
	ErrCodeInvalidID        ErrorCode = "INVALID_ID"
	ErrCodeRequired         ErrorCode = "REQUIRED"
	ErrCodeTooLong          ErrorCode = "TOO_LONG"
	ErrCodeInvalidFormat    ErrorCode = "INVALID_FORMAT"
	ErrCodeAlreadyTaken     ErrorCode = "ALREADY_TAKEN"
	ErrCodeOutOfRange       ErrorCode = "OUT_OF_RANGE"
	ErrCodeInvalidKind      ErrorCode = "INVALID_KIND"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"
	ErrCodeCannotInvite     ErrorCode = "CANNOT_INVITE"

	ErrCodeNoSession      ErrorCode = "NO_SESSION"
	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	ErrCodeUserNotFound   ErrorCode = "USER_NOT_FOUND"
	ErrCodeWrongPassword  ErrorCode = "WRONG_PASSWORD"

	ErrCodeNoMembership ErrorCode = "NO_MEMBERSHIP"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	ErrCodeOrganizationNotFound ErrorCode = "ORGANIZATION_NOT_FOUND"
	ErrCodeThreadNotFound       ErrorCode = "THREAD_NOT_FOUND"
	ErrCodeDepartmentNotFound   ErrorCode = "DEPARTMENT_NOT_FOUND"
	ErrCodeGroupNotFound        ErrorCode = "GROUP_NOT_FOUND"
	ErrCodeMemberNotFound       ErrorCode = "MEMBER_NOT_FOUND"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
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
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
		messages := make([]string, len(validationErrors.Errors))
		for i, err := range validationErrors.Errors {
			messages[i] = err.Message
		}
		return strings.Join(messages, "; ")
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so sentinel errors can be compared with errors.Is
// even after WithCause copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy so shared sentinels are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationFieldErrors([]ValidationError{{Field: field, Message: message, Code: string(code)}})
}

func NewValidationFieldErrors(errs []ValidationError) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    ValidationErrors{Errors: errs},
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

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrNoSession      = NewUnauthorizedError("no session", ErrCodeNoSession)
	ErrSessionExpired = NewUnauthorizedError("session expired or invalid", ErrCodeSessionExpired)
	ErrUserNotFound   = NewUnauthorizedError("no such user", ErrCodeUserNotFound)
	ErrWrongPassword  = NewUnauthorizedError("wrong password", ErrCodeWrongPassword)

	ErrNoMembership = NewForbiddenError("no access to this organization", ErrCodeNoMembership)
	ErrForbidden    = NewForbiddenError("insufficient permissions", ErrCodeForbidden)

	ErrOrganizationNotFound = NewNotFoundError("organization not found", ErrCodeOrganizationNotFound)
	ErrThreadNotFound       = NewNotFoundError("thread not found", ErrCodeThreadNotFound)
	ErrDepartmentNotFound   = NewNotFoundError("department not found", ErrCodeDepartmentNotFound)
	ErrGroupNotFound        = NewNotFoundError("group not found", ErrCodeGroupNotFound)
	ErrMemberNotFound       = NewNotFoundError("member not found", ErrCodeMemberNotFound)
)

// IsAppError unwraps err looking for an *AppError.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// AsAppError converts any error into an AppError; unknown errors become server_error.
func AsAppError(err error) *AppError {
	if appErr, ok := IsAppError(err); ok {
		return appErr
	}
	return NewInternalError("internal server error", err)
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	status := e.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, Response{Error: e}
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
