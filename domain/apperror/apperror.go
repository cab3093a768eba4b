package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes for different categories
const (
	// Authentication errors (AUTH_1xxx)
	ErrCodeInvalidCredentials ErrorCode = "AUTH_1001"
	ErrCodeInvalidToken       ErrorCode = "AUTH_1002"
	ErrCodeExpiredToken       ErrorCode = "AUTH_1003"
	ErrCodeTokenTypeMismatch  ErrorCode = "AUTH_1004"
	ErrCodeTokenNotFound      ErrorCode = "AUTH_1005"
	ErrCodeTokenMismatch      ErrorCode = "AUTH_1006"

	// Account errors (USER_2xxx)
	ErrCodeUserNotFound             ErrorCode = "USER_2001"
	ErrCodeDuplicateUser            ErrorCode = "USER_2002"
	ErrCodeEmailNotVerified         ErrorCode = "USER_2003"
	ErrCodeInvalidVerificationCode  ErrorCode = "USER_2004"
	ErrCodePasswordChangeNotAllowed ErrorCode = "USER_2005"

	// Validation errors (VALID_3xxx)
	ErrCodeInvalidRequest ErrorCode = "VALID_3001"

	// Server errors (SERVER_5xxx)
	ErrCodeInternal ErrorCode = "SERVER_5001"
)

// BusinessCodeExpiredAccessToken is the machine-readable marker returned in
// the response body when an access token is past its expiry. Clients key
// off it to trigger the reissue flow instead of forcing a fresh login.
const BusinessCodeExpiredAccessToken = 1000

// AppError is a tagged application error. Auth operations return these
// instead of raw errors so the HTTP boundary can map each failure to a
// status code without inspecting message text.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches two AppErrors by code so errors.Is works with the
// catalog constructors below regardless of message or cause.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

func New(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Common error constructors

func InvalidCredentials() *AppError {
	return New(ErrCodeInvalidCredentials, "invalid email or password", nil)
}

func InvalidToken(message string) *AppError {
	if message == "" {
		message = "invalid token"
	}
	return New(ErrCodeInvalidToken, message, nil)
}

func ExpiredToken() *AppError {
	return New(ErrCodeExpiredToken, "token has expired", nil)
}

func TokenTypeMismatch() *AppError {
	return New(ErrCodeTokenTypeMismatch, "unexpected token type", nil)
}

func TokenNotFound() *AppError {
	return New(ErrCodeTokenNotFound, "no refresh token on record", nil)
}

func TokenMismatch() *AppError {
	return New(ErrCodeTokenMismatch, "refresh token does not match the one on record", nil)
}

func UserNotFound() *AppError {
	return New(ErrCodeUserNotFound, "user not found", nil)
}

func DuplicateUser() *AppError {
	return New(ErrCodeDuplicateUser, "email is already registered", nil)
}

func EmailNotVerified() *AppError {
	return New(ErrCodeEmailNotVerified, "email is not verified", nil)
}

func InvalidVerificationCode() *AppError {
	return New(ErrCodeInvalidVerificationCode, "invalid or expired verification code", nil)
}

func PasswordChangeNotAllowed() *AppError {
	return New(ErrCodePasswordChangeNotAllowed, "password change is not allowed for this account", nil)
}

func InvalidRequest(message string) *AppError {
	return New(ErrCodeInvalidRequest, message, nil)
}

func Internal(message string, cause error) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return New(ErrCodeInternal, message, cause)
}

// HTTPStatus maps an error to the transport status code. Unclassified
// errors map to 500; their detail is logged server-side, never sent to
// the client.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case ErrCodeInvalidCredentials,
		ErrCodeInvalidToken,
		ErrCodeExpiredToken,
		ErrCodeTokenTypeMismatch,
		ErrCodeTokenNotFound,
		ErrCodeTokenMismatch:
		return http.StatusUnauthorized
	case ErrCodeUserNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateUser:
		return http.StatusConflict
	case ErrCodeEmailNotVerified,
		ErrCodeInvalidVerificationCode,
		ErrCodePasswordChangeNotAllowed,
		ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
