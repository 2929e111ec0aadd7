package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	// Fields заполняется для ошибок валидации: поле -> сообщение.
	Fields     map[string]string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation создаёт ошибку валидации с картой полей.
func Validation(message string, fields map[string]string) *AppError {
	e := New(ErrCodeValidation, message)
	e.Fields = fields
	return e
}

// Internal оборачивает неожиданную ошибку. Клиент видит только общее сообщение.
func Internal(err error) *AppError {
	return Wrap(err, ErrCodeInternal, "внутренняя ошибка сервера")
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или INTERNAL_ERROR для посторонних ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeForbidden
}

func IsValidation(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeValidation
}

func IsConflict(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeConflict
}

func IsUnauthorized(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeUnauthorized
}

var (
	ErrAssignmentNotFound   = New(ErrCodeNotFound, "задание не найдено")
	ErrBidNotFound          = New(ErrCodeNotFound, "отклик не найден")
	ErrSubmissionNotFound   = New(ErrCodeNotFound, "результат работы не найден")
	ErrDisputeNotFound      = New(ErrCodeNotFound, "спор не найден")
	ErrPaymentNotFound      = New(ErrCodeNotFound, "платёж по заданию не найден")
	ErrUserNotFound         = New(ErrCodeNotFound, "пользователь не найден")
	ErrNotificationNotFound = New(ErrCodeNotFound, "уведомление не найдено")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden            = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials   = New(ErrCodeUnauthorized, "неверные учетные данные")
)
