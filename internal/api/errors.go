package api

import "net/http"

const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeAuthRequired      = "AUTHENTICATION_REQUIRED"
	CodeInvalidCredential = "INVALID_CREDENTIALS"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeResourceNotFound  = "RESOURCE_NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeConflict          = "CONFLICT"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternalError     = "INTERNAL_ERROR"
)

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// additional error context
type ErrorContext map[string]interface{}

// Error is the body of every non-2xx response.
type Error struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
	Context ErrorContext  `json:"context,omitempty"`
}

// builder pattern
type ErrorBuilder struct {
	Status  int
	Code    string
	Message string
	Details []ErrorDetail
	Context ErrorContext
}

func NewError(status int, code, message string) *ErrorBuilder {
	return &ErrorBuilder{Status: status, Code: code, Message: message}
}

func (e *ErrorBuilder) WithDetails(details []ErrorDetail) *ErrorBuilder {
	e.Details = details
	return e
}

func (e *ErrorBuilder) WithContext(context ErrorContext) *ErrorBuilder {
	e.Context = context
	return e
}

func (e *ErrorBuilder) Create() Error {
	body := ErrorBody{Code: e.Code, Message: e.Message}
	if len(e.Details) > 0 {
		body.Details = e.Details
	}
	if len(e.Context) > 0 {
		body.Context = e.Context
	}
	return Error{Error: body}
}

// builder pattern extensions

func Unauthorized(msg string) *ErrorBuilder {
	return NewError(http.StatusUnauthorized, CodeAuthRequired, msg)
}

func InvalidCredentials() *ErrorBuilder {
	return NewError(http.StatusUnauthorized, CodeInvalidCredential, "Invalid email or password")
}

func PermissionDenied(msg string) *ErrorBuilder {
	return NewError(http.StatusForbidden, CodePermissionDenied, msg)
}

func NotFound(resource string) *ErrorBuilder {
	return NewError(http.StatusNotFound, CodeResourceNotFound, resource+" not found")
}

func ValidationErr(msg string, details []ErrorDetail) *ErrorBuilder {
	return NewError(http.StatusBadRequest, CodeValidationError, msg).WithDetails(details)
}

func InsufficientStockErr(productName string, requested, available int32) *ErrorBuilder {
	return NewError(http.StatusConflict, CodeInsufficientStock, "Insufficient stock available").
		WithContext(ErrorContext{
			"product_name": productName,
			"requested":    requested,
			"available":    available,
		})
}

func RateLimited() *ErrorBuilder {
	return NewError(http.StatusTooManyRequests, CodeRateLimited, "Too many requests, slow down")
}

func InternalError(msg string) *ErrorBuilder {
	return NewError(http.StatusInternalServerError, CodeInternalError, msg)
}

func ConflictErr(msg string) *ErrorBuilder {
	return NewError(http.StatusConflict, CodeConflict, msg)
}
