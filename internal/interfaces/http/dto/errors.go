package dto

import (
	"net/http"
	"strings"
)

// Generic error codes use the ERR_<CATEGORY> format. Domain codes such as
// INSUFFICIENT_STOCK or ORDER_NOT_FOUND are passed to clients unchanged.

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "TOKEN_INVALID"
	ErrCodeTokenRevoked = "TOKEN_REVOKED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
)

// Input error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// Availability error codes
const (
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	// Accounts
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"TOKEN_REUSED":        http.StatusUnauthorized,
	"ACCOUNT_LOCKED":      http.StatusLocked,
	"ACCOUNT_DEACTIVATED": http.StatusForbidden,
	"USER_DEACTIVATED":    http.StatusForbidden,
	"SELF_MODIFICATION":   http.StatusForbidden,
	"EMAIL_TAKEN":         http.StatusConflict,
	"USER_NOT_FOUND":      http.StatusNotFound,
	"PASSWORD_UNCHANGED":  http.StatusUnprocessableEntity,
	"ALREADY_ACTIVE":      http.StatusUnprocessableEntity,
	"ALREADY_DEACTIVATED": http.StatusUnprocessableEntity,
	"NOT_LOCKED":          http.StatusUnprocessableEntity,
	"PASSWORD_HASH_ERROR": http.StatusInternalServerError,

	// Catalog
	"PRODUCT_NOT_FOUND":     http.StatusNotFound,
	"CATEGORY_NOT_FOUND":    http.StatusNotFound,
	"SKU_TAKEN":             http.StatusConflict,
	"SLUG_TAKEN":            http.StatusConflict,
	"CATEGORY_IN_USE":       http.StatusConflict,
	"CATEGORY_HAS_CHILDREN": http.StatusConflict,
	"ALREADY_INACTIVE":      http.StatusUnprocessableEntity,
	"IMAGE_NOT_UPLOADED":    http.StatusUnprocessableEntity,
	"STORAGE_UNAVAILABLE":   http.StatusServiceUnavailable,

	// Cart
	"CART_OWNER_REQUIRED":     http.StatusBadRequest,
	"CART_ITEM_NOT_FOUND":     http.StatusNotFound,
	"CART_NOT_ACTIVE":         http.StatusConflict,
	"CART_FULL":               http.StatusUnprocessableEntity,
	"QUANTITY_LIMIT_EXCEEDED": http.StatusUnprocessableEntity,
	"PRODUCT_UNAVAILABLE":     http.StatusUnprocessableEntity,

	// Orders
	"ORDER_NOT_FOUND":        http.StatusNotFound,
	"CART_EMPTY":             http.StatusUnprocessableEntity,
	"ORDER_NOT_CANCELLABLE":  http.StatusUnprocessableEntity,
	"CHECKOUT_IN_PROGRESS":   http.StatusConflict,
	"DUPLICATE_ORDER_NUMBER": http.StatusConflict,
	"ORDER_NUMBER_EXHAUSTED": http.StatusServiceUnavailable,
	"INVOICE_UNAVAILABLE":    http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code. Unmapped
// INVALID_* codes are input errors; anything else unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps the generic domain codes and aliases used by
// middleware to the standardized codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
	"INVALID_TOKEN":        ErrCodeTokenInvalid,
	"RATE_LIMIT_EXCEEDED":  ErrCodeRateLimited,
	"REQUEST_TOO_LARGE":    ErrCodeRequestTooLarge,
}

// NormalizeErrorCode converts a legacy error code to the standardized format.
// Other codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
