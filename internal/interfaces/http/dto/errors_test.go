package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{"INVALID_CREDENTIALS", http.StatusUnauthorized},
		{"TOKEN_REUSED", http.StatusUnauthorized},
		{"ACCOUNT_LOCKED", http.StatusLocked},
		{"ACCOUNT_DEACTIVATED", http.StatusForbidden},
		{"EMAIL_TAKEN", http.StatusConflict},
		{"INSUFFICIENT_STOCK", http.StatusUnprocessableEntity},
		{"CART_EMPTY", http.StatusUnprocessableEntity},
		{"CART_OWNER_REQUIRED", http.StatusBadRequest},
		{"CATEGORY_IN_USE", http.StatusConflict},
		{"ORDER_NOT_FOUND", http.StatusNotFound},
		{"CHECKOUT_IN_PROGRESS", http.StatusConflict},
		{"INVOICE_UNAVAILABLE", http.StatusServiceUnavailable},
		{"INVALID_ADDRESS", http.StatusBadRequest},
		{"INVALID_QUANTITY", http.StatusBadRequest},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"INVALID_TOKEN", ErrCodeTokenInvalid},
		{"RATE_LIMIT_EXCEEDED", ErrCodeRateLimited},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"INSUFFICIENT_STOCK", "INSUFFICIENT_STOCK"},
		{"ORDER_NOT_FOUND", "ORDER_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestSharedErrorsAreMapped(t *testing.T) {
	for _, err := range []*shared.DomainError{
		shared.ErrNotFound,
		shared.ErrAlreadyExists,
		shared.ErrInvalidInput,
		shared.ErrConcurrencyConflict,
		shared.ErrUnauthorized,
		shared.ErrForbidden,
		shared.ErrInvalidState,
		shared.ErrInsufficientStock,
	} {
		t.Run(err.Code, func(t *testing.T) {
			_, ok := ErrorCodeHTTPStatus[NormalizeErrorCode(err.Code)]
			assert.True(t, ok)
		})
	}
}

func TestFail(t *testing.T) {
	before := time.Now()
	resp := Fail("NOT_FOUND", "Resource not found", "")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Resource not found", resp.Error.Message)
	assert.False(t, resp.Error.Timestamp.Before(before))
}

func TestInvalid(t *testing.T) {
	details := []ValidationDetail{
		{Field: "email", Message: "Invalid email format"},
		{Field: "quantity", Message: "Must be at least 1"},
	}

	resp := Invalid("req-789", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Equal(t, details, resp.Error.Details)
}

func TestFail_JSONShape(t *testing.T) {
	data, err := json.Marshal(Fail("CART_EMPTY", "Cart is empty", "req-test-123"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")
	assert.NotContains(t, decoded, "meta")

	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, "CART_EMPTY", errObj["code"])
	assert.Equal(t, "req-test-123", errObj["request_id"])
	assert.NotContains(t, errObj, "details")
}

func TestPage(t *testing.T) {
	resp := Page(shared.NewPaginated([]string{"a", "b"}, 12, 2, 5))

	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b"}, resp.Data)
	assert.Equal(t, &PageMeta{Total: 12, Page: 2, PageSize: 5, TotalPages: 3}, resp.Meta)
	assert.Nil(t, resp.Error)
}

func TestOK(t *testing.T) {
	resp := OK(map[string]int{"n": 1})
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Meta)
	assert.Nil(t, resp.Error)
}
