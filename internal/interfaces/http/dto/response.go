package dto

import (
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

// Response is the envelope every JSON endpoint writes. Exactly one of Data
// and Error is set; Meta accompanies paged lists.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    *PageMeta  `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail describes one invalid field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Page lifts the counters of p into meta and leaves the items as data
func Page[T any](p shared.Paginated[T]) Response {
	return Response{
		Success: true,
		Data:    p.Items,
		Meta:    &PageMeta{Total: p.Total, Page: p.Page, PageSize: p.PageSize, TotalPages: p.TotalPages},
	}
}

// Fail builds an error envelope. Domain codes are normalised to their
// public form.
func Fail(code, message, requestID string) Response {
	return Response{Error: &ErrorBody{
		Code:      NormalizeErrorCode(code),
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
	}}
}

// Invalid is the validation failure envelope with per-field details
func Invalid(requestID string, details []ValidationDetail) Response {
	r := Fail(ErrCodeValidation, "Request validation failed", requestID)
	r.Error.Details = details
	return r
}
