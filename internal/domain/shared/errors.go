package shared

// DomainError is an error with a stable code. The HTTP layer maps codes
// to statuses, and errors.Is matches two DomainErrors by code alone, so a
// specific message still satisfies errors.Is(err, ErrNotFound).
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Modified concurrently, reload and retry")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Authentication required")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Not allowed in the current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock")
)
