package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers the outcome of client requests carrying an
// idempotency key so that a retried request returns the first result.
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false when the key is already
	// claimed or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Complete stores the result for a reserved key.
	Complete(ctx context.Context, key, result string, ttl time.Duration) error
	// Result returns the stored result. ok is false while the key is only
	// reserved or unknown.
	Result(ctx context.Context, key string) (result string, ok bool, err error)
	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error
}
