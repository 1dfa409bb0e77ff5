package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ObjectStorageService defines the interface for object storage operations.
// Implemented by the S3 adapter and an in-memory store for development.
type ObjectStorageService interface {
	// GenerateUploadURL generates a presigned URL for uploading a file
	// Returns the upload URL and expiration time
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL generates a presigned URL for downloading a file
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	DeleteObject(ctx context.Context, storageKey string) error

	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// ProductCache is a read-through cache of product views keyed by id and slug
type ProductCache interface {
	// Fetch returns the cached value for key or calls load and caches it
	Fetch(ctx context.Context, key string, load func(context.Context) (*ProductResponse, error)) (*ProductResponse, error)
	// Invalidate drops keys
	Invalidate(ctx context.Context, keys ...string) error
}

// ProductIDKey returns the cache key for a product id
func ProductIDKey(id uuid.UUID) string { return "id:" + id.String() }

// ProductSlugKey returns the cache key for a product slug
func ProductSlugKey(slug string) string { return "slug:" + slug }

// uncachedProducts calls load on every Fetch
type uncachedProducts struct{}

func (uncachedProducts) Fetch(ctx context.Context, _ string, load func(context.Context) (*ProductResponse, error)) (*ProductResponse, error) {
	return load(ctx)
}

func (uncachedProducts) Invalidate(context.Context, ...string) error { return nil }

// OrderReferenceChecker reports whether any order line points at a product
type OrderReferenceChecker interface {
	ExistsForProduct(ctx context.Context, productID uuid.UUID) (bool, error)
}

// CartCleaner removes a product from open carts
type CartCleaner interface {
	RemoveProductFromActiveCarts(ctx context.Context, productID uuid.UUID) (int64, error)
}
