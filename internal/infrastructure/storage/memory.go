package storage

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/shared"
)

var (
	_ catalogapp.ObjectStorageService = (*MemoryObjectStorage)(nil)
	_ orderapp.InvoiceStore           = (*MemoryObjectStorage)(nil)
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryObjectStorage keeps objects in process memory. It backs local
// development and tests when no S3 endpoint is configured.
//
// Presigned URLs point at BaseURL and cannot be used for real uploads, so a
// key counts as existing once an upload URL was issued for it. This keeps
// the product image confirmation flow usable without a bucket.
type MemoryObjectStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]memoryObject
	issued  map[string]struct{}
}

// NewMemoryObjectStorage creates an empty in-memory store
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		BaseURL: "http://localhost:9000/storefront",
		objects: make(map[string]memoryObject),
		issued:  make(map[string]struct{}),
	}
}

// GenerateUploadURL returns a placeholder upload URL and marks the key as
// uploaded
func (s *MemoryObjectStorage) GenerateUploadURL(
	_ context.Context,
	storageKey, _ string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, ErrEmptyKey
	}

	s.mu.Lock()
	s.issued[storageKey] = struct{}{}
	s.mu.Unlock()

	expiresAt := time.Now().Add(expiresIn)
	return s.url(storageKey, expiresAt), expiresAt, nil
}

// GenerateDownloadURL returns a placeholder download URL
func (s *MemoryObjectStorage) GenerateDownloadURL(
	_ context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, ErrEmptyKey
	}

	expiresAt := time.Now().Add(expiresIn)
	return s.url(storageKey, expiresAt), expiresAt, nil
}

// DeleteObject removes an object
func (s *MemoryObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	delete(s.issued, storageKey)
	return nil
}

// ObjectExists reports whether the key was uploaded or had an upload URL issued
func (s *MemoryObjectStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, stored := s.objects[storageKey]
	_, issued := s.issued[storageKey]
	return stored || issued, nil
}

// Upload stores a copy of data
func (s *MemoryObjectStorage) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[storageKey] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// Download returns a copy of the stored object or shared.ErrNotFound
func (s *MemoryObjectStorage) Download(_ context.Context, storageKey string) ([]byte, error) {
	if storageKey == "" {
		return nil, ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[storageKey]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *MemoryObjectStorage) url(storageKey string, expiresAt time.Time) string {
	return s.BaseURL + "/" + url.PathEscape(storageKey) + "?expires=" + strconv.FormatInt(expiresAt.Unix(), 10)
}
