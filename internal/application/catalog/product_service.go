package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Error codes returned by the catalog services
var (
	ErrProductNotFound    = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	ErrSKUTaken           = shared.NewDomainError("SKU_TAKEN", "A product with this SKU already exists")
	ErrSlugTaken          = shared.NewDomainError("SLUG_TAKEN", "This slug is already in use")
	ErrCategoryNotFound   = shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
	ErrStorageUnavailable = shared.NewDomainError("STORAGE_UNAVAILABLE", "Image storage is not configured")
	ErrInvalidImage       = shared.NewDomainError("INVALID_IMAGE", "Unsupported image type or size")
	ErrImageNotUploaded   = shared.NewDomainError("IMAGE_NOT_UPLOADED", "No object was uploaded under this key")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ProductServiceConfig holds configuration for the product service
type ProductServiceConfig struct {
	// UploadURLExpiry is the duration for which upload URLs are valid
	UploadURLExpiry time.Duration
	// DownloadURLExpiry is the duration for which image URLs are valid
	DownloadURLExpiry time.Duration
	// MaxImageSize is the largest image accepted, in bytes
	MaxImageSize int64
}

// DefaultProductServiceConfig returns the default configuration
func DefaultProductServiceConfig() ProductServiceConfig {
	return ProductServiceConfig{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: time.Hour,
		MaxImageSize:      5 << 20,
	}
}

// ProductService handles product-related business operations
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	orders       OrderReferenceChecker
	carts        CartCleaner
	storage      ObjectStorageService
	cache        ProductCache
	events       shared.EventPublisher
	config       ProductServiceConfig
	logger       *zap.Logger
}

// ProductServiceOption configures optional collaborators
type ProductServiceOption func(*ProductService)

// WithObjectStorage enables product image uploads
func WithObjectStorage(storage ObjectStorageService) ProductServiceOption {
	return func(s *ProductService) { s.storage = storage }
}

// WithProductCache enables the read-through product cache
func WithProductCache(cache ProductCache) ProductServiceOption {
	return func(s *ProductService) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithEventPublisher publishes product change events
func WithEventPublisher(events shared.EventPublisher) ProductServiceOption {
	return func(s *ProductService) {
		if events != nil {
			s.events = events
		}
	}
}

// WithProductConfig overrides the default configuration
func WithProductConfig(cfg ProductServiceConfig) ProductServiceOption {
	return func(s *ProductService) { s.config = cfg }
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	orders OrderReferenceChecker,
	carts CartCleaner,
	logger *zap.Logger,
	opts ...ProductServiceOption,
) *ProductService {
	s := &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		orders:       orders,
		carts:        carts,
		cache:        uncachedProducts{},
		events:       shared.NoopEventPublisher{},
		config:       DefaultProductServiceConfig(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActive returns the storefront view: active products only
func (s *ProductService) ListActive(ctx context.Context, filter catalog.ProductFilter) (shared.Paginated[ProductResponse], error) {
	active := true
	filter.Active = &active
	return s.List(ctx, filter)
}

// List returns products matching the filter
func (s *ProductService) List(ctx context.Context, filter catalog.ProductFilter) (shared.Paginated[ProductResponse], error) {
	products, total, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	items := make([]ProductResponse, len(products))
	for i, p := range products {
		items[i] = s.withImageURL(ctx, ToProductResponse(p))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.Limit()), nil
}

// GetActive returns an active product through the cache
func (s *ProductService) GetActive(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	resp, err := s.cache.Fetch(ctx, ProductIDKey(id), func(ctx context.Context) (*ProductResponse, error) {
		return toResponse(s.productRepo.FindByID(ctx, id))
	})
	return s.visible(ctx, resp, err)
}

// GetActiveBySlug returns an active product by slug through the cache
func (s *ProductService) GetActiveBySlug(ctx context.Context, slug string) (*ProductResponse, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	resp, err := s.cache.Fetch(ctx, ProductSlugKey(slug), func(ctx context.Context) (*ProductResponse, error) {
		return toResponse(s.productRepo.FindBySlug(ctx, slug))
	})
	return s.visible(ctx, resp, err)
}

// Get returns any product, active or not, bypassing the cache
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.withImageURL(ctx, ToProductResponse(product))
	return &resp, nil
}

// LowStock returns active products with stock at or below threshold
func (s *ProductService) LowStock(ctx context.Context, threshold, limit int) ([]ProductResponse, error) {
	products, err := s.productRepo.FindLowStock(ctx, threshold, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = ToProductResponse(p)
	}
	return out, nil
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(req.Name, req.SKU, req.Price, req.Stock)
	if err != nil {
		return nil, err
	}

	exists, err := s.productRepo.ExistsBySKU(ctx, product.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrSKUTaken
	}

	if req.Description != "" {
		if err := product.Update(product.Name, req.Description); err != nil {
			return nil, err
		}
	}
	if req.CategoryID != nil {
		if err := s.requireCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
		product.SetCategory(req.CategoryID)
	}
	if req.Active != nil && !*req.Active {
		if err := product.Deactivate(); err != nil {
			return nil, err
		}
	}

	if err := s.assignFreeSlug(ctx, product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, ErrSKUTaken
		}
		return nil, err
	}

	s.publish(ctx, product)
	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU))

	resp := ToProductResponse(product)
	return &resp, nil
}

// Update updates an existing product
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	oldSlug := product.Slug

	if req.Name != nil || req.Description != nil {
		name, description := product.Name, product.Description
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if err := product.Update(name, description); err != nil {
			return nil, err
		}
	}

	if req.Slug != nil {
		if err := product.SetSlug(*req.Slug); err != nil {
			return nil, err
		}
		if product.Slug != oldSlug {
			taken, err := s.productRepo.ExistsBySlug(ctx, product.Slug)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrSlugTaken
			}
		}
	}

	if req.Price != nil {
		if err := product.SetPrice(*req.Price); err != nil {
			return nil, err
		}
	}

	switch {
	case req.ClearCategory:
		product.SetCategory(nil)
	case req.CategoryID != nil:
		if err := s.requireCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
		product.SetCategory(req.CategoryID)
	}

	if err := s.save(ctx, product, oldSlug); err != nil {
		return nil, err
	}

	resp := s.withImageURL(ctx, ToProductResponse(product))
	return &resp, nil
}

// Delete removes a product. A product referenced by any order is only
// deactivated so order history keeps its link.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) (softDeleted bool, err error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return false, err
	}

	referenced, err := s.orders.ExistsForProduct(ctx, id)
	if err != nil {
		return false, err
	}

	if referenced {
		if product.Active {
			if err := product.Deactivate(); err != nil {
				return false, err
			}
			if err := s.save(ctx, product, product.Slug); err != nil {
				return false, err
			}
		}
		s.logger.Info("Product referenced by orders, deactivated instead of deleted",
			zap.String("product_id", id.String()))
		return true, nil
	}

	if _, err := s.carts.RemoveProductFromActiveCarts(ctx, id); err != nil {
		return false, err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return false, err
	}

	if product.ImageKey != "" && s.storage != nil {
		if err := s.storage.DeleteObject(ctx, product.ImageKey); err != nil {
			s.logger.Warn("Failed to delete product image",
				zap.String("product_id", id.String()),
				zap.Error(err))
		}
	}

	product.PullDomainEvents()
	product.Record(catalog.NewProductChangedEvent(catalog.EventTypeProductDeleted, product))
	s.publish(ctx, product)
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return false, nil
}

// UpdateStock sets or adjusts the stock level
func (s *ProductService) UpdateStock(ctx context.Context, id uuid.UUID, req StockRequest) (*ProductResponse, error) {
	if (req.Set == nil) == (req.Delta == nil) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Provide exactly one of set or delta")
	}

	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Set != nil {
		err = product.SetStock(*req.Set)
	} else {
		err = product.AdjustStock(*req.Delta)
	}
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, product, product.Slug); err != nil {
		return nil, err
	}

	resp := ToProductResponse(product)
	return &resp, nil
}

// Activate makes a product visible on the storefront
func (s *ProductService) Activate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, (*catalog.Product).Activate)
}

// Deactivate hides a product from the storefront
func (s *ProductService) Deactivate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, (*catalog.Product).Deactivate)
}

// CreateImageUpload returns a presigned URL the admin client uploads the
// image to. ConfirmImage attaches it afterwards.
func (s *ProductService) CreateImageUpload(ctx context.Context, id uuid.UUID, req ImageUploadRequest) (*ImageUploadResponse, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	ext, ok := allowedImageTypes[strings.ToLower(req.ContentType)]
	if !ok || req.Size <= 0 || (s.config.MaxImageSize > 0 && req.Size > s.config.MaxImageSize) {
		return nil, ErrInvalidImage
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	key := path.Join("products", id.String(), uuid.NewString()+ext)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, req.ContentType, s.config.UploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate upload url: %w", err)
	}

	return &ImageUploadResponse{UploadURL: url, StorageKey: key, ExpiresAt: expiresAt}, nil
}

// ConfirmImage sets an uploaded object as the product image and removes
// the previous one
func (s *ProductService) ConfirmImage(ctx context.Context, id uuid.UUID, storageKey string) (*ProductResponse, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if !strings.HasPrefix(storageKey, path.Join("products", id.String())+"/") {
		return nil, ErrInvalidImage
	}

	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.storage.ObjectExists(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrImageNotUploaded
	}

	previous := product.ImageKey
	product.SetImageKey(storageKey)
	if err := s.save(ctx, product, product.Slug); err != nil {
		return nil, err
	}

	if previous != "" && previous != storageKey {
		if err := s.storage.DeleteObject(ctx, previous); err != nil {
			s.logger.Warn("Failed to delete replaced product image",
				zap.String("storage_key", previous),
				zap.Error(err))
		}
	}

	resp := s.withImageURL(ctx, ToProductResponse(product))
	return &resp, nil
}

func (s *ProductService) mutate(ctx context.Context, id uuid.UUID, fn func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(product); err != nil {
		return nil, err
	}
	if err := s.save(ctx, product, product.Slug); err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// save persists product changes, publishes its events and drops the old
// slug from the cache when it changed
func (s *ProductService) save(ctx context.Context, product *catalog.Product, oldSlug string) error {
	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return ErrSlugTaken
		}
		return err
	}
	if oldSlug != product.Slug {
		if err := s.cache.Invalidate(ctx, ProductSlugKey(oldSlug)); err != nil {
			s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
		}
	}
	s.publish(ctx, product)
	return nil
}

// assignFreeSlug keeps the generated slug when free and otherwise
// suffixes it with the SKU
func (s *ProductService) assignFreeSlug(ctx context.Context, product *catalog.Product) error {
	taken, err := s.productRepo.ExistsBySlug(ctx, product.Slug)
	if err != nil || !taken {
		return err
	}
	if err := product.SetSlug(product.Slug + "-" + product.SKU); err != nil {
		return err
	}
	taken, err = s.productRepo.ExistsBySlug(ctx, product.Slug)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlugTaken
	}
	return nil
}

func (s *ProductService) requireCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}

func (s *ProductService) find(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func toResponse(product *catalog.Product, err error) (*ProductResponse, error) {
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// visible hides inactive products from the storefront and fills in the
// image URL, which is never cached
func (s *ProductService) visible(ctx context.Context, resp *ProductResponse, err error) (*ProductResponse, error) {
	if err != nil {
		return nil, err
	}
	if !resp.Active {
		return nil, ErrProductNotFound
	}
	out := s.withImageURL(ctx, *resp)
	return &out, nil
}

func (s *ProductService) withImageURL(ctx context.Context, resp ProductResponse) ProductResponse {
	if resp.ImageKey == "" || s.storage == nil {
		return resp
	}
	url, _, err := s.storage.GenerateDownloadURL(ctx, resp.ImageKey, s.config.DownloadURLExpiry)
	if err != nil {
		s.logger.Warn("Failed to sign product image URL",
			zap.String("product_id", resp.ID.String()),
			zap.Error(err))
		return resp
	}
	resp.ImageURL = url
	return resp
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	events := product.PullDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish product events",
			zap.String("product_id", product.ID.String()),
			zap.Error(err))
	}
}
