package catalog

import (
	"context"

	"github.com/google/uuid"
)

// CategoryRepository persists categories. Slugs are matched case
// insensitively.
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindBySlug(ctx context.Context, slug string) (*Category, error)
	// FindAll is ordered by sort order, then name
	FindAll(ctx context.Context) ([]*Category, error)
	Create(ctx context.Context, category *Category) error
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	HasChildren(ctx context.Context, id uuid.UUID) (bool, error)
}
