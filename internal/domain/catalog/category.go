package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

const maxCategoryName = 100

// Category groups products for browsing. Categories form a tree through
// ParentID.
type Category struct {
	shared.BaseAggregateRoot
	Name        string
	Slug        string
	Description string
	ParentID    *uuid.UUID
	SortOrder   int
}

// NewCategory creates a category under parent, or a root when parent is nil.
// The slug is derived from the name.
func NewCategory(name, description string, parent *Category) (*Category, error) {
	name = strings.TrimSpace(name)
	if err := checkCategoryName(name); err != nil {
		return nil, err
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name must contain letters or digits")
	}

	c := &Category{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		Description:       strings.TrimSpace(description),
	}
	if parent != nil {
		id := parent.ID
		c.ParentID = &id
	}
	return c, nil
}

func (c *Category) IsRoot() bool { return c.ParentID == nil }

func (c *Category) changed() {
	c.Touch()
	c.IncrementVersion()
}

// Update renames the category. The slug stays put so existing links keep
// working; SetSlug changes it explicitly.
func (c *Category) Update(name, description string) error {
	name = strings.TrimSpace(name)
	if err := checkCategoryName(name); err != nil {
		return err
	}
	c.Name, c.Description = name, strings.TrimSpace(description)
	c.changed()
	return nil
}

func (c *Category) SetSlug(raw string) error {
	slug := Slugify(raw)
	if slug == "" {
		return shared.NewDomainError("INVALID_SLUG", "Slug must contain letters or digits")
	}
	c.Slug = slug
	c.changed()
	return nil
}

// SetParent moves the category under parentID. Nil makes it a root.
func (c *Category) SetParent(parentID *uuid.UUID) error {
	if parentID != nil && *parentID == c.ID {
		return shared.NewDomainError("INVALID_PARENT", "Category cannot be its own parent")
	}
	c.ParentID = parentID
	c.changed()
	return nil
}

func (c *Category) SetSortOrder(order int) {
	c.SortOrder = order
	c.changed()
}

func checkCategoryName(name string) error {
	switch {
	case name == "":
		return shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name cannot be empty")
	case len(name) > maxCategoryName:
		return shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name cannot exceed 100 characters")
	}
	return nil
}
