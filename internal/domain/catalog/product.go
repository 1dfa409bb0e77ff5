package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// MaxStock bounds the stock level an admin can set on one product
const MaxStock = 1_000_000

// Product is a sellable item. It owns its stock level; there is no
// separate inventory ledger.
type Product struct {
	shared.BaseAggregateRoot
	Name        string
	Slug        string
	SKU         string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  *uuid.UUID
	ImageKey    string
	Active      bool
}

// NewProduct creates an active product
func NewProduct(name, sku string, price decimal.Decimal, stock int) (*Product, error) {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	if err := validateStock(stock); err != nil {
		return nil, err
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name must contain letters or digits")
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		SKU:               sku,
		Price:             price.Round(2),
		Stock:             stock,
		Active:            true,
	}

	product.Record(NewProductChangedEvent(EventTypeProductCreated, product))

	return product, nil
}

// Update updates name and description
func (p *Product) Update(name, description string) error {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = name
	p.Description = strings.TrimSpace(description)
	p.changed(EventTypeProductUpdated)
	return nil
}

// SetSlug replaces the slug with the slugified form of slug
func (p *Product) SetSlug(slug string) error {
	slug = Slugify(slug)
	if slug == "" {
		return shared.NewDomainError("INVALID_SLUG", "Slug must contain letters or digits")
	}
	p.Slug = slug
	p.changed(EventTypeProductUpdated)
	return nil
}

// SetPrice changes the selling price
func (p *Product) SetPrice(price decimal.Decimal) error {
	if err := validatePrice(price); err != nil {
		return err
	}
	p.Price = price.Round(2)
	p.changed(EventTypeProductUpdated)
	return nil
}

// SetCategory assigns the product to a category, or none when nil
func (p *Product) SetCategory(categoryID *uuid.UUID) {
	p.CategoryID = categoryID
	p.changed(EventTypeProductUpdated)
}

// SetImageKey records the object storage key of the product image
func (p *Product) SetImageKey(key string) {
	p.ImageKey = key
	p.changed(EventTypeProductUpdated)
}

// Activate makes the product visible and purchasable
func (p *Product) Activate() error {
	if p.Active {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}
	p.Active = true
	p.changed(EventTypeProductUpdated)
	return nil
}

// Deactivate hides the product from the storefront
func (p *Product) Deactivate() error {
	if !p.Active {
		return shared.NewDomainError("ALREADY_INACTIVE", "Product is already inactive")
	}
	p.Active = false
	p.changed(EventTypeProductUpdated)
	return nil
}

// DecreaseStock removes quantity units from stock
func (p *Product) DecreaseStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if quantity > p.Stock {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock for "+p.Name)
	}
	p.Stock -= quantity
	p.changed(EventTypeProductStockChanged)
	return nil
}

// IncreaseStock returns quantity units to stock
func (p *Product) IncreaseStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if err := validateStock(p.Stock + quantity); err != nil {
		return err
	}
	p.Stock += quantity
	p.changed(EventTypeProductStockChanged)
	return nil
}

// SetStock overwrites the stock level
func (p *Product) SetStock(stock int) error {
	if err := validateStock(stock); err != nil {
		return err
	}
	p.Stock = stock
	p.changed(EventTypeProductStockChanged)
	return nil
}

// AdjustStock applies a signed delta; the result may not go below zero
func (p *Product) AdjustStock(delta int) error {
	switch {
	case delta > 0:
		return p.IncreaseStock(delta)
	case delta < 0:
		return p.DecreaseStock(-delta)
	}
	return shared.NewDomainError("INVALID_QUANTITY", "Stock adjustment cannot be zero")
}

// IsPurchasable reports whether quantity units can be sold right now
func (p *Product) IsPurchasable(quantity int) bool {
	return p.Active && quantity > 0 && p.Stock >= quantity
}

// IsLowStock reports whether stock is at or below threshold
func (p *Product) IsLowStock(threshold int) bool {
	return p.Stock <= threshold
}

func (p *Product) changed(eventType string) {
	p.Touch()
	p.IncrementVersion()
	p.Record(NewProductChangedEvent(eventType, p))
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 64 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 64 characters")
	}
	for _, r := range sku {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '-' && r != '_' {
			return shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, digits, dashes and underscores")
		}
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return shared.NewDomainError("INVALID_PRICE", "Price must be greater than zero")
	}
	if !price.Equal(price.Round(2)) {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot have more than 2 decimal places")
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	if stock > MaxStock {
		return shared.NewDomainError("INVALID_STOCK", "Stock exceeds the allowed maximum")
	}
	return nil
}
