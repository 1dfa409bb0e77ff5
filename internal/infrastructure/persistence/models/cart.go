package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
)

// CartModel is the persistence model for the Cart aggregate.
// Exactly one of UserID and SessionID is set; partial unique indexes in
// the migration keep one active cart per owner.
type CartModel struct {
	AggregateColumns
	UserID    *uuid.UUID      `gorm:"type:uuid;index"`
	SessionID *string         `gorm:"type:varchar(128);index"`
	Status    cart.Status     `gorm:"type:varchar(20);not null;default:'active';index"`
	Items     []CartItemModel `gorm:"foreignKey:CartID;references:ID"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// ToDomain converts the persistence model to a domain Cart.
func (m *CartModel) ToDomain() *cart.Cart {
	c := &cart.Cart{
		BaseAggregateRoot: m.Root(),
		Status:            m.Status,
		Items:             make([]cart.Item, len(m.Items)),
	}
	if m.UserID != nil {
		c.Owner = cart.UserOwner(*m.UserID)
	} else if m.SessionID != nil {
		c.Owner = cart.SessionOwner(*m.SessionID)
	}
	for i := range m.Items {
		c.Items[i] = m.Items[i].ToDomain()
	}
	return c
}

// FromDomain populates the persistence model from a domain Cart.
func (m *CartModel) FromDomain(c *cart.Cart) {
	m.SetRoot(c.BaseAggregateRoot)
	m.UserID = c.Owner.UserID
	m.SessionID = nil
	if c.Owner.IsGuest() {
		sessionID := c.Owner.SessionID
		m.SessionID = &sessionID
	}
	m.Status = c.Status
	m.Items = make([]CartItemModel, len(c.Items))
	for i := range c.Items {
		m.Items[i] = CartItemModelFromDomain(c.ID, c.Items[i])
	}
}

// CartModelFromDomain creates a new persistence model from a domain Cart.
func CartModelFromDomain(c *cart.Cart) *CartModel {
	m := &CartModel{}
	m.FromDomain(c)
	return m
}

// CartItemModel is the persistence model for a cart line.
type CartItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	CartID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product,priority:1"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product,priority:2;index"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain cart Item.
func (m *CartItemModel) ToDomain() cart.Item {
	return cart.Item{
		ID:        m.ID,
		CartID:    m.CartID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// CartItemModelFromDomain creates a persistence model for one cart line.
func CartItemModelFromDomain(cartID uuid.UUID, item cart.Item) CartItemModel {
	return CartItemModel{
		ID:        item.ID,
		CartID:    cartID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}
