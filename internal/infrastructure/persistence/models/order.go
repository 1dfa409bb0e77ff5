package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
)

// ShippingAddressModel stores the address inline on the orders table.
type ShippingAddressModel struct {
	Recipient  string `gorm:"type:varchar(100);not null"`
	Phone      string `gorm:"type:varchar(30);not null"`
	Line1      string `gorm:"type:varchar(200);not null"`
	Line2      string `gorm:"type:varchar(200)"`
	City       string `gorm:"type:varchar(100);not null"`
	State      string `gorm:"type:varchar(100)"`
	PostalCode string `gorm:"type:varchar(20);not null"`
	Country    string `gorm:"type:char(2);not null"`
}

// OrderModel is the persistence model for the Order aggregate.
type OrderModel struct {
	AggregateColumns
	OrderNumber     string               `gorm:"type:varchar(32);not null;uniqueIndex"`
	UserID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	Status          order.Status         `gorm:"type:varchar(20);not null;default:'pending';index"`
	ShippingAddress ShippingAddressModel `gorm:"embedded;embeddedPrefix:shipping_"`
	Subtotal        decimal.Decimal      `gorm:"type:decimal(14,2);not null"`
	ShippingFee     decimal.Decimal      `gorm:"type:decimal(12,2);not null;default:0"`
	Total           decimal.Decimal      `gorm:"type:decimal(14,2);not null"`
	Notes           string               `gorm:"type:text"`
	CancelReason    string               `gorm:"type:varchar(500)"`
	PaidAt          *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
	Items           []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.Root(),
		OrderNumber:       m.OrderNumber,
		UserID:            m.UserID,
		Status:            m.Status,
		ShippingAddress: order.ShippingAddress{
			Recipient:  m.ShippingAddress.Recipient,
			Phone:      m.ShippingAddress.Phone,
			Line1:      m.ShippingAddress.Line1,
			Line2:      m.ShippingAddress.Line2,
			City:       m.ShippingAddress.City,
			State:      m.ShippingAddress.State,
			PostalCode: m.ShippingAddress.PostalCode,
			Country:    m.ShippingAddress.Country,
		},
		Subtotal:     m.Subtotal,
		ShippingFee:  m.ShippingFee,
		Total:        m.Total,
		Notes:        m.Notes,
		CancelReason: m.CancelReason,
		PaidAt:       m.PaidAt,
		ShippedAt:    m.ShippedAt,
		DeliveredAt:  m.DeliveredAt,
		CancelledAt:  m.CancelledAt,
		Items:        make([]order.Item, len(m.Items)),
	}
	for i := range m.Items {
		o.Items[i] = m.Items[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.SetRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.UserID = o.UserID
	m.Status = o.Status
	m.ShippingAddress = ShippingAddressModel{
		Recipient:  o.ShippingAddress.Recipient,
		Phone:      o.ShippingAddress.Phone,
		Line1:      o.ShippingAddress.Line1,
		Line2:      o.ShippingAddress.Line2,
		City:       o.ShippingAddress.City,
		State:      o.ShippingAddress.State,
		PostalCode: o.ShippingAddress.PostalCode,
		Country:    o.ShippingAddress.Country,
	}
	m.Subtotal = o.Subtotal
	m.ShippingFee = o.ShippingFee
	m.Total = o.Total
	m.Notes = o.Notes
	m.CancelReason = o.CancelReason
	m.PaidAt = o.PaidAt
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.CancelledAt = o.CancelledAt
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = OrderItemModelFromDomain(o.Items[i])
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line snapshot.
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	SKU         string          `gorm:"column:sku;type:varchar(64);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity    int             `gorm:"not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain order Item.
func (m *OrderItemModel) ToDomain() order.Item {
	return order.Item{
		ID:          m.ID,
		OrderID:     m.OrderID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		SKU:         m.SKU,
		UnitPrice:   m.UnitPrice,
		Quantity:    m.Quantity,
		LineTotal:   m.LineTotal,
		CreatedAt:   m.CreatedAt,
	}
}

// OrderItemModelFromDomain creates a persistence model for one order line.
func OrderItemModelFromDomain(item order.Item) OrderItemModel {
	return OrderItemModel{
		ID:          item.ID,
		OrderID:     item.OrderID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		SKU:         item.SKU,
		UnitPrice:   item.UnitPrice,
		Quantity:    item.Quantity,
		LineTotal:   item.LineTotal,
		CreatedAt:   item.CreatedAt,
	}
}
