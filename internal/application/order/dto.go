package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// CheckoutInput is the input for placing an order from the user's cart
type CheckoutInput struct {
	UserID         uuid.UUID
	Address        order.ShippingAddress
	Notes          string
	IdempotencyKey string
}

// Requester identifies who is reading an order
type Requester struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// UpdateStatusInput is the admin input for moving an order
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Status  order.Status
	Reason  string
}

// ListFilter narrows order listings. UserID is forced for customers.
type ListFilter struct {
	UserID      *uuid.UUID
	Status      *order.Status
	OrderNumber string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

func (f ListFilter) toDomain() order.Filter {
	filter := order.NewFilter()
	filter.UserID = f.UserID
	filter.Status = f.Status
	filter.OrderNumber = f.OrderNumber
	filter.From = f.From
	filter.To = f.To
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.Limit()
	}
	if f.SortBy != "" {
		filter.SortBy = f.SortBy
	}
	if f.SortOrder != "" {
		filter.SortOrder = f.SortOrder
	}
	return filter
}

// Limit clamps the page size
func (f ListFilter) Limit() int {
	return shared.Paging{PageSize: f.PageSize}.Limit()
}

// OrderItemResponse is one purchased line
type OrderItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderResponse is the full order view
type OrderResponse struct {
	ID              uuid.UUID             `json:"id"`
	OrderNumber     string                `json:"order_number"`
	UserID          uuid.UUID             `json:"user_id"`
	Status          string                `json:"status"`
	Items           []OrderItemResponse   `json:"items"`
	ItemCount       int                   `json:"item_count"`
	ShippingAddress order.ShippingAddress `json:"shipping_address"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	ShippingFee     decimal.Decimal       `json:"shipping_fee"`
	Total           decimal.Decimal       `json:"total"`
	Notes           string                `json:"notes,omitempty"`
	CancelReason    string                `json:"cancel_reason,omitempty"`
	CanCancel       bool                  `json:"can_cancel"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	ShippedAt       *time.Time            `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time            `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		}
	}
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          o.Status.String(),
		Items:           items,
		ItemCount:       o.ItemCount(),
		ShippingAddress: o.ShippingAddress,
		Subtotal:        o.Subtotal,
		ShippingFee:     o.ShippingFee,
		Total:           o.Total,
		Notes:           o.Notes,
		CancelReason:    o.CancelReason,
		CanCancel:       o.CanBeCancelled(),
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of domain orders
func ToOrderResponses(orders []*order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToOrderResponse(o)
	}
	return out
}

// Invoice is a rendered invoice document
type Invoice struct {
	Filename    string
	ContentType string
	Data        []byte
}
