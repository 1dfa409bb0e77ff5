package order

import (
	"context"

	"github.com/storefront/backend/internal/domain/order"
)

// InvoiceRenderer turns an order into a PDF document
type InvoiceRenderer interface {
	RenderInvoice(ctx context.Context, o *order.Order) ([]byte, error)
}

// InvoiceStore caches rendered invoices. Download returns shared.ErrNotFound
// for unknown keys.
type InvoiceStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
}

// InvoiceKey is the object key of an order's cached invoice. The status is
// part of the key since the document prints it.
func InvoiceKey(o *order.Order) string {
	return "invoices/" + o.OrderNumber + "/" + o.Status.String() + ".pdf"
}
