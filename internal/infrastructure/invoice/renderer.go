package invoice

import (
	"context"
	"fmt"

	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"go.uber.org/zap"
)

// Company is printed in the invoice header
type Company struct {
	Name    string
	Address string
}

// Renderer turns orders into PDF invoices. It implements
// orderapp.InvoiceRenderer.
type Renderer struct {
	company Company
	engine  *TemplateEngine
	printer Printer
	logger  *zap.Logger
}

// NewRenderer creates an invoice renderer
func NewRenderer(company Company, currency string, printer Printer, logger *zap.Logger) (*Renderer, error) {
	engine, err := NewTemplateEngine(currency)
	if err != nil {
		return nil, err
	}
	return &Renderer{company: company, engine: engine, printer: printer, logger: logger}, nil
}

// RenderHTML renders the invoice HTML for o
func (r *Renderer) RenderHTML(o *order.Order) (string, error) {
	return r.engine.Execute(r.data(o))
}

// RenderInvoice renders the PDF invoice for o
func (r *Renderer) RenderInvoice(ctx context.Context, o *order.Order) ([]byte, error) {
	html, err := r.RenderHTML(o)
	if err != nil {
		return nil, err
	}
	pdf, err := r.printer.Print(ctx, Document{HTML: html, Title: "Invoice " + o.OrderNumber})
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", o.OrderNumber, err)
	}
	r.logger.Info("Invoice rendered",
		zap.String("order_number", o.OrderNumber),
		zap.String("status", string(o.Status)),
		zap.Int("bytes", len(pdf)),
	)
	return pdf, nil
}

// Close releases the printer
func (r *Renderer) Close() error {
	return r.printer.Close()
}

func (r *Renderer) data(o *order.Order) invoiceData {
	lines := make([]invoiceLine, len(o.Items))
	for i, item := range o.Items {
		lines[i] = invoiceLine{
			SKU:       item.SKU,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}
	a := o.ShippingAddress
	return invoiceData{
		CompanyName:    r.company.Name,
		CompanyAddress: r.company.Address,
		Number:         o.OrderNumber,
		Status:         string(o.Status),
		PlacedAt:       o.CreatedAt,
		Address: invoiceAddress{
			Recipient:  a.Recipient,
			Phone:      a.Phone,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		},
		Lines:       lines,
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		Total:       o.Total,
		Notes:       o.Notes,
	}
}

var _ orderapp.InvoiceRenderer = (*Renderer)(nil)
