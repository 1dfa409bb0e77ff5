// Package invoice renders order invoices as PDF documents.
//
// An invoice is produced in two steps. TemplateEngine fills the HTML
// invoice template from an order, and a Printer (Chrome, driven by
// chromedp) turns that HTML into a PDF. The result is cached in object
// storage by the order service.
package invoice
