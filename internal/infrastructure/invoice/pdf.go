package invoice

import (
	"context"
	"errors"
	"time"
)

// Document is one HTML page to print
type Document struct {
	HTML    string
	Title   string
	Timeout time.Duration // zero uses the printer default
}

// Printer converts HTML documents to PDF
type Printer interface {
	Print(ctx context.Context, doc Document) ([]byte, error)
	Close() error
}

// Failure classes. Errors returned by this package wrap one of them.
var (
	ErrEmptyDocument = errors.New("invoice: empty document")
	ErrPrintTimeout  = errors.New("invoice: print timed out")
	ErrPrintFailed   = errors.New("invoice: print failed")
	ErrTemplate      = errors.New("invoice: template failed")
)
