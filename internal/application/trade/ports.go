package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/partner"
)

// ProductFinder loads the products referenced by invoice lines
type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error)
}

// CustomerFinder loads invoice customers
type CustomerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]partner.Customer, error)
}

// InvoicePrinter renders an invoice document to PDF
type InvoicePrinter interface {
	RenderInvoicePDF(ctx context.Context, invoice *InvoiceResponse) ([]byte, error)
}
