package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceRepository defines the interface for invoice persistence.
// Invoices are always loaded and saved together with their items.
type InvoiceRepository interface {
	// FindByID finds an invoice with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindAll finds invoices matching the filter.
	// Supported Filters keys: "customer_id", "status".
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, error)

	// FindByCustomer finds invoices for a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]Invoice, error)

	// Save creates or updates an invoice and replaces its items
	Save(ctx context.Context, invoice *Invoice) error

	// SaveBatch creates multiple invoices in a single transaction
	SaveBatch(ctx context.Context, invoices []*Invoice) error

	// Delete deletes an invoice and its items
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteAll removes every invoice and returns the number deleted
	DeleteAll(ctx context.Context) (int64, error)

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// SumTotals returns the sum of totals for invoices matching the filter
	SumTotals(ctx context.Context, filter shared.Filter) (decimal.Decimal, error)

	// ExistsWithProduct checks if any invoice line references the product
	ExistsWithProduct(ctx context.Context, productID uuid.UUID) (bool, error)

	// TopProducts returns the best selling products by quantity, excluding cancelled invoices
	TopProducts(ctx context.Context, limit int) ([]ProductSales, error)
}

// ProductSales aggregates invoice lines for one product
type ProductSales struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int64
	Revenue     decimal.Decimal
}
