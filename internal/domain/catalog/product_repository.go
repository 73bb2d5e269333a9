package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByBarcode finds a product by its barcode
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)

	// FindByIDs finds multiple products by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindAll finds all products matching the filter.
	// Supported Filters keys: "category", "nutrition_score".
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// SaveBatch creates or updates multiple products
	SaveBatch(ctx context.Context, products []*Product) error

	// Delete deletes a product
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteAll removes every product and returns the number of rows deleted
	DeleteAll(ctx context.Context) (int64, error)

	// Count counts products matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByBarcode checks if a product with the given barcode exists
	ExistsByBarcode(ctx context.Context, barcode string) (bool, error)

	// CountByNutritionScore returns product counts keyed by grade (unrated under "")
	CountByNutritionScore(ctx context.Context) (map[NutritionScore]int64, error)

	// InventoryValue returns the sum of price * quantity over all products
	InventoryValue(ctx context.Context) (decimal.Decimal, error)
}
