package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/catalog"
)

// NutritionLookup fetches nutrition data for a free-text product query.
// It returns nil info and a nil error when the source has no match.
type NutritionLookup interface {
	LookupNutrition(ctx context.Context, query string) (catalog.NutritionalInfo, error)
}

// PictureStorage hands out upload URLs for product pictures
type PictureStorage interface {
	// GenerateUploadURL returns a presigned PUT URL and its expiry
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	// PublicURL returns the link stored on the product
	PublicURL(storageKey string) string
	// KeyFromURL extracts the storage key from a link built by PublicURL
	KeyFromURL(link string) (string, bool)
	// DeleteObject removes a stored picture
	DeleteObject(ctx context.Context, storageKey string) error
	// ObjectExists reports whether an upload has landed
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// ProductUsageChecker reports whether invoices reference a product
type ProductUsageChecker interface {
	ExistsWithProduct(ctx context.Context, productID uuid.UUID) (bool, error)
}

// ProductCandidate is an external search hit mapped onto catalog fields
type ProductCandidate struct {
	Name            string
	Brand           string
	Barcode         string
	ImageURL        string
	Category        string
	NutritionScore  catalog.NutritionScore
	NutritionalInfo catalog.NutritionalInfo
	// HasNutriments is false when the source returned no nutrition data at all
	HasNutriments bool
}

// ProductSource searches an external product database
type ProductSource interface {
	SearchCategory(ctx context.Context, terms string, count int) ([]ProductCandidate, error)
}
