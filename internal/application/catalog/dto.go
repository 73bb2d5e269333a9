package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name            string           `json:"name" binding:"required,min=1,max=255"`
	Price           *decimal.Decimal `json:"price" binding:"required"`
	Brand           string           `json:"brand" binding:"max=255"`
	Picture         string           `json:"picture" binding:"omitempty,url,max=500"`
	Category        string           `json:"category" binding:"max=255"`
	NutritionalInfo map[string]any   `json:"nutritional_info"`
	NutritionScore  string           `json:"nutrition_score" binding:"omitempty,len=1"`
	Barcode         string           `json:"barcode" binding:"max=100"`
	Quantity        *int             `json:"quantity" binding:"omitempty,min=0"`
	// OpenfoodQuery triggers nutrition enrichment after the product is saved
	OpenfoodQuery string `json:"openfood_query" binding:"max=255"`
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Name            *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Price           *decimal.Decimal `json:"price"`
	Brand           *string          `json:"brand" binding:"omitempty,max=255"`
	Picture         *string          `json:"picture" binding:"omitempty,max=500"`
	Category        *string          `json:"category" binding:"omitempty,max=255"`
	NutritionalInfo map[string]any   `json:"nutritional_info"`
	NutritionScore  *string          `json:"nutrition_score" binding:"omitempty,max=1"`
	Barcode         *string          `json:"barcode" binding:"omitempty,max=100"`
	Quantity        *int             `json:"quantity" binding:"omitempty,min=0"`
}

// EnrichProductRequest names the Open Food Facts query; openfood_query is accepted as a fallback
type EnrichProductRequest struct {
	Query         string `json:"query"`
	OpenfoodQuery string `json:"openfood_query"`
}

// EffectiveQuery returns query, or openfood_query when query is blank
func (r EnrichProductRequest) EffectiveQuery() string {
	if r.Query != "" {
		return r.Query
	}
	return r.OpenfoodQuery
}

// EnrichProductResponse is returned after a successful enrichment
type EnrichProductResponse struct {
	Detail          string         `json:"detail"`
	NutritionalInfo map[string]any `json:"nutritional_info"`
}

// PictureUploadRequest asks for a presigned picture upload
type PictureUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,max=200"`
	ContentType string `json:"content_type" binding:"required,oneof=image/jpeg image/png image/webp image/gif"`
}

// PictureUploadResponse tells the client where to PUT the file.
// StorageKey is sent back to confirm the upload.
type PictureUploadResponse struct {
	UploadURL  string    `json:"upload_url"`
	Method     string    `json:"method"`
	StorageKey string    `json:"storage_key"`
	PictureURL string    `json:"picture_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ConfirmPictureRequest confirms a finished picture upload
type ConfirmPictureRequest struct {
	StorageKey string `json:"storage_key" binding:"required,max=300"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Brand           string          `json:"brand"`
	Picture         string          `json:"picture"`
	Category        string          `json:"category"`
	NutritionalInfo map[string]any  `json:"nutritional_info"`
	NutritionScore  string          `json:"nutrition_score"`
	Barcode         string          `json:"barcode"`
	Quantity        int             `json:"quantity"`
	Display         string          `json:"display"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProductListFilter represents filter options for the product list
type ProductListFilter struct {
	Search         string `form:"search"`
	Category       string `form:"category"`
	NutritionScore string `form:"nutrition_score" binding:"omitempty,oneof=A B C D E a b c d e"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string `form:"order_by"`
	OrderDir       string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:              p.ID,
		Name:            p.Name,
		Price:           p.Price,
		Brand:           p.Brand,
		Picture:         p.Picture,
		Category:        p.Category,
		NutritionalInfo: p.NutritionalInfo,
		NutritionScore:  string(p.NutritionScore),
		Barcode:         p.Barcode,
		Quantity:        p.Quantity,
		Display:         p.String(),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}
