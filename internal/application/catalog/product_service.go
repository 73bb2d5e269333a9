package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/grocery/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// EnrichmentSource is recorded on ProductEnriched events
const EnrichmentSource = "openfoodfacts"

// ErrNoNutritionResult is returned by Enrich when the lookup finds nothing
var ErrNoNutritionResult = shared.NewDomainError("NO_OPENFOODFACTS_RESULT", "no_openfoodfacts_result")

// ErrEnrichQueryRequired is returned by Enrich without a query
var ErrEnrichQueryRequired = shared.NewDomainError("QUERY_REQUIRED", "query is required")

// ErrStorageDisabled is returned by the picture operations without object storage
var ErrStorageDisabled = shared.NewDomainError("STORAGE_DISABLED", "Picture uploads are not configured")

// ProductService handles product-related business operations
type ProductService struct {
	productRepo    catalog.ProductRepository
	usage          ProductUsageChecker
	nutrition      NutritionLookup
	pictures       PictureStorage
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewProductService creates a new ProductService.
// nutrition and pictures may be nil, disabling enrichment and uploads.
func NewProductService(
	productRepo catalog.ProductRepository,
	usage ProductUsageChecker,
	nutrition NutritionLookup,
	pictures PictureStorage,
	logger *zap.Logger,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		productRepo: productRepo,
		usage:       usage,
		nutrition:   nutrition,
		pictures:    pictures,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new product. A non-empty OpenfoodQuery enriches the
// product after it is saved; enrichment failures are logged, not returned.
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	if req.Price == nil {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price is required")
	}

	if req.Barcode != "" {
		exists, err := s.productRepo.ExistsByBarcode(ctx, strings.TrimSpace(req.Barcode))
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("BARCODE_EXISTS", "A product with this barcode already exists")
		}
	}

	product, err := catalog.NewProduct(req.Name, *req.Price)
	if err != nil {
		return nil, err
	}
	if err := product.Update(req.Name, req.Brand, req.Category); err != nil {
		return nil, err
	}
	if err := product.SetPicture(req.Picture); err != nil {
		return nil, err
	}
	if err := product.SetNutritionScore(req.NutritionScore); err != nil {
		return nil, err
	}
	if err := product.SetBarcode(req.Barcode); err != nil {
		return nil, err
	}
	if req.Quantity != nil {
		if err := product.SetQuantity(*req.Quantity); err != nil {
			return nil, err
		}
	}
	if req.NutritionalInfo != nil {
		product.SetNutritionalInfo(req.NutritionalInfo)
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	if query := strings.TrimSpace(req.OpenfoodQuery); query != "" {
		s.enrichAfterCreate(ctx, product, query)
	}

	s.publishEvents(ctx, product)

	response := ToProductResponse(product)
	return &response, nil
}

func (s *ProductService) enrichAfterCreate(ctx context.Context, product *catalog.Product, query string) {
	if s.nutrition == nil {
		return
	}
	info, err := s.nutrition.LookupNutrition(ctx, query)
	if err != nil {
		s.logger.Warn("nutrition lookup failed",
			zap.String("product_id", product.ID.String()),
			zap.String("query", query),
			zap.Error(err))
		return
	}
	if info == nil {
		return
	}

	product.Enrich(info, EnrichmentSource)
	if err := s.productRepo.Save(ctx, product); err != nil {
		s.logger.Warn("failed to save enriched product",
			zap.String("product_id", product.ID.String()),
			zap.Error(err))
	}
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	return &response, nil
}

// List retrieves products with filtering and pagination
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]ProductResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   strings.TrimSpace(filter.Search),
	}
	if filter.Category != "" {
		domainFilter = domainFilter.With("category", filter.Category)
	}
	if filter.NutritionScore != "" {
		score, err := catalog.ParseNutritionScore(filter.NutritionScore)
		if err != nil {
			return nil, 0, err
		}
		domainFilter = domainFilter.With("nutrition_score", string(score))
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToProductResponses(products), total, nil
}

// Update applies a partial update
func (s *ProductService) Update(ctx context.Context, productID uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Brand != nil || req.Category != nil {
		name, brand, category := product.Name, product.Brand, product.Category
		if req.Name != nil {
			name = *req.Name
		}
		if req.Brand != nil {
			brand = *req.Brand
		}
		if req.Category != nil {
			category = *req.Category
		}
		if err := product.Update(name, brand, category); err != nil {
			return nil, err
		}
	}

	if req.Price != nil {
		if err := product.SetPrice(*req.Price); err != nil {
			return nil, err
		}
	}
	if req.Picture != nil {
		if err := product.SetPicture(*req.Picture); err != nil {
			return nil, err
		}
	}
	if req.NutritionScore != nil {
		if err := product.SetNutritionScore(*req.NutritionScore); err != nil {
			return nil, err
		}
	}
	if req.NutritionalInfo != nil {
		product.SetNutritionalInfo(req.NutritionalInfo)
	}
	if req.Quantity != nil {
		if err := product.SetQuantity(*req.Quantity); err != nil {
			return nil, err
		}
	}
	if req.Barcode != nil {
		barcode := strings.TrimSpace(*req.Barcode)
		if barcode != "" && barcode != product.Barcode {
			exists, err := s.productRepo.ExistsByBarcode(ctx, barcode)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, shared.NewDomainError("BARCODE_EXISTS", "A product with this barcode already exists")
			}
		}
		if err := product.SetBarcode(barcode); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, product)

	response := ToProductResponse(product)
	return &response, nil
}

// Delete removes a product that no invoice references
func (s *ProductService) Delete(ctx context.Context, productID uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return err
	}

	if s.usage != nil {
		inUse, err := s.usage.ExistsWithProduct(ctx, productID)
		if err != nil {
			return err
		}
		if inUse {
			return shared.NewDomainError("PRODUCT_IN_USE", "Product is referenced by invoices and cannot be deleted")
		}
	}

	if err := s.productRepo.Delete(ctx, productID); err != nil {
		return err
	}

	s.removeStoredPicture(ctx, product.Picture)

	product.AddDomainEvent(catalog.NewProductDeletedEvent(product))
	s.publishEvents(ctx, product)
	return nil
}

// Enrich replaces the product's nutritional info with the first Open Food Facts hit
func (s *ProductService) Enrich(ctx context.Context, productID uuid.UUID, req EnrichProductRequest) (*EnrichProductResponse, error) {
	query := strings.TrimSpace(req.EffectiveQuery())

	ctx, span := telemetry.StartSpan(ctx, "product", "enrich",
		telemetry.SpanAttrProductID, productID,
		telemetry.SpanAttrQuery, query,
	)
	defer span.End()

	// an unknown product is a 404 even without a query
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return nil, ErrEnrichQueryRequired
	}

	if s.nutrition == nil {
		return nil, ErrNoNutritionResult
	}
	info, err := s.nutrition.LookupNutrition(ctx, query)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("nutrition lookup failed", zap.String("query", query), zap.Error(err))
		return nil, ErrNoNutritionResult
	}
	if info == nil {
		return nil, ErrNoNutritionResult
	}

	product.Enrich(info, EnrichmentSource)
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, product)

	return &EnrichProductResponse{
		Detail:          "enriched",
		NutritionalInfo: info,
	}, nil
}

// RequestPictureUpload issues a presigned upload URL for a new picture.
// The product is unchanged until ConfirmPictureUpload sees the object in storage.
func (s *ProductService) RequestPictureUpload(ctx context.Context, productID uuid.UUID, req PictureUploadRequest) (*PictureUploadResponse, error) {
	if s.pictures == nil {
		return nil, ErrStorageDisabled
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	key := pictureKey(product.ID, req.FileName)
	uploadURL, expiresAt, err := s.pictures.GenerateUploadURL(ctx, key, req.ContentType, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to generate picture upload URL: %w", err)
	}

	return &PictureUploadResponse{
		UploadURL:  uploadURL,
		Method:     "PUT",
		StorageKey: key,
		PictureURL: s.pictures.PublicURL(key),
		ExpiresAt:  expiresAt,
	}, nil
}

// ConfirmPictureUpload points the product at an uploaded object and removes
// the picture it replaces
func (s *ProductService) ConfirmPictureUpload(ctx context.Context, productID uuid.UUID, req ConfirmPictureRequest) (*ProductResponse, error) {
	if s.pictures == nil {
		return nil, ErrStorageDisabled
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(req.StorageKey, "products/"+product.ID.String()+"/") {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key does not belong to this product")
	}

	exists, err := s.pictures.ObjectExists(ctx, req.StorageKey)
	if err != nil {
		s.logger.Warn("failed to check uploaded picture", zap.String("key", req.StorageKey), zap.Error(err))
		return nil, shared.NewDomainError("STORAGE_CHECK_FAILED", "Failed to verify upload")
	}
	if !exists {
		return nil, shared.NewDomainError("UPLOAD_NOT_FOUND", "File not found in storage. Please upload the file first.")
	}

	previous := product.Picture
	publicURL := s.pictures.PublicURL(req.StorageKey)
	if err := product.SetPicture(publicURL); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	if previous != publicURL {
		s.removeStoredPicture(ctx, previous)
	}

	s.publishEvents(ctx, product)

	response := ToProductResponse(product)
	return &response, nil
}

func (s *ProductService) removeStoredPicture(ctx context.Context, link string) {
	if s.pictures == nil || link == "" {
		return
	}
	key, ok := s.pictures.KeyFromURL(link)
	if !ok {
		return
	}
	if err := s.pictures.DeleteObject(ctx, key); err != nil {
		s.logger.Warn("failed to delete stored picture", zap.String("key", key), zap.Error(err))
	}
}

func (s *ProductService) publishEvents(ctx context.Context, product *catalog.Product) {
	events := product.GetDomainEvents()
	product.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish product events",
			zap.String("product_id", product.ID.String()),
			zap.Error(err))
	}
}

// pictureKey builds products/<id>/<uuid><ext>; the client file name only contributes its extension
func pictureKey(productID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("products/%s/%s%s", productID, uuid.New(), ext)
}
