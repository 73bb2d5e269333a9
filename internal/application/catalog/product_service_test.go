package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type productServiceFixture struct {
	repo      *MockProductRepository
	usage     *MockUsageChecker
	nutrition *MockNutritionLookup
	pictures  *MockPictureStorage
	events    *MockEventPublisher
	service   *ProductService
}

func newProductServiceFixture() *productServiceFixture {
	f := &productServiceFixture{
		repo:      new(MockProductRepository),
		usage:     new(MockUsageChecker),
		nutrition: new(MockNutritionLookup),
		pictures:  new(MockPictureStorage),
		events:    new(MockEventPublisher),
	}
	f.service = NewProductService(f.repo, f.usage, f.nutrition, f.pictures, nil)
	f.service.SetEventPublisher(f.events)
	return f
}

func newTestProduct(t *testing.T, name string, price string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, decimal.RequireFromString(price))
	require.NoError(t, err)
	p.ClearDomainEvents()
	return p
}

func priceOf(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with all fields", func(t *testing.T) {
		f := newProductServiceFixture()
		qty := 12
		f.repo.On("ExistsByBarcode", ctx, "3017620422003").Return(false, nil)
		f.repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil).Once()

		resp, err := f.service.Create(ctx, CreateProductRequest{
			Name:           "Nutella",
			Price:          priceOf("4.999"),
			Brand:          "Ferrero",
			Category:       "Spreads",
			NutritionScore: "e",
			Barcode:        "3017620422003",
			Quantity:       &qty,
		})
		require.NoError(t, err)
		assert.Equal(t, "Nutella", resp.Name)
		assert.Equal(t, "5", resp.Price.String())
		assert.Equal(t, "E", resp.NutritionScore)
		assert.Equal(t, 12, resp.Quantity)
		assert.Equal(t, "Nutella (E)", resp.Display)
		assert.Equal(t, []string{catalog.EventTypeProductCreated, catalog.EventTypeProductUpdated}, f.events.types())
		f.nutrition.AssertNotCalled(t, "LookupNutrition", mock.Anything, mock.Anything)
	})

	t.Run("duplicate barcode", func(t *testing.T) {
		f := newProductServiceFixture()
		f.repo.On("ExistsByBarcode", ctx, "123").Return(true, nil)

		_, err := f.service.Create(ctx, CreateProductRequest{Name: "Milk", Price: priceOf("1"), Barcode: "123"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "BARCODE_EXISTS", domainErr.Code)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid nutrition score", func(t *testing.T) {
		f := newProductServiceFixture()
		_, err := f.service.Create(ctx, CreateProductRequest{Name: "Milk", Price: priceOf("1"), NutritionScore: "F"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_NUTRITION_SCORE", domainErr.Code)
	})

	t.Run("negative price", func(t *testing.T) {
		f := newProductServiceFixture()
		_, err := f.service.Create(ctx, CreateProductRequest{Name: "Milk", Price: priceOf("-1")})
		require.Error(t, err)
	})

	t.Run("openfood query enriches after save", func(t *testing.T) {
		f := newProductServiceFixture()
		info := catalog.NutritionalInfo{"product_name": "Whole milk"}
		f.repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil).Twice()
		f.nutrition.On("LookupNutrition", ctx, "whole milk").Return(info, nil)

		resp, err := f.service.Create(ctx, CreateProductRequest{Name: "Milk", Price: priceOf("1.20"), OpenfoodQuery: " whole milk "})
		require.NoError(t, err)
		assert.Equal(t, "Whole milk", resp.NutritionalInfo["product_name"])
		assert.Contains(t, f.events.types(), catalog.EventTypeProductEnriched)
		f.repo.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("enrichment failure does not fail create", func(t *testing.T) {
		f := newProductServiceFixture()
		f.repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil).Once()
		f.nutrition.On("LookupNutrition", ctx, "milk").Return(nil, errors.New("timeout"))

		resp, err := f.service.Create(ctx, CreateProductRequest{Name: "Milk", Price: priceOf("1"), OpenfoodQuery: "milk"})
		require.NoError(t, err)
		assert.Nil(t, resp.NutritionalInfo)
		f.repo.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("no enrichment hit keeps product as is", func(t *testing.T) {
		f := newProductServiceFixture()
		f.repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil).Once()
		f.nutrition.On("LookupNutrition", ctx, "milk").Return(nil, nil)

		_, err := f.service.Create(ctx, CreateProductRequest{Name: "Milk", Price: priceOf("1"), OpenfoodQuery: "milk"})
		require.NoError(t, err)
		f.repo.AssertNumberOfCalls(t, "Save", 1)
	})
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()
	f := newProductServiceFixture()
	p := newTestProduct(t, "Apple", "0.50")

	expected := shared.Filter{
		Page:     1,
		PageSize: 20,
		Search:   "app",
		Filters:  map[string]any{"category": "Fruits", "nutrition_score": "A"},
	}
	f.repo.On("FindAll", ctx, expected).Return([]catalog.Product{*p}, nil)
	f.repo.On("Count", ctx, expected).Return(int64(1), nil)

	items, total, err := f.service.List(ctx, ProductListFilter{Search: " app ", Category: "Fruits", NutritionScore: "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Apple (N/A)", items[0].Display)
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update keeps other fields", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Bread", "2.00")
		require.NoError(t, p.Update("Bread", "Bakery Co", "Grains"))
		p.ClearDomainEvents()

		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.repo.On("Save", ctx, p).Return(nil)

		newName := "Sourdough"
		resp, err := f.service.Update(ctx, p.ID, UpdateProductRequest{Name: &newName, Price: priceOf("3.10")})
		require.NoError(t, err)
		assert.Equal(t, "Sourdough", resp.Name)
		assert.Equal(t, "Bakery Co", resp.Brand)
		assert.Equal(t, "Grains", resp.Category)
		assert.True(t, resp.Price.Equal(decimal.RequireFromString("3.10")))
		assert.Contains(t, f.events.types(), catalog.EventTypeProductPriceChanged)
	})

	t.Run("barcode taken by another product", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Bread", "2.00")
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.repo.On("ExistsByBarcode", ctx, "999").Return(true, nil)

		code := "999"
		_, err := f.service.Update(ctx, p.ID, UpdateProductRequest{Barcode: &code})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "BARCODE_EXISTS", domainErr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		f := newProductServiceFixture()
		id := uuid.New()
		f.repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)
		_, err := f.service.Update(ctx, id, UpdateProductRequest{})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestProductService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects products on invoices", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Cheese", "6")
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.usage.On("ExistsWithProduct", ctx, p.ID).Return(true, nil)

		err := f.service.Delete(ctx, p.ID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PRODUCT_IN_USE", domainErr.Code)
		f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deletes and removes stored picture", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Cheese", "6")
		require.NoError(t, p.SetPicture("https://cdn.test/products/x/pic.png"))
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.usage.On("ExistsWithProduct", ctx, p.ID).Return(false, nil)
		f.repo.On("Delete", ctx, p.ID).Return(nil)
		f.pictures.On("DeleteObject", ctx, "products/x/pic.png").Return(nil)

		require.NoError(t, f.service.Delete(ctx, p.ID))
		assert.Equal(t, []string{catalog.EventTypeProductDeleted}, f.events.types())
		f.pictures.AssertExpectations(t)
	})
}

func TestProductService_Enrich(t *testing.T) {
	ctx := context.Background()

	t.Run("query required", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Yogurt", "1.5")
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)

		_, err := f.service.Enrich(ctx, p.ID, EnrichProductRequest{})
		assert.ErrorIs(t, err, ErrEnrichQueryRequired)
		assert.Equal(t, "query is required", err.Error())
		f.nutrition.AssertNotCalled(t, "LookupNutrition", mock.Anything, mock.Anything)
	})

	t.Run("unknown product wins over a missing query", func(t *testing.T) {
		f := newProductServiceFixture()
		id := uuid.New()
		f.repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.Enrich(ctx, id, EnrichProductRequest{})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("falls back to openfood_query", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Yogurt", "1.5")
		info := catalog.NutritionalInfo{"product_name": "Greek yogurt", "serving_size": "125 g"}
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.nutrition.On("LookupNutrition", ctx, "greek yogurt").Return(info, nil)
		f.repo.On("Save", ctx, p).Return(nil)

		resp, err := f.service.Enrich(ctx, p.ID, EnrichProductRequest{OpenfoodQuery: "greek yogurt"})
		require.NoError(t, err)
		assert.Equal(t, "enriched", resp.Detail)
		assert.Equal(t, "125 g", resp.NutritionalInfo["serving_size"])
		assert.Equal(t, catalog.NutritionalInfo(info), p.NutritionalInfo)
	})

	t.Run("no result", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Yogurt", "1.5")
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.nutrition.On("LookupNutrition", ctx, "zzz").Return(nil, nil)

		_, err := f.service.Enrich(ctx, p.ID, EnrichProductRequest{Query: "zzz"})
		assert.ErrorIs(t, err, ErrNoNutritionResult)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("lookup error is reported as no result", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Yogurt", "1.5")
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.nutrition.On("LookupNutrition", ctx, "zzz").Return(nil, errors.New("down"))

		_, err := f.service.Enrich(ctx, p.ID, EnrichProductRequest{Query: "zzz"})
		assert.ErrorIs(t, err, ErrNoNutritionResult)
	})
}

func TestProductService_RequestPictureUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("returns presigned url and leaves the product alone", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Honey", "7")
		require.NoError(t, p.SetPicture("https://cdn.test/products/old.png"))
		expires := time.Now().Add(15 * time.Minute)
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.pictures.On("GenerateUploadURL", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "products/"+p.ID.String()+"/") && strings.HasSuffix(key, ".png")
		}), "image/png", time.Duration(0)).Return("https://s3.test/upload?sig=1", expires, nil)

		resp, err := f.service.RequestPictureUpload(ctx, p.ID, PictureUploadRequest{FileName: "Jar.PNG", ContentType: "image/png"})
		require.NoError(t, err)
		assert.Equal(t, "PUT", resp.Method)
		assert.Equal(t, "https://s3.test/upload?sig=1", resp.UploadURL)
		assert.Equal(t, "https://cdn.test/"+resp.StorageKey, resp.PictureURL)

		assert.Equal(t, "https://cdn.test/products/old.png", p.Picture)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.pictures.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything)
	})

	t.Run("storage disabled", func(t *testing.T) {
		svc := NewProductService(new(MockProductRepository), nil, nil, nil, nil)
		_, err := svc.RequestPictureUpload(ctx, uuid.New(), PictureUploadRequest{FileName: "a.png", ContentType: "image/png"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "STORAGE_DISABLED", domainErr.Code)
	})
}

func TestProductService_ConfirmPictureUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the picture and removes the old object", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Honey", "7")
		require.NoError(t, p.SetPicture("https://cdn.test/products/old.png"))
		key := "products/" + p.ID.String() + "/new.png"
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.pictures.On("ObjectExists", ctx, key).Return(true, nil)
		f.repo.On("Save", ctx, p).Return(nil)
		f.pictures.On("DeleteObject", ctx, "products/old.png").Return(nil)

		resp, err := f.service.ConfirmPictureUpload(ctx, p.ID, ConfirmPictureRequest{StorageKey: key})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.test/"+key, resp.Picture)
		assert.Equal(t, resp.Picture, p.Picture)
		f.pictures.AssertExpectations(t)
	})

	t.Run("missing upload keeps the current picture", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Honey", "7")
		require.NoError(t, p.SetPicture("https://cdn.test/products/old.png"))
		key := "products/" + p.ID.String() + "/never-uploaded.png"
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.pictures.On("ObjectExists", ctx, key).Return(false, nil)

		_, err := f.service.ConfirmPictureUpload(ctx, p.ID, ConfirmPictureRequest{StorageKey: key})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UPLOAD_NOT_FOUND", domainErr.Code)
		assert.Equal(t, "https://cdn.test/products/old.png", p.Picture)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.pictures.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything)
	})

	t.Run("storage check failure", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Honey", "7")
		key := "products/" + p.ID.String() + "/new.png"
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)
		f.pictures.On("ObjectExists", ctx, key).Return(false, errors.New("timeout"))

		_, err := f.service.ConfirmPictureUpload(ctx, p.ID, ConfirmPictureRequest{StorageKey: key})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "STORAGE_CHECK_FAILED", domainErr.Code)
	})

	t.Run("key of another product is rejected", func(t *testing.T) {
		f := newProductServiceFixture()
		p := newTestProduct(t, "Honey", "7")
		f.repo.On("FindByID", ctx, p.ID).Return(p, nil)

		_, err := f.service.ConfirmPictureUpload(ctx, p.ID, ConfirmPictureRequest{StorageKey: "products/" + uuid.NewString() + "/x.png"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STORAGE_KEY", domainErr.Code)
		f.pictures.AssertNotCalled(t, "ObjectExists", mock.Anything, mock.Anything)
	})
}

func TestPictureKey(t *testing.T) {
	id := uuid.New()
	key := pictureKey(id, "photo.JPG")
	assert.True(t, strings.HasPrefix(key, "products/"+id.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.False(t, strings.Contains(pictureKey(id, "noext"), "."))
}
