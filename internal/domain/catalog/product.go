package catalog

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/grocery/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Field limits mirrored by the products table
const (
	maxNameLength     = 255
	maxBrandLength    = 255
	maxCategoryLength = 255
	maxPictureLength  = 500
	maxBarcodeLength  = 100
)

// Product is a grocery item in the catalog.
// It is the aggregate root for product-related operations.
type Product struct {
	shared.BaseAggregateRoot
	Name            string
	Price           decimal.Decimal
	Brand           string
	Picture         string
	Category        string
	NutritionalInfo NutritionalInfo
	NutritionScore  NutritionScore
	Barcode         string
	Quantity        int
}

// NewProduct creates a new product with a validated name and price
func NewProduct(name string, price decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Price:             price.Round(2),
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update updates the product's descriptive fields
func (p *Product) Update(name, brand, category string) error {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return err
	}
	if utf8.RuneCountInString(brand) > maxBrandLength {
		return shared.NewDomainError("INVALID_BRAND", fmt.Sprintf("Brand cannot exceed %d characters", maxBrandLength))
	}
	if utf8.RuneCountInString(category) > maxCategoryLength {
		return shared.NewDomainError("INVALID_CATEGORY", fmt.Sprintf("Category cannot exceed %d characters", maxCategoryLength))
	}

	p.Name = name
	p.Brand = strings.TrimSpace(brand)
	p.Category = strings.TrimSpace(category)
	p.Touch()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetPrice changes the list price. Existing invoice lines keep their snapshot.
func (p *Product) SetPrice(price decimal.Decimal) error {
	if err := validatePrice(price); err != nil {
		return err
	}
	price = price.Round(2)
	if p.Price.Equal(price) {
		return nil
	}

	old := p.Price
	p.Price = price
	p.Touch()

	p.AddDomainEvent(NewProductPriceChangedEvent(p, old))

	return nil
}

// SetQuantity sets the stock quantity
func (p *Product) SetQuantity(quantity int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	p.Quantity = quantity
	p.Touch()
	return nil
}

// SetBarcode sets the product barcode
func (p *Product) SetBarcode(barcode string) error {
	barcode = strings.TrimSpace(barcode)
	if utf8.RuneCountInString(barcode) > maxBarcodeLength {
		return shared.NewDomainError("INVALID_BARCODE", fmt.Sprintf("Barcode cannot exceed %d characters", maxBarcodeLength))
	}
	p.Barcode = barcode
	p.Touch()
	return nil
}

// SetPicture sets the picture URL. An empty value clears it.
func (p *Product) SetPicture(picture string) error {
	picture = strings.TrimSpace(picture)
	if picture != "" {
		if utf8.RuneCountInString(picture) > maxPictureLength {
			return shared.NewDomainError("INVALID_PICTURE", fmt.Sprintf("Picture URL cannot exceed %d characters", maxPictureLength))
		}
		u, err := url.Parse(picture)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return shared.NewDomainError("INVALID_PICTURE", "Picture must be an absolute URL")
		}
	}
	p.Picture = picture
	p.Touch()
	return nil
}

// SetNutritionScore sets the grade; input is case-insensitive
func (p *Product) SetNutritionScore(score string) error {
	parsed, err := ParseNutritionScore(score)
	if err != nil {
		return err
	}
	p.NutritionScore = parsed
	p.Touch()
	return nil
}

// SetNutritionalInfo replaces the stored nutrition data
func (p *Product) SetNutritionalInfo(info NutritionalInfo) {
	p.NutritionalInfo = info
	p.Touch()
}

// Enrich stores nutrition data fetched from an external source
func (p *Product) Enrich(info NutritionalInfo, source string) {
	p.SetNutritionalInfo(info)
	p.AddDomainEvent(NewProductEnrichedEvent(p, source))
}

// HasBarcode returns true when the product carries a barcode
func (p *Product) HasBarcode() bool {
	return p.Barcode != ""
}

// StockValue returns price * quantity
func (p *Product) StockValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// String returns "name (score)", with N/A for unrated products
func (p *Product) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.NutritionScore)
}

// validateProductName validates the product name
func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return shared.NewDomainError("INVALID_NAME", fmt.Sprintf("Product name cannot exceed %d characters", maxNameLength))
	}
	return nil
}

// validatePrice validates the product price
func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	// decimal(10,2)
	if price.GreaterThanOrEqual(decimal.New(1, 8)) {
		return shared.NewDomainError("INVALID_PRICE", "Price exceeds the maximum supported value")
	}
	return nil
}
