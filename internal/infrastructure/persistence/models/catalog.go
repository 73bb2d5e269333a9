package models

import (
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	AggregateModel
	Name            string          `gorm:"type:varchar(255);not null;index"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Brand           string          `gorm:"type:varchar(255);not null;default:''"`
	Picture         string          `gorm:"type:varchar(500);not null;default:''"`
	Category        string          `gorm:"type:varchar(255);not null;default:'';index"`
	NutritionalInfo *string         `gorm:"type:jsonb"`
	NutritionScore  string          `gorm:"type:varchar(1);not null;default:''"`
	Barcode         string          `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_products_barcode,where:barcode <> ''"`
	Quantity        int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
// Malformed stored nutrition JSON is dropped rather than failing the read.
func (m *ProductModel) ToDomain() *catalog.Product {
	var info catalog.NutritionalInfo
	if m.NutritionalInfo != nil {
		info, _ = catalog.ParseNutritionalInfo([]byte(*m.NutritionalInfo))
	}
	return &catalog.Product{
		BaseAggregateRoot: m.root(),
		Name:              m.Name,
		Price:             m.Price,
		Brand:             m.Brand,
		Picture:           m.Picture,
		Category:          m.Category,
		NutritionalInfo:   info,
		NutritionScore:    catalog.NormalizeNutritionScore(m.NutritionScore),
		Barcode:           m.Barcode,
		Quantity:          m.Quantity,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.AggregateModel = aggregateModelOf(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Price = p.Price
	m.Brand = p.Brand
	m.Picture = p.Picture
	m.Category = p.Category
	m.NutritionalInfo = nil
	if raw, err := p.NutritionalInfo.JSON(); err == nil && raw != nil {
		s := string(raw)
		m.NutritionalInfo = &s
	}
	m.NutritionScore = string(p.NutritionScore)
	m.Barcode = p.Barcode
	m.Quantity = p.Quantity
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
