package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	CustomerID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Total      decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0"`
	Status     trade.InvoiceStatus `gorm:"type:varchar(20);not null;default:'completed';index"`
	Items      []InvoiceItemModel  `gorm:"foreignKey:InvoiceID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *trade.Invoice {
	items := make([]trade.InvoiceItem, len(m.Items))
	for i := range m.Items {
		items[i] = *m.Items[i].ToDomain()
	}
	return &trade.Invoice{
		BaseAggregateRoot: m.root(),
		CustomerID:        m.CustomerID,
		Total:             m.Total,
		Status:            m.Status,
		Items:             items,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *trade.Invoice) {
	m.AggregateModel = aggregateModelOf(inv.BaseAggregateRoot)
	m.CustomerID = inv.CustomerID
	m.Total = inv.Total
	m.Status = inv.Status
	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i := range inv.Items {
		m.Items[i].FromDomain(&inv.Items[i])
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(inv *trade.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceItemModel is the persistence model for an invoice line.
// A product can appear at most once per invoice.
type InvoiceItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_items_invoice_product,priority:1"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoice_items_invoice_product,priority:2"`
	ProductName string          `gorm:"type:varchar(255);not null;default:''"`
	Quantity    int             `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain InvoiceItem.
func (m *InvoiceItemModel) ToDomain() *trade.InvoiceItem {
	return &trade.InvoiceItem{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		Price:       m.Price,
		CreatedAt:   m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain InvoiceItem.
func (m *InvoiceItemModel) FromDomain(item *trade.InvoiceItem) {
	m.ID = item.ID
	m.InvoiceID = item.InvoiceID
	m.ProductID = item.ProductID
	m.ProductName = item.ProductName
	m.Quantity = item.Quantity
	m.Price = item.Price
	m.CreatedAt = item.CreatedAt
}
