package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/grocery/backend/internal/domain/trade"
	"github.com/grocery/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID with its items
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Invoice, error) {
	var rows []models.InvoiceModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Preload("Items", orderItems),
		filter,
	)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// FindByCustomer finds invoices for a customer
func (r *GormInvoiceRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]trade.Invoice, error) {
	var rows []models.InvoiceModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
			Preload("Items", orderItems).
			Where("customer_id = ?", customerID),
		filter,
	)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// Save creates or updates an invoice and replaces its items
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *trade.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveInvoice(tx, invoice)
	})
}

// SaveBatch creates multiple invoices in a single transaction
func (r *GormInvoiceRepository) SaveBatch(ctx context.Context, invoices []*trade.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, invoice := range invoices {
			if err := saveInvoice(tx, invoice); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveInvoice(tx *gorm.DB, invoice *trade.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	items := model.Items
	model.Items = nil

	if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
		return err
	}

	// Items are replaced wholesale; the aggregate owns them
	if err := tx.Where("invoice_id = ?", model.ID).Delete(&models.InvoiceItemModel{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].InvoiceID = model.ID
	}
	if err := tx.Create(&items).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists on invoice")
		}
		return err
	}
	return nil
}

// Delete deletes an invoice and its items
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.InvoiceModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// DeleteAll removes every invoice and item
func (r *GormInvoiceRepository) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := global.Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		result := global.Delete(&models.InvoiceModel{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumTotals returns the sum of totals for invoices matching the filter
func (r *GormInvoiceRepository) SumTotals(ctx context.Context, filter shared.Filter) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Select("SUM(total)")
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}

// ExistsWithProduct checks if any invoice line references the product
func (r *GormInvoiceRepository) ExistsWithProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceItemModel{}).
		Where("product_id = ?", productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// TopProducts returns the best selling products by quantity
func (r *GormInvoiceRepository) TopProducts(ctx context.Context, limit int) ([]trade.ProductSales, error) {
	if limit <= 0 {
		limit = 5
	}

	var rows []struct {
		ProductID   uuid.UUID
		ProductName string
		Quantity    int64
		Revenue     decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Table("invoice_items AS ii").
		Select("ii.product_id, MAX(ii.product_name) AS product_name, SUM(ii.quantity) AS quantity, SUM(ii.quantity * ii.price) AS revenue").
		Joins("JOIN invoices AS i ON i.id = ii.invoice_id").
		Where("i.status <> ?", trade.InvoiceStatusCancelled).
		Group("ii.product_id").
		Order("quantity DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]trade.ProductSales, len(rows))
	for i, row := range rows {
		result[i] = trade.ProductSales{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
			Revenue:     row.Revenue.Round(2),
		}
	}
	return result, nil
}

// applyFilter narrows a list query and cuts out the requested page
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	return paginate(r.applyFilterWithoutPagination(query, filter), filter, invoiceSort)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "exclude_status":
			query = query.Where("status <> ?", value)
		case "created_from":
			query = query.Where("created_at >= ?", value)
		case "created_to":
			query = query.Where("created_at <= ?", value)
		}
	}

	return query
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

func invoicesToDomain(rows []models.InvoiceModel) []trade.Invoice {
	invoices := make([]trade.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ trade.InvoiceRepository = (*GormInvoiceRepository)(nil)
