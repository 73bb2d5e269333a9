package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/partner"
	"github.com/grocery/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// InvoiceItemInput is one requested line; the price comes from the product
type InvoiceItemInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	CustomerID uuid.UUID          `json:"customer" binding:"required"`
	Status     string             `json:"status" binding:"omitempty,oneof=pending completed cancelled"`
	Items      []InvoiceItemInput `json:"items" binding:"omitempty,dive"`
}

// UpdateInvoiceRequest represents a partial invoice update.
// When Items is set it replaces the invoice lines: lines for products already
// on the invoice keep their price snapshot, new products are priced now.
type UpdateInvoiceRequest struct {
	Status *string             `json:"status" binding:"omitempty,oneof=pending completed cancelled"`
	Items  *[]InvoiceItemInput `json:"items" binding:"omitempty,dive"`
}

// InvoiceListFilter represents filter options for invoice list
type InvoiceListFilter struct {
	// CustomerID is parsed from the customer query parameter by the handler
	CustomerID *uuid.UUID `form:"-"`
	Status     string     `form:"status" binding:"omitempty,oneof=pending completed cancelled"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=created_at updated_at total status"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductSummary is the product nested in an invoice line
type ProductSummary struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Brand          string          `json:"brand"`
	Picture        string          `json:"picture"`
	Category       string          `json:"category"`
	NutritionScore string          `json:"nutrition_score"`
	Barcode        string          `json:"barcode"`
}

// InvoiceItemResponse represents an invoice line in API responses
type InvoiceItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	Product   *ProductSummary `json:"product"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID           uuid.UUID             `json:"id"`
	CustomerID   uuid.UUID             `json:"customer"`
	CustomerName string                `json:"customer_name"`
	Total        decimal.Decimal       `json:"total"`
	Status       string                `json:"status"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Items        []InvoiceItemResponse `json:"items"`
}

// ToInvoiceResponse converts an invoice to its response. customer and
// products may be nil or incomplete; missing entries are left empty.
func ToInvoiceResponse(inv *trade.Invoice, customer *partner.Customer, products map[uuid.UUID]*catalog.Product) InvoiceResponse {
	resp := InvoiceResponse{
		ID:         inv.ID,
		CustomerID: inv.CustomerID,
		Total:      inv.Total,
		Status:     string(inv.Status),
		CreatedAt:  inv.CreatedAt,
		UpdatedAt:  inv.UpdatedAt,
		Items:      make([]InvoiceItemResponse, len(inv.Items)),
	}
	if customer != nil {
		resp.CustomerName = customer.FirstName
	}
	for i := range inv.Items {
		resp.Items[i] = toInvoiceItemResponse(&inv.Items[i], products[inv.Items[i].ProductID])
	}
	return resp
}

// toInvoiceItemResponse converts an invoice line to its response
func toInvoiceItemResponse(item *trade.InvoiceItem, product *catalog.Product) InvoiceItemResponse {
	resp := InvoiceItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Price:     item.Price,
		Amount:    item.Amount(),
	}
	if product != nil {
		resp.Product = &ProductSummary{
			ID:             product.ID,
			Name:           product.Name,
			Price:          product.Price,
			Brand:          product.Brand,
			Picture:        product.Picture,
			Category:       product.Category,
			NutritionScore: string(product.NutritionScore),
			Barcode:        product.Barcode,
		}
	} else if item.ProductName != "" {
		resp.Product = &ProductSummary{ID: item.ProductID, Name: item.ProductName}
	}
	return resp
}
